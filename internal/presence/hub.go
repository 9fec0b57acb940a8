package presence

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// События канала присутствия.
const (
	EventJoinPost     = "joinPost"
	EventLeavePost    = "leavePost"
	EventCommentAdded = "commentAdded"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Message - сообщение в обе стороны. От клиента приходят joinPost/leavePost,
// сервер рассылает commentAdded с данными в Data.
type Message struct {
	Event  string      `json:"event"`
	PostID string      `json:"postId"`
	Data   interface{} `json:"data,omitempty"`
}

type subscriber struct {
	id    string
	send  chan []byte
	rooms map[string]struct{} // под Hub.mu
}

// Hub хранит комнаты постов и рассылает в них события.
// Доставка не гарантируется: медленный подписчик пропускает сообщения.
type Hub struct {
	mu sync.RWMutex
	//       map[postID] map[subscriberID] subscriber
	rooms map[string]map[string]*subscriber

	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHub - конструктор хаба. Пустой allowedOrigins или "*" разрешает любой Origin.
func NewHub(logger *zap.Logger, allowedOrigins []string) *Hub {
	h := &Hub{
		rooms:  make(map[string]map[string]*subscriber),
		logger: logger,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return h
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

func (h *Hub) newSubscriber() *subscriber {
	return &subscriber{
		id:    uuid.NewString(),
		send:  make(chan []byte, sendBuffer),
		rooms: make(map[string]struct{}),
	}
}

func (h *Hub) join(s *subscriber, postID string) {
	room := domain.CanonicalID(postID)
	if room == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[string]*subscriber)
	}
	h.rooms[room][s.id] = s
	s.rooms[room] = struct{}{}
}

func (h *Hub) leave(s *subscriber, postID string) {
	room := domain.CanonicalID(postID)
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(s, room)
}

func (h *Hub) leaveLocked(s *subscriber, room string) {
	if subs, ok := h.rooms[room]; ok {
		delete(subs, s.id)
		if len(subs) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(s.rooms, room)
}

// remove выводит подписчика из всех комнат и закрывает его канал.
func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room := range s.rooms {
		h.leaveLocked(s, room)
	}
	close(s.send)
}

// Broadcast рассылает событие всем в комнате поста без блокировки
// и возвращает число подписчиков, которым сообщение поставлено в очередь.
func (h *Hub) Broadcast(postID, event string, data interface{}) int {
	room := domain.CanonicalID(postID)
	payload, err := json.Marshal(Message{Event: event, PostID: room, Data: data})
	if err != nil {
		h.logger.Sugar().Warnf("failed to marshal %s event for post(%s): %s", event, room, err.Error())
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	delivered := 0
	for _, s := range h.rooms[room] {
		select {
		case s.send <- payload:
			delivered++
		default:
			// Клиент не успевает читать, сообщение пропускается
		}
	}
	return delivered
}

// RoomSize - число подписчиков комнаты поста.
func (h *Hub) RoomSize(postID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[domain.CanonicalID(postID)])
}

// ServeHTTP поднимает websocket-соединение и обслуживает его до отключения.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		h.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	s := h.newSubscriber()
	h.logger.Debug("presence client connected", zap.String("subscriber", s.id))

	go h.writePump(conn, s)
	h.readPump(conn, s)
}

func (h *Hub) readPump(conn *websocket.Conn, s *subscriber) {
	defer func() {
		h.remove(s)
		h.logger.Debug("presence client disconnected", zap.String("subscriber", s.id))
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("presence read failed", zap.String("subscriber", s.id), zap.Error(err))
			}
			return
		}
		switch msg.Event {
		case EventJoinPost:
			h.join(s, msg.PostID)
		case EventLeavePost:
			h.leave(s, msg.PostID)
		default:
			h.logger.Debug("unknown presence event", zap.String("event", msg.Event))
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
