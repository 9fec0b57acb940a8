package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/google/uuid"
)

var _ storage.Storage = (*Store)(nil)

// Store реализует интерфейс Storage в памяти.
// Наружу отдаются копии, поэтому вызывающий код не может менять состояние в обход блокировки.
type Store struct {
	mu             sync.RWMutex
	users          map[string]*domain.User
	posts          map[string]*domain.Post
	comments       map[string]*domain.Comment
	commentsByPost map[string][]string // map[postID][]commentID
	now            func() time.Time
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		users:          make(map[string]*domain.User),
		posts:          make(map[string]*domain.Post),
		comments:       make(map[string]*domain.Comment),
		commentsByPost: make(map[string][]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// NewWithClock - то же, что New, но с заданными часами (для детерминированного порядка в тестах).
func NewWithClock(now func() time.Time) *Store {
	s := New()
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, user.Email) || u.Username == user.Username {
			return nil, fmt.Errorf("user %s: %w", user.Username, storage.ErrDuplicate)
		}
	}

	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = &u
	return copyUser(&u), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, storage.ErrNotFound)
	}
	return copyUser(u), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user with email %s: %w", email, storage.ErrNotFound)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %s: %w", username, storage.ErrNotFound)
}

func (s *Store) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if strings.EqualFold(u.Email, email) || u.Username == username {
			return copyUser(u), nil
		}
	}
	return nil, storage.ErrNotFound
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, storage.ErrNotFound)
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		u.ProfilePicture = *upd.ProfilePicture
	}
	u.UpdatedAt = s.now()
	return copyUser(u), nil
}

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[domain.CanonicalID(id)]; ok {
			result[u.ID] = copyUser(u)
		}
	}
	return result, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := copyPost(post)
	p.ID = uuid.NewString()
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	if p.Likes == nil {
		p.Likes = []string{}
	}
	s.posts[p.ID] = p
	return copyPost(p), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	return copyPost(post), nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PageArgs) ([]*domain.Post, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if filter.AuthorID != "" && !domain.SameID(p.AuthorID, filter.AuthorID) {
			continue
		}
		if filter.Tag != "" && !hasTag(p.Tags, filter.Tag) {
			continue
		}
		matched = append(matched, p)
	}

	// Сортируем от новых к старым; id разрешает совпадения времени, чтобы страницы не плавали
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := int64(len(matched))
	start := args.Offset
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []*domain.Post{}, total, nil
	}
	end := start + args.Limit
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]*domain.Post, 0, end-start)
	for _, p := range matched[start:end] {
		page = append(page, copyPost(p))
	}
	return page, total, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	if upd.Title != nil {
		post.Title = *upd.Title
	}
	if upd.Content != nil {
		post.Content = *upd.Content
	}
	if upd.Tags != nil {
		post.Tags = append([]string{}, (*upd.Tags)...)
	}
	if upd.Image != nil {
		post.Image = stringPtr(*upd.Image)
	}
	post.UpdatedAt = s.now()
	return copyPost(post), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = domain.CanonicalID(id)
	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	for _, cID := range s.commentsByPost[id] {
		delete(s.comments, cID)
	}
	delete(s.commentsByPost, id)
	delete(s.posts, id)
	return nil
}

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[domain.CanonicalID(postID)]
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}
	post.Likes = domain.ToggleMember(post.Likes, userID)
	post.UpdatedAt = s.now()
	return copyPost(post), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста
	postID := domain.CanonicalID(comment.PostID)
	if _, ok := s.posts[postID]; !ok {
		return nil, fmt.Errorf("post with id %s: %w", comment.PostID, storage.ErrNotFound)
	}

	c := copyComment(comment)
	c.ID = uuid.NewString()
	c.PostID = postID
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	if c.Likes == nil {
		c.Likes = []string{}
	}
	s.comments[c.ID] = c
	s.commentsByPost[postID] = append(s.commentsByPost[postID], c.ID)
	return copyComment(c), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comment, ok := s.comments[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	return copyComment(comment), nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.commentsByPost[domain.CanonicalID(postID)]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			comments = append(comments, copyComment(c))
		}
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].CreatedAt.Equal(comments[j].CreatedAt) {
			return comments[i].CreatedAt.After(comments[j].CreatedAt)
		}
		return comments[i].ID > comments[j].ID
	})
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, id, content string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[domain.CanonicalID(id)]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	comment.Content = content
	comment.UpdatedAt = s.now()
	return copyComment(comment), nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id = domain.CanonicalID(id)
	comment, ok := s.comments[id]
	if !ok {
		return fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	ids := s.commentsByPost[comment.PostID]
	for i, cID := range ids {
		if cID == id {
			s.commentsByPost[comment.PostID] = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	delete(s.comments, id)
	return nil
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	comment, ok := s.comments[domain.CanonicalID(commentID)]
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	comment.Likes = domain.ToggleMember(comment.Likes, userID)
	comment.UpdatedAt = s.now()
	return copyComment(comment), nil
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

func stringPtr(s string) *string { return &s }

func copyUser(u *domain.User) *domain.User {
	c := *u
	return &c
}

func copyPost(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = append([]string(nil), p.Tags...)
	c.Likes = append([]string{}, p.Likes...)
	if p.Image != nil {
		c.Image = stringPtr(*p.Image)
	}
	return &c
}

func copyComment(cm *domain.Comment) *domain.Comment {
	c := *cm
	c.Likes = append([]string{}, cm.Likes...)
	return &c
}
