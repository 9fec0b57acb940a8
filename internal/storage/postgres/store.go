package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

//go:embed migrations/*.sql
var migrations embed.FS

var _ storage.Storage = (*Store)(nil)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// New подключается к базе и накатывает миграции goose.
func New(dsn string, log *zap.Logger) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true, // нарушение уникального индекса -> gorm.ErrDuplicatedKey
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	// Схема управляется миграциями, AutoMigrate не используется
	goose.SetBaseFS(migrations)
	goose.SetLogger(zap.NewStdLog(log.Named("goose")))
	if err := goose.SetDialect("postgres"); err != nil {
		return nil, fmt.Errorf("failed to set goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "migrations"); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// === Rows ===

type userRow struct {
	ID             string `gorm:"primaryKey"`
	Username       string
	Email          string
	PasswordHash   string
	Bio            string
	ProfilePicture string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

type postRow struct {
	ID        string `gorm:"primaryKey"`
	Title     string
	Content   string
	AuthorID  string
	Tags      pq.StringArray `gorm:"type:text[]"`
	Likes     pq.StringArray `gorm:"type:text[]"`
	Image     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (postRow) TableName() string { return "posts" }

type commentRow struct {
	ID        string `gorm:"primaryKey"`
	PostID    string
	AuthorID  string
	Content   string
	Likes     pq.StringArray `gorm:"type:text[]"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (commentRow) TableName() string { return "comments" }

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:             r.ID,
		Username:       r.Username,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Bio:            r.Bio,
		ProfilePicture: r.ProfilePicture,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
	}
}

func (r *postRow) toDomain() *domain.Post {
	return &domain.Post{
		ID:        r.ID,
		Title:     r.Title,
		Content:   r.Content,
		AuthorID:  r.AuthorID,
		Tags:      []string(r.Tags),
		Likes:     append([]string{}, r.Likes...),
		Image:     r.Image,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func (r *commentRow) toDomain() *domain.Comment {
	return &domain.Comment{
		ID:        r.ID,
		PostID:    r.PostID,
		AuthorID:  r.AuthorID,
		Content:   r.Content,
		Likes:     append([]string{}, r.Likes...),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// uuidOf возвращает false для строк, которые не могут быть первичным ключом.
// Такие id заведомо не найдутся, поэтому до базы запрос не доходит.
func uuidOf(id string) (string, bool) {
	u, err := uuid.Parse(id)
	if err != nil {
		return "", false
	}
	return u.String(), true
}

// translate приводит ошибки gorm к ошибкам пакета storage.
func translate(err error, what string) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w", what, storage.ErrDuplicate)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		// родительская запись удалена между проверкой и вставкой
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return err
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	now := s.now()
	row := userRow{
		ID:             uuid.NewString(),
		Username:       user.Username,
		Email:          user.Email,
		PasswordHash:   user.PasswordHash,
		Bio:            user.Bio,
		ProfilePicture: user.ProfilePicture,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "user "+user.Username)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, storage.ErrNotFound)
	}
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error; err != nil {
		return nil, translate(err, "user with id "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "lower(email) = lower(?)", email).Error; err != nil {
		return nil, translate(err, "user with email "+email)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var row userRow
	if err := s.db.WithContext(ctx).First(&row, "username = ?", username).Error; err != nil {
		return nil, translate(err, "user "+username)
	}
	return row.toDomain(), nil
}

func (s *Store) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	var row userRow
	err := s.db.WithContext(ctx).
		Where("lower(email) = lower(?) OR username = ?", email, username).
		First(&row).Error
	if err != nil {
		return nil, translate(err, "user")
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("user with id %s: %w", id, storage.ErrNotFound)
	}

	changes := map[string]interface{}{"updated_at": s.now()}
	if upd.Bio != nil {
		changes["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		changes["profile_picture"] = *upd.ProfilePicture
	}

	var row userRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&userRow{}).Where("id = ?", key).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&row, "id = ?", key).Error
	})
	if err != nil {
		return nil, translate(err, "user with id "+id)
	}
	return row.toDomain(), nil
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if key, ok := uuidOf(id); ok {
			keys = append(keys, key)
		}
	}
	result := make(map[string]*domain.User, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var rows []userRow
	if err := s.db.WithContext(ctx).Where("id IN ?", keys).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		result[rows[i].ID] = rows[i].toDomain()
	}
	return result, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	now := s.now()
	row := postRow{
		ID:        uuid.NewString(),
		Title:     post.Title,
		Content:   post.Content,
		AuthorID:  domain.CanonicalID(post.AuthorID),
		Tags:      pq.StringArray(nonNil(post.Tags)),
		Likes:     pq.StringArray(nonNil(post.Likes)),
		Image:     post.Image,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, translate(err, "post")
	}
	return row.toDomain(), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	var row postRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error; err != nil {
		return nil, translate(err, "post with id "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PageArgs) ([]*domain.Post, int64, error) {
	query := s.db.WithContext(ctx).Model(&postRow{})
	if filter.AuthorID != "" {
		key, ok := uuidOf(filter.AuthorID)
		if !ok {
			return []*domain.Post{}, 0, nil
		}
		query = query.Where("author_id = ?", key)
	}
	if filter.Tag != "" {
		query = query.Where("?::text = ANY(tags)", filter.Tag)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if int64(args.Offset) >= total {
		return []*domain.Post{}, total, nil
	}

	var rows []postRow
	err := query.
		Order("created_at DESC, id DESC").
		Offset(args.Offset).
		Limit(args.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	posts := make([]*domain.Post, 0, len(rows))
	for i := range rows {
		posts = append(posts, rows[i].toDomain())
	}
	return posts, total, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}

	changes := map[string]interface{}{"updated_at": s.now()}
	if upd.Title != nil {
		changes["title"] = *upd.Title
	}
	if upd.Content != nil {
		changes["content"] = *upd.Content
	}
	if upd.Tags != nil {
		changes["tags"] = pq.StringArray(nonNil(*upd.Tags))
	}
	if upd.Image != nil {
		changes["image"] = *upd.Image
	}

	var row postRow
	// Обновление и чтение результата в одной транзакции
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&postRow{}).Where("id = ?", key).Updates(changes)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&row, "id = ?", key).Error
	})
	if err != nil {
		return nil, translate(err, "post with id "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	key, ok := uuidOf(id)
	if !ok {
		return fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", key).Delete(&commentRow{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", key).Delete(&postRow{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "post with id "+id)
}

// toggleSQL переключает членство одним оператором, без чтения массива в приложение.
// Параллельные переключения сериализуются блокировкой строки.
const toggleSQL = `UPDATE %s
SET likes = CASE WHEN ?::text = ANY(likes) THEN array_remove(likes, ?::text) ELSE array_append(likes, ?::text) END,
    updated_at = ?
WHERE id = ?
RETURNING *`

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	key, ok := uuidOf(postID)
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}
	member := domain.CanonicalID(userID)

	var rows []postRow
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf(toggleSQL, "posts"), member, member, member, s.now(), key).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("post with id %s: %w", postID, storage.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	postKey, ok := uuidOf(comment.PostID)
	if !ok {
		return nil, fmt.Errorf("post with id %s: %w", comment.PostID, storage.ErrNotFound)
	}

	now := s.now()
	row := commentRow{
		ID:        uuid.NewString(),
		PostID:    postKey,
		AuthorID:  domain.CanonicalID(comment.AuthorID),
		Content:   comment.Content,
		Likes:     pq.StringArray(nonNil(comment.Likes)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Блокируем строку поста FOR SHARE, чтобы параллельное удаление дождалось вставки
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var parent postRow
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).
			Select("id").
			Where("id = ?", postKey).
			Take(&parent).Error
		if err != nil {
			return err
		}
		return tx.Create(&row).Error
	})
	if err != nil {
		return nil, translate(err, "post with id "+comment.PostID)
	}
	return row.toDomain(), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	var row commentRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", key).Error; err != nil {
		return nil, translate(err, "comment with id "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	key, ok := uuidOf(postID)
	if !ok {
		return []*domain.Comment{}, nil
	}
	var rows []commentRow
	err := s.db.WithContext(ctx).
		Where("post_id = ?", key).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	comments := make([]*domain.Comment, 0, len(rows))
	for i := range rows {
		comments = append(comments, rows[i].toDomain())
	}
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, id, content string) (*domain.Comment, error) {
	key, ok := uuidOf(id)
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	var row commentRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&commentRow{}).Where("id = ?", key).
			Updates(map[string]interface{}{"content": content, "updated_at": s.now()})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.First(&row, "id = ?", key).Error
	})
	if err != nil {
		return nil, translate(err, "comment with id "+id)
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	key, ok := uuidOf(id)
	if !ok {
		return fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	res := s.db.WithContext(ctx).Where("id = ?", key).Delete(&commentRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (*domain.Comment, error) {
	key, ok := uuidOf(commentID)
	if !ok {
		return nil, fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	member := domain.CanonicalID(userID)

	var rows []commentRow
	err := s.db.WithContext(ctx).
		Raw(fmt.Sprintf(toggleSQL, "comments"), member, member, member, s.now(), key).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("comment with id %s: %w", commentID, storage.ErrNotFound)
	}
	return rows[0].toDomain(), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
