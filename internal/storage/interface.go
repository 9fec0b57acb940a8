package storage

import (
	"context"
	"errors"

	"github.com/UkralStul/blog-platform/internal/domain"
)

var (
	// ErrNotFound - запись не найдена (или не найден родительский пост при создании комментария).
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate - нарушено ограничение уникальности.
	ErrDuplicate = errors.New("duplicate record")
)

// PostFilter - фильтры выборки постов. Пустые поля не фильтруют.
type PostFilter struct {
	Tag      string
	AuthorID string
}

// PageArgs - аргументы для пагинации.
type PageArgs struct {
	Offset int
	Limit  int
}

// Storage определяет контракт для хранилищ.
// Списки упорядочены по created_at DESC, затем по id DESC.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	FindUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error)
	UpdateUserProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)

	// Метод для Dataloader'а: отсутствующие id просто не попадают в карту.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	ListPosts(ctx context.Context, filter PostFilter, args PageArgs) ([]*domain.Post, int64, error)
	UpdatePost(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error)
	// DeletePost удаляет пост вместе с его комментариями.
	DeletePost(ctx context.Context, id string) error
	// TogglePostLike атомарно переключает userID в множестве лайков поста.
	TogglePostLike(ctx context.Context, postID, userID string) (*domain.Post, error)

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error)
	UpdateComment(ctx context.Context, id, content string) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error
	ToggleCommentLike(ctx context.Context, commentID, userID string) (*domain.Comment, error)

	Close() error
}
