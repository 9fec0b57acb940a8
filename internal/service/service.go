package service

import (
	"context"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"go.uber.org/zap"
)

type Identity interface {
	Register(ctx context.Context, input RegisterInput) (*AuthResult, error)
	Authenticate(ctx context.Context, input LoginInput) (*AuthResult, error)
	ResolveToken(ctx context.Context, token string) (*domain.User, error)
	Me(ctx context.Context, callerID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, callerID string, input UpdateProfileInput) (*domain.Profile, error)
	GetProfile(ctx context.Context, username string) (*domain.Profile, error)
}

type Posts interface {
	Create(ctx context.Context, callerID string, input CreatePostInput) (*domain.PostView, error)
	Get(ctx context.Context, id string) (*domain.PostView, error)
	Update(ctx context.Context, callerID, id string, input UpdatePostInput) (*domain.PostView, error)
	Delete(ctx context.Context, callerID, id string) error
	ToggleLike(ctx context.Context, callerID, id string) (*domain.PostView, error)
	List(ctx context.Context, query domain.PageQuery) ([]*domain.PostView, domain.PageInfo, error)
	ListByUser(ctx context.Context, username string, query domain.PageQuery) ([]*domain.PostView, domain.PageInfo, error)
}

type Comments interface {
	Create(ctx context.Context, callerID string, input CreateCommentInput) (*domain.CommentView, error)
	ListForPost(ctx context.Context, postID string) ([]*domain.CommentView, error)
	Update(ctx context.Context, callerID, id string, input UpdateCommentInput) (*domain.CommentView, error)
	Delete(ctx context.Context, callerID, id string) error
	ToggleLike(ctx context.Context, callerID, id string) (*domain.CommentView, error)
}

// TokenIssuer подписывает и проверяет bearer-токены.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (string, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// AuthorSource разворачивает id авторов в публичные проекции.
// Неизвестных id в результате нет.
type AuthorSource interface {
	Authors(ctx context.Context, ids []string) (map[string]domain.Author, error)
	Invalidate(ctx context.Context, userID string)
}

type Deps struct {
	Logger  *zap.Logger
	Store   storage.Storage
	Tokens  TokenIssuer
	Hasher  PasswordHasher
	Authors AuthorSource
}

type Service struct {
	Identity
	Posts
	Comments
}

func New(deps Deps) *Service {
	return &Service{
		Identity: newIdentityService(deps),
		Posts:    newPostService(deps),
		Comments: newCommentService(deps),
	}
}
