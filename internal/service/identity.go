package service

import (
	"context"
	"errors"

	"github.com/UkralStul/blog-platform/internal/auth"
	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"go.uber.org/zap"
)

type AuthResult struct {
	Token string          `json:"token"`
	User  *domain.Profile `json:"user"`
}

type identityService struct {
	logger  *zap.Logger
	store   storage.Storage
	tokens  TokenIssuer
	hasher  PasswordHasher
	authors AuthorSource
}

func newIdentityService(deps Deps) Identity {
	return &identityService{
		logger:  deps.Logger,
		store:   deps.Store,
		tokens:  deps.Tokens,
		hasher:  deps.Hasher,
		authors: deps.Authors,
	}
}

func (s *identityService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	// Один запрос на оба поля: совпадение любого из них - конфликт
	existing, err := s.store.FindUserByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Sugar().Errorf("failed to find user(email: %s or username: %s): %s", input.Email, input.Username, err.Error())
		return nil, domain.ErrInternal
	}
	if existing != nil {
		return nil, domain.ErrUserAlreadyExists
	}

	passwordHash, err := s.hasher.Hash(input.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		return nil, domain.NewValidationError(domain.FieldError{Field: "password", Message: "must be at most 72 bytes"})
	}
	if err != nil {
		s.logger.Sugar().Errorf("failed to generate password hash: %s", err.Error())
		return nil, domain.ErrInternal
	}

	newUser := domain.User{
		Username:       input.Username,
		Email:          input.Email,
		PasswordHash:   passwordHash,
		ProfilePicture: domain.DefaultProfilePicture,
	}
	if input.Bio != nil {
		newUser.Bio = *input.Bio
	}

	created, err := s.store.CreateUser(ctx, &newUser)
	if err != nil {
		// параллельная регистрация успела занять уникальный индекс
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, domain.ErrUserAlreadyExists
		}
		s.logger.Sugar().Errorf("failed to create user(%s): %s", input.Username, err.Error())
		return nil, domain.ErrInternal
	}

	return s.issue(created)
}

func (s *identityService) Authenticate(ctx context.Context, input LoginInput) (*AuthResult, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		s.logger.Sugar().Errorf("failed to get user(email: %s): %s", input.Email, err.Error())
		return nil, domain.ErrInternal
	}

	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *identityService) issue(user *domain.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Sugar().Errorf("failed to issue token for user(%s): %s", user.ID, err.Error())
		return nil, domain.ErrInternal
	}
	return &AuthResult{Token: token, User: domain.OwnProfile(user)}, nil
}

func (s *identityService) ResolveToken(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.tokens.Verify(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		// токен валиден, но аккаунта уже нет
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Sugar().Errorf("failed to get user(%s): %s", userID, err.Error())
		return nil, domain.ErrInternal
	}
	return user, nil
}

func (s *identityService) Me(ctx context.Context, callerID string) (*domain.Profile, error) {
	user, err := s.findByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return domain.OwnProfile(user), nil
}

func (s *identityService) UpdateProfile(ctx context.Context, callerID string, input UpdateProfileInput) (*domain.Profile, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	user, err := s.store.UpdateUserProfile(ctx, callerID, domain.ProfileUpdate{
		Bio:            input.Bio,
		ProfilePicture: input.ProfilePicture,
	})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Sugar().Errorf("failed to update profile of user(%s): %s", callerID, err.Error())
		return nil, domain.ErrInternal
	}

	s.authors.Invalidate(ctx, user.ID)
	return domain.OwnProfile(user), nil
}

func (s *identityService) GetProfile(ctx context.Context, username string) (*domain.Profile, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Sugar().Errorf("failed to get user(%s): %s", username, err.Error())
		return nil, domain.ErrInternal
	}
	return domain.PublicProfile(user), nil
}

func (s *identityService) findByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Sugar().Errorf("failed to get user(%s): %s", id, err.Error())
		return nil, domain.ErrInternal
	}
	return user, nil
}
