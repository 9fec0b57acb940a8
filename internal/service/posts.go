package service

import (
	"context"
	"errors"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"go.uber.org/zap"
)

type postService struct {
	logger *zap.Logger
	store  storage.Storage
	projector
}

func newPostService(deps Deps) Posts {
	return &postService{
		logger:    deps.Logger,
		store:     deps.Store,
		projector: projector{logger: deps.Logger, authors: deps.Authors},
	}
}

func (s *postService) Create(ctx context.Context, callerID string, input CreatePostInput) (*domain.PostView, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	post, err := s.store.CreatePost(ctx, &domain.Post{
		Title:    input.Title,
		Content:  input.Content,
		AuthorID: domain.CanonicalID(callerID),
		Tags:     input.Tags,
		Image:    input.Image,
	})
	if err != nil {
		s.logger.Sugar().Errorf("failed to create post for user(%s): %s", callerID, err.Error())
		return nil, domain.ErrInternal
	}
	return s.postView(ctx, post, false)
}

func (s *postService) Get(ctx context.Context, id string) (*domain.PostView, error) {
	id, err := requireID(id, "post")
	if err != nil {
		return nil, err
	}
	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.postView(ctx, post, true)
}

func (s *postService) Update(ctx context.Context, callerID, id string, input UpdatePostInput) (*domain.PostView, error) {
	id, err := requireID(id, "post")
	if err != nil {
		return nil, err
	}
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	post, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(callerID, post.AuthorID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdatePost(ctx, id, domain.PostUpdate{
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
		Image:   input.Image,
	})
	if err != nil {
		return nil, s.storeError(err, "update", id)
	}
	return s.postView(ctx, updated, false)
}

func (s *postService) Delete(ctx context.Context, callerID, id string) error {
	id, err := requireID(id, "post")
	if err != nil {
		return err
	}
	post, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(callerID, post.AuthorID); err != nil {
		return err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return s.storeError(err, "delete", id)
	}
	return nil
}

func (s *postService) ToggleLike(ctx context.Context, callerID, id string) (*domain.PostView, error) {
	id, err := requireID(id, "post")
	if err != nil {
		return nil, err
	}
	post, err := s.store.TogglePostLike(ctx, id, callerID)
	if err != nil {
		return nil, s.storeError(err, "toggle like on", id)
	}
	return s.postView(ctx, post, false)
}

func (s *postService) List(ctx context.Context, query domain.PageQuery) ([]*domain.PostView, domain.PageInfo, error) {
	return s.list(ctx, storage.PostFilter{Tag: query.Tag}, query)
}

func (s *postService) ListByUser(ctx context.Context, username string, query domain.PageQuery) ([]*domain.PostView, domain.PageInfo, error) {
	user, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.PageInfo{}, domain.ErrUserNotFound
		}
		s.logger.Sugar().Errorf("failed to get user(%s): %s", username, err.Error())
		return nil, domain.PageInfo{}, domain.ErrInternal
	}
	return s.list(ctx, storage.PostFilter{AuthorID: user.ID}, query)
}

func (s *postService) list(ctx context.Context, filter storage.PostFilter, query domain.PageQuery) ([]*domain.PostView, domain.PageInfo, error) {
	posts, total, err := s.store.ListPosts(ctx, filter, storage.PageArgs{Offset: query.Offset(), Limit: query.Limit})
	if err != nil {
		s.logger.Sugar().Errorf("failed to list posts(tag: %q, author: %q): %s", filter.Tag, filter.AuthorID, err.Error())
		return nil, domain.PageInfo{}, domain.ErrInternal
	}
	views, err := s.postViews(ctx, posts, false)
	if err != nil {
		return nil, domain.PageInfo{}, err
	}
	return views, domain.NewPageInfo(total, query), nil
}

func (s *postService) find(ctx context.Context, id string) (*domain.Post, error) {
	post, err := s.store.GetPostByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "get", id)
	}
	return post, nil
}

func (s *postService) storeError(err error, op, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.ErrPostNotFound
	}
	s.logger.Sugar().Errorf("failed to %s post(%s): %s", op, id, err.Error())
	return domain.ErrInternal
}
