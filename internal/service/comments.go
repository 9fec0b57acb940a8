package service

import (
	"context"
	"errors"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"go.uber.org/zap"
)

type commentService struct {
	logger *zap.Logger
	store  storage.Storage
	projector
}

func newCommentService(deps Deps) Comments {
	return &commentService{
		logger:    deps.Logger,
		store:     deps.Store,
		projector: projector{logger: deps.Logger, authors: deps.Authors},
	}
}

func (s *commentService) Create(ctx context.Context, callerID string, input CreateCommentInput) (*domain.CommentView, error) {
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}
	postID, err := requireID(input.PostID, "post")
	if err != nil {
		return nil, err
	}

	comment, err := s.store.CreateComment(ctx, &domain.Comment{
		PostID:   postID,
		AuthorID: domain.CanonicalID(callerID),
		Content:  input.Content,
	})
	if err != nil {
		// поста, к которому пишут комментарий, нет
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
		s.logger.Sugar().Errorf("failed to create comment on post(%s): %s", postID, err.Error())
		return nil, domain.ErrInternal
	}
	return s.commentView(ctx, comment)
}

func (s *commentService) ListForPost(ctx context.Context, postID string) ([]*domain.CommentView, error) {
	postID, err := requireID(postID, "post")
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetPostByID(ctx, postID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, domain.ErrPostNotFound
		}
		s.logger.Sugar().Errorf("failed to get post(%s): %s", postID, err.Error())
		return nil, domain.ErrInternal
	}

	comments, err := s.store.ListCommentsByPost(ctx, postID)
	if err != nil {
		s.logger.Sugar().Errorf("failed to list comments of post(%s): %s", postID, err.Error())
		return nil, domain.ErrInternal
	}
	return s.commentViews(ctx, comments)
}

func (s *commentService) Update(ctx context.Context, callerID, id string, input UpdateCommentInput) (*domain.CommentView, error) {
	id, err := requireID(id, "comment")
	if err != nil {
		return nil, err
	}
	input.normalize()
	if err := validateInput(input); err != nil {
		return nil, err
	}

	comment, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := AuthorizeMutation(callerID, comment.AuthorID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateComment(ctx, id, input.Content)
	if err != nil {
		return nil, s.storeError(err, "update", id)
	}
	return s.commentView(ctx, updated)
}

func (s *commentService) Delete(ctx context.Context, callerID, id string) error {
	id, err := requireID(id, "comment")
	if err != nil {
		return err
	}
	comment, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := AuthorizeMutation(callerID, comment.AuthorID); err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, id); err != nil {
		return s.storeError(err, "delete", id)
	}
	return nil
}

func (s *commentService) ToggleLike(ctx context.Context, callerID, id string) (*domain.CommentView, error) {
	id, err := requireID(id, "comment")
	if err != nil {
		return nil, err
	}
	comment, err := s.store.ToggleCommentLike(ctx, id, callerID)
	if err != nil {
		return nil, s.storeError(err, "toggle like on", id)
	}
	return s.commentView(ctx, comment)
}

func (s *commentService) find(ctx context.Context, id string) (*domain.Comment, error) {
	comment, err := s.store.GetCommentByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "get", id)
	}
	return comment, nil
}

func (s *commentService) storeError(err error, op, id string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return domain.ErrCommentNotFound
	}
	s.logger.Sugar().Errorf("failed to %s comment(%s): %s", op, id, err.Error())
	return domain.ErrInternal
}
