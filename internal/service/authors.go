package service

import (
	"context"

	"github.com/UkralStul/blog-platform/internal/domain"
	"go.uber.org/zap"
)

// projector подставляет авторов в посты и комментарии.
type projector struct {
	logger  *zap.Logger
	authors AuthorSource
}

func (p projector) lookup(ctx context.Context, ids []string) (map[string]domain.Author, error) {
	authors, err := p.authors.Authors(ctx, ids)
	if err != nil {
		p.logger.Sugar().Errorf("failed to resolve authors: %s", err.Error())
		return nil, domain.ErrInternal
	}
	return authors, nil
}

// authorFor возвращает пустую проекцию, если аккаунта уже нет.
// Bio остается только при чтении одного поста.
func authorFor(authors map[string]domain.Author, id string, withBio bool) domain.Author {
	a, ok := authors[domain.CanonicalID(id)]
	if !ok {
		return domain.Author{ID: id, ProfilePicture: domain.DefaultProfilePicture}
	}
	if !withBio {
		a.Bio = nil
	}
	return a
}

func (p projector) postViews(ctx context.Context, posts []*domain.Post, withBio bool) ([]*domain.PostView, error) {
	ids := make([]string, len(posts))
	for i, post := range posts {
		ids[i] = post.AuthorID
	}
	authors, err := p.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*domain.PostView, len(posts))
	for i, post := range posts {
		views[i] = domain.NewPostView(post, authorFor(authors, post.AuthorID, withBio))
	}
	return views, nil
}

func (p projector) postView(ctx context.Context, post *domain.Post, withBio bool) (*domain.PostView, error) {
	views, err := p.postViews(ctx, []*domain.Post{post}, withBio)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (p projector) commentViews(ctx context.Context, comments []*domain.Comment) ([]*domain.CommentView, error) {
	ids := make([]string, len(comments))
	for i, c := range comments {
		ids[i] = c.AuthorID
	}
	authors, err := p.lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*domain.CommentView, len(comments))
	for i, c := range comments {
		views[i] = domain.NewCommentView(c, authorFor(authors, c.AuthorID, false))
	}
	return views, nil
}

func (p projector) commentView(ctx context.Context, c *domain.Comment) (*domain.CommentView, error) {
	views, err := p.commentViews(ctx, []*domain.Comment{c})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}
