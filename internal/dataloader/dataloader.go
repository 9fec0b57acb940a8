package dataloader

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/UkralStul/blog-platform/internal/cache"
	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/graph-gophers/dataloader"
	"go.uber.org/zap"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	AuthorByID *dataloader.Loader
}

// Resolver разворачивает id авторов в публичные проекции.
// Внутри запроса (после Middleware) обращения батчатся и кешируются лоадером,
// вне запроса выполняется прямой батч.
type Resolver struct {
	store   storage.Storage
	authors cache.Authors
	logger  *zap.Logger
}

func NewResolver(store storage.Storage, authors cache.Authors, logger *zap.Logger) *Resolver {
	if authors == nil {
		authors = cache.Noop{}
	}
	return &Resolver{store: store, authors: authors, logger: logger}
}

// Middleware для внедрения лоадеров в контекст запроса.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		// Лоадеры создаются на каждый запрос, чтобы кеш не жил дольше запроса
		loaders := Loaders{
			AuthorByID: dataloader.NewBatchedLoader(r.batchFn, dataloader.WithWait(time.Millisecond*1)),
		}

		ctx := context.WithValue(req.Context(), key, &loaders)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// For извлекает лоадеры из контекста. Возвращает nil вне Middleware.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// Authors возвращает проекции для известных id; неизвестные id в карту не попадают.
func (r *Resolver) Authors(ctx context.Context, ids []string) (map[string]domain.Author, error) {
	keys := uniqueCanonical(ids)
	if len(keys) == 0 {
		return map[string]domain.Author{}, nil
	}

	loaders := For(ctx)
	if loaders == nil {
		return r.load(ctx, keys)
	}

	data, errs := loaders.AuthorByID.LoadMany(ctx, dataloader.NewKeysFromStrings(keys))()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	result := make(map[string]domain.Author, len(keys))
	for i, d := range data {
		if author, ok := d.(domain.Author); ok {
			result[keys[i]] = author
		}
	}
	return result, nil
}

// Invalidate сбрасывает закешированную проекцию после изменения профиля.
func (r *Resolver) Invalidate(ctx context.Context, userID string) {
	id := domain.CanonicalID(userID)
	if loaders := For(ctx); loaders != nil {
		loaders.AuthorByID.Clear(ctx, dataloader.StringKey(id))
	}
	if err := r.authors.Delete(ctx, id); err != nil {
		r.logger.Sugar().Warnf("failed to delete author(%s) from cache: %s", id, err.Error())
	}
}

// batchFn делает ОДИН запрос к кешу и не более одного запроса к хранилищу на батч.
func (r *Resolver) batchFn(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
	ids := keys.Keys()

	authors, err := r.load(ctx, ids)
	if err != nil {
		// В случае ошибки, возвращаем ее для всех ключей
		results := make([]*dataloader.Result, len(keys))
		for i := range results {
			results[i] = &dataloader.Result{Error: err}
		}
		return results
	}

	// Формируем результат в том же порядке, что и ключи
	results := make([]*dataloader.Result, len(keys))
	for i, id := range ids {
		if author, ok := authors[id]; ok {
			results[i] = &dataloader.Result{Data: author}
		} else {
			results[i] = &dataloader.Result{}
		}
	}
	return results
}

func (r *Resolver) load(ctx context.Context, ids []string) (map[string]domain.Author, error) {
	result, err := r.authors.GetMany(ctx, ids)
	if err != nil {
		r.logger.Sugar().Warnf("failed to get authors from cache: %s", err.Error())
		result = map[string]domain.Author{}
	}

	missing := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := result[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	users, err := r.store.GetUsersByIDs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("failed to load authors: %w", err)
	}

	fresh := make(map[string]domain.Author, len(users))
	for _, u := range users {
		author := domain.AuthorOf(u)
		bio := u.Bio
		author.Bio = &bio
		fresh[domain.CanonicalID(u.ID)] = author
		result[domain.CanonicalID(u.ID)] = author
	}
	if err := r.authors.SetMany(ctx, fresh); err != nil {
		r.logger.Sugar().Warnf("failed to set authors in cache: %s", err.Error())
	}
	return result, nil
}

func uniqueCanonical(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		c := domain.CanonicalID(id)
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
