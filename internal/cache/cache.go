package cache

import (
	"context"

	"github.com/UkralStul/blog-platform/internal/domain"
)

// Authors кеширует публичные проекции авторов по id пользователя.
// Ошибка кеша не ломает запрос: вызывающий логирует ее и идет в хранилище.
type Authors interface {
	// GetMany возвращает найденные записи; отсутствующих id в кеше нет.
	GetMany(ctx context.Context, ids []string) (map[string]domain.Author, error)
	SetMany(ctx context.Context, authors map[string]domain.Author) error
	Delete(ctx context.Context, ids ...string) error
}

// Noop используется, когда адрес redis не задан.
type Noop struct{}

func (Noop) GetMany(context.Context, []string) (map[string]domain.Author, error) {
	return map[string]domain.Author{}, nil
}

func (Noop) SetMany(context.Context, map[string]domain.Author) error { return nil }

func (Noop) Delete(context.Context, ...string) error { return nil }
