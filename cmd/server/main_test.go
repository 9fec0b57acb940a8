package main

import (
	"context"
	"testing"
	"time"

	"github.com/UkralStul/blog-platform/internal/auth"
	"github.com/UkralStul/blog-platform/internal/config"
	"github.com/UkralStul/blog-platform/internal/dataloader"
	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/service"
	"github.com/UkralStul/blog-platform/internal/storage/inmemory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func TestShouldSeed(t *testing.T) {
	inMemory := &config.Config{Storage: config.StorageConfig{Type: config.StorageInMemory}}

	assert.False(t, shouldSeed(false, false, inMemory))
	assert.True(t, shouldSeed(true, false, inMemory))
	assert.True(t, shouldSeed(false, true, inMemory))
	assert.True(t, shouldSeed(false, false, &config.Config{Seed: true}))
}

func TestFillWithMockData(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()
	store := inmemory.New()
	svc := service.New(service.Deps{
		Logger:  logger,
		Store:   store,
		Tokens:  auth.NewIssuer("test-secret", time.Hour),
		Hasher:  auth.NewHasher(bcrypt.MinCost),
		Authors: dataloader.NewResolver(store, nil, logger),
	})

	require.NoError(t, fillWithMockData(ctx, svc, logger))
	// повторный запуск не падает на существующих пользователях
	require.NoError(t, fillWithMockData(ctx, svc, logger))

	posts, info, err := svc.Posts.List(ctx, domain.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.Total)
	assert.Len(t, posts, 2)
}
