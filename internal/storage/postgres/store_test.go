package postgres

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestUuidOf(t *testing.T) {
	id := uuid.New()

	key, ok := uuidOf(strings.ToUpper(id.String()))
	assert.True(t, ok)
	assert.Equal(t, id.String(), key)

	_, ok = uuidOf("not-a-uuid")
	assert.False(t, ok)
}

func TestTranslate(t *testing.T) {
	assert.ErrorIs(t, translate(gorm.ErrRecordNotFound, "post"), storage.ErrNotFound)
	assert.ErrorIs(t, translate(fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), "user"), storage.ErrDuplicate)
	assert.ErrorIs(t, translate(gorm.ErrForeignKeyViolated, "post"), storage.ErrNotFound)

	boom := errors.New("connection reset")
	assert.Equal(t, boom, translate(boom, "post"))
	assert.NoError(t, translate(nil, "post"))
}

func TestPostRow_ToDomain_NeverNilLikes(t *testing.T) {
	row := postRow{ID: uuid.NewString(), Tags: pq.StringArray{"go"}}

	p := row.toDomain()

	assert.Equal(t, []string{"go"}, p.Tags)
	assert.NotNil(t, p.Likes)
	assert.Empty(t, p.Likes)
}

func TestMigrationsEmbedded(t *testing.T) {
	data, err := migrations.ReadFile("migrations/00001_init.sql")
	assert.NoError(t, err)
	assert.Contains(t, string(data), "-- +goose Up")
	assert.Contains(t, string(data), "ON DELETE CASCADE")
}
