package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToggleMember_DoubleToggleRestoresSet(t *testing.T) {
	a, b, c := uuid.NewString(), uuid.NewString(), uuid.NewString()
	sets := [][]string{
		{},
		{a},
		{a, b},
		{b, a, c},
	}

	for _, likes := range sets {
		for _, u := range []string{a, b, c, uuid.NewString()} {
			once := ToggleMember(likes, u)
			twice := ToggleMember(once, u)

			// членство то же, остальные сохраняют относительный порядок
			assert.ElementsMatch(t, likes, twice, "toggle twice for %s over %v", u, likes)
			assert.Equal(t, without(likes, u), without(twice, u), "order of others for %s over %v", u, likes)
		}
	}
}

func without(likes []string, id string) []string {
	out := []string{}
	for _, l := range likes {
		if l != id {
			out = append(out, l)
		}
	}
	return out
}

func TestToggleMember_DoesNotMutateInput(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()
	likes := []string{a, b}

	_ = ToggleMember(likes, a)
	_ = ToggleMember(likes, uuid.NewString())

	assert.Equal(t, []string{a, b}, likes)
}

func TestToggleMember_RemovesEveryOccurrence(t *testing.T) {
	a, b := uuid.NewString(), uuid.NewString()

	out := ToggleMember([]string{a, b, a}, a)

	assert.Equal(t, []string{b}, out)
}

func TestToggleMember_MatchesCanonicalForm(t *testing.T) {
	id := uuid.NewString()
	upper := "  " + strings.ToUpper(id) + " "

	out := ToggleMember([]string{id}, upper)
	assert.Empty(t, out)

	out = ToggleMember(nil, upper)
	assert.Equal(t, []string{id}, out)
}

func TestToggleMember_SerializedScenario(t *testing.T) {
	alice, bob := uuid.NewString(), uuid.NewString()

	likes := ToggleMember(nil, alice)
	assert.Equal(t, []string{alice}, likes)
	likes = ToggleMember(likes, bob)
	assert.Equal(t, []string{alice, bob}, likes)
	likes = ToggleMember(likes, alice)
	assert.Equal(t, []string{bob}, likes)
}

func TestSameID(t *testing.T) {
	id := uuid.New()

	assert.True(t, SameID(id.String(), strings.ToUpper(id.String())))
	assert.True(t, SameID("{"+id.String()+"}", id.String()))
	assert.True(t, SameID("ABCdef", "abcDEF"))
	assert.False(t, SameID(id.String(), uuid.NewString()))
	assert.False(t, SameID("", ""))
}

func TestNewPageInfo(t *testing.T) {
	cases := []struct {
		total int64
		limit int
		pages int64
	}{
		{0, 10, 0},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{101, 50, 3},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("%d/%d", tc.total, tc.limit), func(t *testing.T) {
			info := NewPageInfo(tc.total, PageQuery{Page: 2, Limit: tc.limit})
			assert.Equal(t, tc.pages, info.Pages)
			assert.Equal(t, tc.total, info.Total)
			assert.Equal(t, 2, info.Page)
		})
	}
}

func TestPageQuery_Offset(t *testing.T) {
	assert.Equal(t, 0, PageQuery{Page: 1, Limit: 10}.Offset())
	assert.Equal(t, 20, PageQuery{Page: 3, Limit: 10}.Offset())
	assert.Equal(t, math.MaxInt, PageQuery{Page: math.MaxInt, Limit: 10}.Offset())
	assert.Equal(t, math.MaxInt, PageQuery{Page: math.MaxInt / 2, Limit: MaxPageLimit}.Offset())
	assert.Equal(t, 0, PageQuery{Page: 0, Limit: 10}.Offset())
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("loading: %w", ErrPostNotFound)

	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.True(t, IsNotFound(wrapped))
	assert.True(t, errors.Is(wrapped, ErrPostNotFound))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
}

func TestValidationError_ListsEveryField(t *testing.T) {
	err := NewValidationError(
		FieldError{Field: "title", Message: "is required"},
		FieldError{Field: "content", Message: "must be at least 10 characters"},
	)

	require.True(t, IsValidationError(err))
	assert.Contains(t, err.Error(), "title: is required")
	assert.Contains(t, err.Error(), "content: must be at least 10 characters")
}

func TestProfiles_HideSecrets(t *testing.T) {
	u := &User{ID: "1", Username: "alice", Email: "a@x.com", PasswordHash: "hash"}

	assert.Empty(t, PublicProfile(u).Email)
	assert.Equal(t, "a@x.com", OwnProfile(u).Email)
	assert.Equal(t, Author{ID: "1", Username: "alice"}, AuthorOf(u))
}
