package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/blog-platform/internal/auth"
	"github.com/UkralStul/blog-platform/internal/dataloader"
	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage/inmemory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type testEnv struct {
	svc    *Service
	tokens *auth.Issuer
}

func tickingClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := inmemory.NewWithClock(tickingClock())
	tokens := auth.NewIssuer("test-secret", time.Hour)
	logger := zap.NewNop()
	svc := New(Deps{
		Logger:  logger,
		Store:   store,
		Tokens:  tokens,
		Hasher:  auth.NewHasher(bcrypt.MinCost),
		Authors: dataloader.NewResolver(store, nil, logger),
	})
	return &testEnv{svc: svc, tokens: tokens}
}

func (e *testEnv) register(t *testing.T, username string) *AuthResult {
	t.Helper()
	res, err := e.svc.Register(context.Background(), RegisterInput{
		Username: username,
		Email:    username + "@x.com",
		Password: "password",
	})
	require.NoError(t, err)
	return res
}

func strPtr(s string) *string { return &s }

func TestPostLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	post, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{
		Title:   "Hi",
		Content: "Hello world!",
		Tags:    []string{"intro"},
	})
	require.NoError(t, err)
	assert.Equal(t, alice.User.ID, post.Author.ID)
	assert.Equal(t, "alice", post.Author.Username)
	assert.Equal(t, []string{"intro"}, post.Tags)

	_, err = env.svc.Posts.Update(ctx, bob.User.ID, post.ID, UpdatePostInput{Title: strPtr("Hacked")})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := env.svc.Posts.Update(ctx, alice.User.ID, post.ID, UpdatePostInput{Title: strPtr("Hi2")})
	require.NoError(t, err)
	assert.Equal(t, "Hi2", updated.Title)
	assert.Equal(t, "Hello world!", updated.Content)

	stored, err := env.svc.Posts.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "Hi2", stored.Title)

	assert.ErrorIs(t, env.svc.Posts.Delete(ctx, bob.User.ID, post.ID), domain.ErrForbidden)
	require.NoError(t, env.svc.Posts.Delete(ctx, alice.User.ID, post.ID))

	_, err = env.svc.Posts.Get(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestPostLikes_SerializedToggles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	post, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{Title: "P", Content: "some content here"})
	require.NoError(t, err)
	assert.Empty(t, post.Likes)

	p, err := env.svc.Posts.ToggleLike(ctx, alice.User.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.User.ID}, p.Likes)

	p, err = env.svc.Posts.ToggleLike(ctx, bob.User.ID, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.User.ID, bob.User.ID}, p.Likes)

	// тот же id в другой записи считается тем же участником
	p, err = env.svc.Posts.ToggleLike(ctx, strings.ToUpper(alice.User.ID), post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bob.User.ID}, p.Likes)

	_, err = env.svc.Posts.ToggleLike(ctx, bob.User.ID, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
}

func TestRegister_Duplicate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice")

	_, err := env.svc.Register(ctx, RegisterInput{Username: "alice2", Email: "a@x.com", Password: "password"})
	require.NoError(t, err)

	_, err = env.svc.Register(ctx, RegisterInput{Username: "other", Email: "A@X.com ", Password: "password"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	_, err = env.svc.Register(ctx, RegisterInput{Username: " alice ", Email: "new@x.com", Password: "password"})
	assert.ErrorIs(t, err, domain.ErrUserAlreadyExists)
}

func TestRegister_Profile(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "  carol ",
		Email:    "Carol@X.com",
		Password: "password",
		Bio:      strPtr(" hi "),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "carol", res.User.Username)
	assert.Equal(t, "carol@x.com", res.User.Email)
	assert.Equal(t, "hi", res.User.Bio)
	assert.Equal(t, domain.DefaultProfilePicture, res.User.ProfilePicture)
}

func TestRegister_ReportsEveryInvalidField(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Register(context.Background(), RegisterInput{
		Username: "al",
		Email:    "not-an-email",
		Password: "123",
		Bio:      strPtr(strings.Repeat("b", 201)),
	})
	require.True(t, domain.IsValidationError(err))

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	fields := map[string]string{}
	for _, f := range derr.Fields {
		fields[f.Field] = f.Message
	}
	assert.Equal(t, map[string]string{
		"username": "must be at least 3 characters",
		"email":    "must be a valid email",
		"password": "must be at least 6 characters",
		"bio":      "must be at most 200 characters",
	}, fields)
}

func TestRegister_PasswordLengthLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name, password, message string
	}{
		{"too many characters", strings.Repeat("p", 73), "must be at most 72 characters"},
		// 40 символов, но 80 байт
		{"too many bytes", strings.Repeat("ж", 40), "must be at most 72 bytes"},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.svc.Register(ctx, RegisterInput{
				Username: fmt.Sprintf("user%d", i),
				Email:    fmt.Sprintf("user%d@x.com", i),
				Password: tc.password,
			})
			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.Equal(t, domain.KindValidation, derr.Kind)
			assert.Equal(t, []domain.FieldError{{Field: "password", Message: tc.message}}, derr.Fields)
		})
	}

	res, err := env.svc.Register(ctx, RegisterInput{
		Username: "longpass",
		Email:    "longpass@x.com",
		Password: strings.Repeat("p", 72),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	res, err := env.svc.Authenticate(ctx, LoginInput{Email: "ALICE@x.com", Password: "password"})
	require.NoError(t, err)
	assert.Equal(t, alice.User.ID, res.User.ID)

	_, wrongPassword := env.svc.Authenticate(ctx, LoginInput{Email: "alice@x.com", Password: "nope"})
	_, unknownEmail := env.svc.Authenticate(ctx, LoginInput{Email: "ghost@x.com", Password: "password"})
	assert.ErrorIs(t, wrongPassword, domain.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, domain.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())

	_, err = env.svc.Authenticate(ctx, LoginInput{})
	assert.True(t, domain.IsValidationError(err))
}

func TestResolveToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	user, err := env.svc.ResolveToken(ctx, alice.Token)
	require.NoError(t, err)
	assert.Equal(t, alice.User.ID, user.ID)

	_, err = env.svc.ResolveToken(ctx, "")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	_, err = env.svc.ResolveToken(ctx, alice.Token+"x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	other, err := auth.NewIssuer("other-secret", time.Hour).Issue(alice.User.ID)
	require.NoError(t, err)
	_, err = env.svc.ResolveToken(ctx, other)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// корректный токен несуществующего аккаунта
	ghost, err := env.tokens.Issue(uuid.NewString())
	require.NoError(t, err)
	_, err = env.svc.ResolveToken(ctx, ghost)
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestProfiles(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	me, err := env.svc.Me(ctx, alice.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", me.Email)

	public, err := env.svc.GetProfile(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, public.Email)

	_, err = env.svc.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	updated, err := env.svc.UpdateProfile(ctx, alice.User.ID, UpdateProfileInput{Bio: strPtr("new bio")})
	require.NoError(t, err)
	assert.Equal(t, "new bio", updated.Bio)
	assert.Equal(t, domain.DefaultProfilePicture, updated.ProfilePicture)

	post, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{Title: "T", Content: "long enough content"})
	require.NoError(t, err)
	got, err := env.svc.Posts.Get(ctx, post.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Author.Bio)
	assert.Equal(t, "new bio", *got.Author.Bio)
	assert.Nil(t, post.Author.Bio)
}

func TestAuthorizeMutation_Exclusive(t *testing.T) {
	author := uuid.NewString()

	assert.NoError(t, AuthorizeMutation(author, author))
	assert.NoError(t, AuthorizeMutation(strings.ToUpper(author), author))
	assert.NoError(t, AuthorizeMutation(" "+author+" ", author))

	for _, caller := range []string{uuid.NewString(), "", "someone"} {
		assert.ErrorIs(t, AuthorizeMutation(caller, author), domain.ErrForbidden)
	}
	assert.ErrorIs(t, AuthorizeMutation("", ""), domain.ErrForbidden)
}

func TestListPosts_PagesCoverTotal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")

	for i := 0; i < 23; i++ {
		tags := []string{"all"}
		if i%3 == 0 {
			tags = append(tags, "third")
		}
		_, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{
			Title:   fmt.Sprintf("post %d", i),
			Content: "content of the post",
			Tags:    tags,
		})
		require.NoError(t, err)
	}

	for _, tag := range []string{"", "all", "third", "none"} {
		for _, limit := range []int{1, 5, 10, 50} {
			t.Run(fmt.Sprintf("%s/%d", tag, limit), func(t *testing.T) {
				first, info, err := env.svc.Posts.List(ctx, domain.PageQuery{Page: 1, Limit: limit, Tag: tag})
				require.NoError(t, err)
				assert.Equal(t, (info.Total+int64(limit)-1)/int64(limit), info.Pages)

				seen := map[string]bool{}
				count := len(first)
				for _, p := range first {
					seen[p.ID] = true
				}
				for page := 2; int64(page) <= info.Pages; page++ {
					items, _, err := env.svc.Posts.List(ctx, domain.PageQuery{Page: page, Limit: limit, Tag: tag})
					require.NoError(t, err)
					count += len(items)
					for _, p := range items {
						assert.False(t, seen[p.ID], "post %s on two pages", p.ID)
						seen[p.ID] = true
					}
				}
				assert.EqualValues(t, info.Total, count)

				beyond, _, err := env.svc.Posts.List(ctx, domain.PageQuery{Page: int(info.Pages) + 1, Limit: limit, Tag: tag})
				require.NoError(t, err)
				assert.Empty(t, beyond)
			})
		}
	}

	_, info, err := env.svc.Posts.List(ctx, domain.PageQuery{Page: 1, Limit: 10, Tag: "third"})
	require.NoError(t, err)
	assert.EqualValues(t, 8, info.Total)
}

func TestListByUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	for _, caller := range []string{alice.User.ID, bob.User.ID, alice.User.ID} {
		_, err := env.svc.Posts.Create(ctx, caller, CreatePostInput{Title: "t", Content: "content here"})
		require.NoError(t, err)
	}

	items, info, err := env.svc.Posts.ListByUser(ctx, "alice", domain.PageQuery{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 2, info.Total)
	for _, p := range items {
		assert.Equal(t, "alice", p.Author.Username)
	}

	_, _, err = env.svc.Posts.ListByUser(ctx, "ghost", domain.PageQuery{Page: 1, Limit: 10})
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestCreatePost_Validation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice")

	_, err := env.svc.Posts.Create(context.Background(), alice.User.ID, CreatePostInput{
		Title:   "   ",
		Content: "short",
	})
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.KindValidation, derr.Kind)
	assert.Len(t, derr.Fields, 2)

	post, err := env.svc.Posts.Create(context.Background(), alice.User.ID, CreatePostInput{
		Title:   "  Tags ",
		Content: "content here",
		Tags:    []string{" go ", "", "  ", "web"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tags", post.Title)
	assert.Equal(t, []string{"go", "web"}, post.Tags)

	_, err = env.svc.Posts.Update(context.Background(), alice.User.ID, post.ID, UpdatePostInput{Title: strPtr(" ")})
	assert.True(t, domain.IsValidationError(err))
}

func TestInvalidIDIsValidationError(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Posts.Get(ctx, "not-an-id")
	assert.True(t, domain.IsValidationError(err))
	assert.Contains(t, err.Error(), "invalid post ID")

	_, err = env.svc.Comments.ToggleLike(ctx, uuid.NewString(), "42")
	assert.True(t, domain.IsValidationError(err))
}

func TestComments(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	post, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{Title: "P", Content: "content here"})
	require.NoError(t, err)

	_, err = env.svc.Comments.Create(ctx, bob.User.ID, CreateCommentInput{PostID: uuid.NewString(), Content: "lost"})
	assert.ErrorIs(t, err, domain.ErrPostNotFound)

	_, err = env.svc.Comments.Create(ctx, bob.User.ID, CreateCommentInput{PostID: post.ID, Content: "   "})
	assert.True(t, domain.IsValidationError(err))

	first, err := env.svc.Comments.Create(ctx, bob.User.ID, CreateCommentInput{PostID: post.ID, Content: " first "})
	require.NoError(t, err)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "bob", first.Author.Username)
	assert.Equal(t, post.ID, first.PostID)

	second, err := env.svc.Comments.Create(ctx, alice.User.ID, CreateCommentInput{PostID: post.ID, Content: "second"})
	require.NoError(t, err)

	list, err := env.svc.Comments.ListForPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	_, err = env.svc.Comments.Update(ctx, alice.User.ID, first.ID, UpdateCommentInput{Content: "edited"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	edited, err := env.svc.Comments.Update(ctx, bob.User.ID, first.ID, UpdateCommentInput{Content: "edited"})
	require.NoError(t, err)
	assert.Equal(t, "edited", edited.Content)

	liked, err := env.svc.Comments.ToggleLike(ctx, alice.User.ID, first.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{alice.User.ID}, liked.Likes)

	assert.ErrorIs(t, env.svc.Comments.Delete(ctx, alice.User.ID, first.ID), domain.ErrForbidden)
	require.NoError(t, env.svc.Comments.Delete(ctx, bob.User.ID, first.ID))
	assert.ErrorIs(t, env.svc.Comments.Delete(ctx, bob.User.ID, first.ID), domain.ErrCommentNotFound)

	// удаление поста удаляет и его комментарии
	require.NoError(t, env.svc.Posts.Delete(ctx, alice.User.ID, post.ID))
	_, err = env.svc.Comments.ListForPost(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrPostNotFound)
	_, err = env.svc.Comments.ToggleLike(ctx, alice.User.ID, second.ID)
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)
}

func TestParsePageQuery(t *testing.T) {
	cases := []struct {
		page, limit string
		want        domain.PageQuery
	}{
		{"", "", domain.PageQuery{Page: 1, Limit: 10}},
		{"abc", "x", domain.PageQuery{Page: 1, Limit: 10}},
		{"3", "20", domain.PageQuery{Page: 3, Limit: 20}},
		{"2", "500", domain.PageQuery{Page: 2, Limit: domain.MaxPageLimit}},
	}
	for _, tc := range cases {
		got, err := ParsePageQuery(tc.page, tc.limit, "")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
	}

	got, err := ParsePageQuery("1", "5", " Go ")
	require.NoError(t, err)
	assert.Equal(t, " Go ", got.Tag)

	_, err = ParsePageQuery("0", "-1", "")
	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Len(t, derr.Fields, 2)
}

func TestListPosts_PageBeyondRangeIsEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.register(t, "alice")
	_, err := env.svc.Posts.Create(ctx, alice.User.ID, CreatePostInput{Title: "T", Content: "long enough content", Tags: []string{"go"}})
	require.NoError(t, err)

	for _, page := range []string{"2", "1000000", fmt.Sprint(math.MaxInt)} {
		query, err := ParsePageQuery(page, "10", "")
		require.NoError(t, err)

		posts, info, err := env.svc.Posts.List(ctx, query)
		require.NoError(t, err, "page %s", page)
		assert.Empty(t, posts, "page %s", page)
		assert.EqualValues(t, 1, info.Total)
		assert.Equal(t, query.Page, info.Page)
	}

	// тег сравнивается точно
	for _, tag := range []string{" go", "Go"} {
		posts, info, err := env.svc.Posts.List(ctx, domain.PageQuery{Page: 1, Limit: 10, Tag: tag})
		require.NoError(t, err)
		assert.Empty(t, posts, "tag %q", tag)
		assert.Zero(t, info.Total)
	}
}
