package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/UkralStul/blog-platform/internal/storage"
	"github.com/google/uuid"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	usersCollection    = "users"
	postsCollection    = "posts"
	commentsCollection = "comments"
)

var _ storage.Storage = (*Store)(nil)

// Store реализует интерфейс Storage поверх MongoDB.
// Идентификаторы документов - строковые uuid, как и в остальных хранилищах.
type Store struct {
	client   *mongo.Client
	users    *mongo.Collection
	posts    *mongo.Collection
	comments *mongo.Collection
	now      func() time.Time
}

// New подключается к MongoDB и создает индексы.
func New(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:   client,
		users:    db.Collection(usersCollection),
		posts:    db.Collection(postsCollection),
		comments: db.Collection(commentsCollection),
		// Mongo хранит время с точностью до миллисекунд
		now: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	_, err = s.posts.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "author_id", Value: 1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create post indexes: %w", err)
	}
	_, err = s.comments.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "post_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create comment indexes: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// translate приводит ошибки драйвера к ошибкам пакета storage.
func translate(err error, what string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w", what, storage.ErrDuplicate)
	}
	return err
}

var returnAfter = options.FindOneAndUpdate().SetReturnDocument(options.After)

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	u := *user
	u.ID = uuid.NewString()
	u.CreatedAt = s.now()
	u.UpdatedAt = u.CreatedAt
	if _, err := s.users.InsertOne(ctx, &u); err != nil {
		return nil, translate(err, "user "+user.Username)
	}
	return &u, nil
}

func (s *Store) findUser(ctx context.Context, filter bson.M, what string) (*domain.User, error) {
	var u domain.User
	if err := s.users.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err, what)
	}
	return &u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"_id": domain.CanonicalID(id)}, "user with id "+id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"email": email}, "user with email "+email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, bson.M{"username": username}, "user "+username)
}

func (s *Store) FindUserByEmailOrUsername(ctx context.Context, email, username string) (*domain.User, error) {
	filter := bson.M{"$or": bson.A{bson.M{"email": email}, bson.M{"username": username}}}
	return s.findUser(ctx, filter, "user")
}

func (s *Store) UpdateUserProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	set := bson.M{"updated_at": s.now()}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.ProfilePicture != nil {
		set["profile_picture"] = *upd.ProfilePicture
	}

	var u domain.User
	err := s.users.FindOneAndUpdate(ctx, bson.M{"_id": domain.CanonicalID(id)}, bson.M{"$set": set}, returnAfter).Decode(&u)
	if err != nil {
		return nil, translate(err, "user with id "+id)
	}
	return &u, nil
}

// === Dataloader Method ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	keys := make(bson.A, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, domain.CanonicalID(id))
	}
	result := make(map[string]*domain.User, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	var users []*domain.User
	if err := cur.All(ctx, &users); err != nil {
		return nil, err
	}
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	p := *post
	p.ID = uuid.NewString()
	p.AuthorID = domain.CanonicalID(post.AuthorID)
	p.Tags = nonNil(post.Tags)
	p.Likes = nonNil(post.Likes)
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	if _, err := s.posts.InsertOne(ctx, &p); err != nil {
		return nil, translate(err, "post")
	}
	return &p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var p domain.Post
	if err := s.posts.FindOne(ctx, bson.M{"_id": domain.CanonicalID(id)}).Decode(&p); err != nil {
		return nil, translate(err, "post with id "+id)
	}
	return &p, nil
}

func (s *Store) ListPosts(ctx context.Context, filter storage.PostFilter, args storage.PageArgs) ([]*domain.Post, int64, error) {
	query := bson.M{}
	if filter.AuthorID != "" {
		query["author_id"] = domain.CanonicalID(filter.AuthorID)
	}
	if filter.Tag != "" {
		// для массива равенство означает "содержит элемент"
		query["tags"] = filter.Tag
	}

	total, err := s.posts.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, err
	}
	// страница за пределами выборки: сервер не принимает skip вне int64
	if int64(args.Offset) >= total {
		return []*domain.Post{}, total, nil
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(args.Offset)).
		SetLimit(int64(args.Limit))
	cur, err := s.posts.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, err
	}
	posts := make([]*domain.Post, 0, args.Limit)
	if err := cur.All(ctx, &posts); err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Store) UpdatePost(ctx context.Context, id string, upd domain.PostUpdate) (*domain.Post, error) {
	set := bson.M{"updated_at": s.now()}
	if upd.Title != nil {
		set["title"] = *upd.Title
	}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Tags != nil {
		set["tags"] = nonNil(*upd.Tags)
	}
	if upd.Image != nil {
		set["image"] = *upd.Image
	}

	var p domain.Post
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": domain.CanonicalID(id)}, bson.M{"$set": set}, returnAfter).Decode(&p)
	if err != nil {
		return nil, translate(err, "post with id "+id)
	}
	return &p, nil
}

// DeletePost удаляет пост, затем его комментарии.
// Без транзакции: при сбое между шагами остаются комментарии, которые никто не прочитает,
// так как листинг комментариев требует существующий пост.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	key := domain.CanonicalID(id)
	res, err := s.posts.DeleteOne(ctx, bson.M{"_id": key})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("post with id %s: %w", id, storage.ErrNotFound)
	}
	if _, err := s.comments.DeleteMany(ctx, bson.M{"post_id": key}); err != nil {
		return fmt.Errorf("failed to delete comments of post %s: %w", id, err)
	}
	return nil
}

// toggleUpdate строит pipeline-обновление, которое переключает member в likes
// на стороне сервера за одну операцию над документом.
func toggleUpdate(member string, now time.Time) mongo.Pipeline {
	likes := bson.D{{Key: "$ifNull", Value: bson.A{"$likes", bson.A{}}}}
	literal := bson.D{{Key: "$literal", Value: member}}
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "likes", Value: bson.D{{Key: "$cond", Value: bson.D{
				{Key: "if", Value: bson.D{{Key: "$in", Value: bson.A{literal, likes}}}},
				{Key: "then", Value: bson.D{{Key: "$filter", Value: bson.D{
					{Key: "input", Value: likes},
					{Key: "as", Value: "l"},
					{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$l", literal}}}},
				}}}},
				{Key: "else", Value: bson.D{{Key: "$concatArrays", Value: bson.A{likes, bson.A{literal}}}}},
			}}}},
			{Key: "updated_at", Value: now},
		}}},
	}
}

func (s *Store) TogglePostLike(ctx context.Context, postID, userID string) (*domain.Post, error) {
	var p domain.Post
	update := toggleUpdate(domain.CanonicalID(userID), s.now())
	err := s.posts.FindOneAndUpdate(ctx, bson.M{"_id": domain.CanonicalID(postID)}, update, returnAfter).Decode(&p)
	if err != nil {
		return nil, translate(err, "post with id "+postID)
	}
	return &p, nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	postKey := domain.CanonicalID(comment.PostID)
	n, err := s.posts.CountDocuments(ctx, bson.M{"_id": postKey}, options.Count().SetLimit(1))
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("post with id %s: %w", comment.PostID, storage.ErrNotFound)
	}

	c := *comment
	c.ID = uuid.NewString()
	c.PostID = postKey
	c.AuthorID = domain.CanonicalID(comment.AuthorID)
	c.Likes = nonNil(comment.Likes)
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	if _, err := s.comments.InsertOne(ctx, &c); err != nil {
		return nil, translate(err, "comment")
	}
	return &c, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := s.comments.FindOne(ctx, bson.M{"_id": domain.CanonicalID(id)}).Decode(&c); err != nil {
		return nil, translate(err, "comment with id "+id)
	}
	return &c, nil
}

func (s *Store) ListCommentsByPost(ctx context.Context, postID string) ([]*domain.Comment, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.comments.Find(ctx, bson.M{"post_id": domain.CanonicalID(postID)}, opts)
	if err != nil {
		return nil, err
	}
	comments := []*domain.Comment{}
	if err := cur.All(ctx, &comments); err != nil {
		return nil, err
	}
	return comments, nil
}

func (s *Store) UpdateComment(ctx context.Context, id, content string) (*domain.Comment, error) {
	var c domain.Comment
	update := bson.M{"$set": bson.M{"content": content, "updated_at": s.now()}}
	err := s.comments.FindOneAndUpdate(ctx, bson.M{"_id": domain.CanonicalID(id)}, update, returnAfter).Decode(&c)
	if err != nil {
		return nil, translate(err, "comment with id "+id)
	}
	return &c, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	res, err := s.comments.DeleteOne(ctx, bson.M{"_id": domain.CanonicalID(id)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("comment with id %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) ToggleCommentLike(ctx context.Context, commentID, userID string) (*domain.Comment, error) {
	var c domain.Comment
	update := toggleUpdate(domain.CanonicalID(userID), s.now())
	err := s.comments.FindOneAndUpdate(ctx, bson.M{"_id": domain.CanonicalID(commentID)}, update, returnAfter).Decode(&c)
	if err != nil {
		return nil, translate(err, "comment with id "+commentID)
	}
	return &c, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
