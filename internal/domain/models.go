package domain

import "time"

// DefaultProfilePicture - аватар пользователя, если свой он не загрузил.
const DefaultProfilePicture = "default-profile.jpg"

// User представляет зарегистрированного пользователя.
// PasswordHash никогда не сериализуется клиенту.
type User struct {
	ID             string    `json:"id" bson:"_id"`
	Username       string    `json:"username" bson:"username"`
	Email          string    `json:"email" bson:"email"`
	PasswordHash   string    `json:"-" bson:"password_hash"`
	Bio            string    `json:"bio,omitempty" bson:"bio,omitempty"`
	ProfilePicture string    `json:"profilePicture" bson:"profile_picture"`
	CreatedAt      time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" bson:"updated_at"`
}

// Post представляет пост в системе. AuthorID задается один раз при создании.
type Post struct {
	ID        string    `json:"id" bson:"_id"`
	Title     string    `json:"title" bson:"title"`
	Content   string    `json:"content" bson:"content"`
	AuthorID  string    `json:"authorId" bson:"author_id"`
	Tags      []string  `json:"tags" bson:"tags"`
	Likes     []string  `json:"likes" bson:"likes"`
	Image     *string   `json:"image,omitempty" bson:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// Comment представляет комментарий к посту.
type Comment struct {
	ID        string    `json:"id" bson:"_id"`
	PostID    string    `json:"postId" bson:"post_id"`
	AuthorID  string    `json:"authorId" bson:"author_id"`
	Content   string    `json:"content" bson:"content"`
	Likes     []string  `json:"likes" bson:"likes"`
	CreatedAt time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updated_at"`
}

// PostUpdate - изменяемые поля поста, nil означает "не менять".
type PostUpdate struct {
	Title   *string
	Content *string
	Tags    *[]string
	Image   *string
}

// ProfileUpdate - изменяемые поля профиля.
type ProfileUpdate struct {
	Bio            *string
	ProfilePicture *string
}

// Author - публичная проекция пользователя для постов и комментариев.
type Author struct {
	ID             string  `json:"id"`
	Username       string  `json:"username"`
	ProfilePicture string  `json:"profilePicture"`
	Bio            *string `json:"bio,omitempty"`
}

// AuthorOf строит проекцию без пароля и email.
func AuthorOf(u *User) Author {
	return Author{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture}
}

// PostView - пост с развернутым автором.
type PostView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    Author    `json:"author"`
	Tags      []string  `json:"tags"`
	Likes     []string  `json:"likes"`
	Image     *string   `json:"image,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewPostView(p *Post, a Author) *PostView {
	return &PostView{
		ID:        p.ID,
		Title:     p.Title,
		Content:   p.Content,
		Author:    a,
		Tags:      nonNil(p.Tags),
		Likes:     nonNil(p.Likes),
		Image:     p.Image,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

// CommentView - комментарий с развернутым автором.
type CommentView struct {
	ID        string    `json:"id"`
	PostID    string    `json:"post"`
	Author    Author    `json:"author"`
	Content   string    `json:"content"`
	Likes     []string  `json:"likes"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func NewCommentView(c *Comment, a Author) *CommentView {
	return &CommentView{
		ID:        c.ID,
		PostID:    c.PostID,
		Author:    a,
		Content:   c.Content,
		Likes:     nonNil(c.Likes),
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// Profile - профиль пользователя. Email заполняется только для владельца.
type Profile struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Email          string    `json:"email,omitempty"`
	Bio            string    `json:"bio"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

func PublicProfile(u *User) *Profile {
	return &Profile{
		ID:             u.ID,
		Username:       u.Username,
		Bio:            u.Bio,
		ProfilePicture: u.ProfilePicture,
		CreatedAt:      u.CreatedAt,
	}
}

func OwnProfile(u *User) *Profile {
	p := PublicProfile(u)
	p.Email = u.Email
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
