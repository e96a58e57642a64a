package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account row. The feed engine only ever sees its ID; the rest of
// the profile exists for the registration and search surface.
type User struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName    string    `gorm:"column:first_name" json:"first_name"`
	SecondName   string    `gorm:"column:second_name" json:"second_name"`
	Birthdate    time.Time `gorm:"column:birthdate" json:"birthdate"`
	Biography    string    `gorm:"column:biography" json:"biography"`
	City         string    `gorm:"column:city" json:"city"`
	PasswordHash string    `gorm:"column:password_hash" json:"-"`
}

// TableName returns the table name for User
func (User) TableName() string {
	return "users"
}

// Post is an authored post. TimeUpdated drives feed ordering; it is bumped on
// every content update, so an updated post re-sorts to the top of follower
// feeds after the invalidation rebuild.
type Post struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Content     string    `gorm:"column:content" json:"content"`
	AuthorID    uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id"`
	TimeCreated time.Time `gorm:"column:time_created" json:"time_created"`
	TimeUpdated time.Time `gorm:"column:time_updated" json:"time_updated"`
}

// TableName returns the table name for Post
func (Post) TableName() string {
	return "posts"
}

// Friend is a directed follow edge: (UserID, FriendID) means UserID follows
// FriendID, and FriendID's posts appear in UserID's feed. At most one edge
// exists per ordered pair.
type Friend struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;column:user_id;uniqueIndex:friends_user_friend_idx" json:"user_id"`
	FriendID uuid.UUID `gorm:"type:uuid;column:friend_id;uniqueIndex:friends_user_friend_idx" json:"friend_id"`
}

// TableName returns the table name for Friend
func (Friend) TableName() string {
	return "friends"
}

// Session is a login session. The bearer token carries the session ID; a
// session row that no longer exists means the token has been revoked.
type Session struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;column:user_id" json:"user_id"`
	TimeCreated time.Time `gorm:"column:time_created" json:"time_created"`
}

// TableName returns the table name for Session
func (Session) TableName() string {
	return "sessions"
}

// AllModels returns a slice of all model types
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Session{},
		&Friend{},
		&Post{},
	}
}
