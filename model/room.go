// Package model defines the immutable public value types handed to
// application code. Values are always derived from store state and never
// mutated in place.
package model

import (
	"reflect"
	"slices"
	"time"
)

// User is a chat user.
type User struct {
	Identifier string         `json:"id" yaml:"id"`
	Name       string         `json:"name,omitempty" yaml:"name,omitempty"`
	AvatarURL  string         `json:"avatar_url,omitempty" yaml:"avatar_url,omitempty"`
	CustomData map[string]any `json:"custom_data,omitempty" yaml:"custom_data,omitempty"`
	CreatedAt  time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at" yaml:"updated_at"`
}

// Equal compares identifier and every salient field.
func (u User) Equal(other User) bool {
	return u.Identifier == other.Identifier &&
		u.Name == other.Name &&
		u.AvatarURL == other.AvatarURL &&
		u.CreatedAt.Equal(other.CreatedAt) &&
		u.UpdatedAt.Equal(other.UpdatedAt) &&
		customDataEqual(u.CustomData, other.CustomData)
}

// Room is a joined room.
type Room struct {
	Identifier            string `json:"id" yaml:"id"`
	Name                  string `json:"name" yaml:"name"`
	IsPrivate             bool   `json:"private" yaml:"private"`
	PushNotificationTitle string `json:"push_notification_title_override,omitempty" yaml:"push_notification_title_override,omitempty"`
	CreatorIdentifier     string `json:"created_by_id" yaml:"created_by_id"`
	// Creator is nil until the creator's record is known.
	Creator           *User          `json:"creator,omitempty" yaml:"creator,omitempty"`
	MemberIdentifiers []string       `json:"member_ids,omitempty" yaml:"member_ids,omitempty"`
	UnreadCount       int            `json:"unread_count" yaml:"unread_count"`
	LastMessageAt     *time.Time     `json:"last_message_at,omitempty" yaml:"last_message_at,omitempty"`
	CustomData        map[string]any `json:"custom_data,omitempty" yaml:"custom_data,omitempty"`
	CreatedAt         time.Time      `json:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at" yaml:"updated_at"`
	DeletedAt         *time.Time     `json:"deleted_at,omitempty" yaml:"deleted_at,omitempty"`
}

// Equal compares identifier and every salient field.
func (r Room) Equal(other Room) bool {
	return r.Identifier == other.Identifier &&
		r.Name == other.Name &&
		r.IsPrivate == other.IsPrivate &&
		r.PushNotificationTitle == other.PushNotificationTitle &&
		r.CreatorIdentifier == other.CreatorIdentifier &&
		userPtrEqual(r.Creator, other.Creator) &&
		slices.Equal(r.MemberIdentifiers, other.MemberIdentifiers) &&
		r.UnreadCount == other.UnreadCount &&
		timePtrEqual(r.LastMessageAt, other.LastMessageAt) &&
		r.CreatedAt.Equal(other.CreatedAt) &&
		r.UpdatedAt.Equal(other.UpdatedAt) &&
		timePtrEqual(r.DeletedAt, other.DeletedAt) &&
		customDataEqual(r.CustomData, other.CustomData)
}

// RoomsEqual compares two room lists element by element.
func RoomsEqual(a, b []Room) bool {
	return slices.EqualFunc(a, b, Room.Equal)
}

func userPtrEqual(a, b *User) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func customDataEqual(a, b map[string]any) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}
