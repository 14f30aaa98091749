package reducer

import (
	"maps"
	"time"

	"github.com/pusher/chatkit-go/state"
	"github.com/pusher/chatkit-go/types"
)

func userState(u types.User) state.UserState {
	if u.ID == "" {
		return state.UserState{}
	}
	return state.UserState{
		Kind:       state.Populated,
		Identifier: u.ID,
		Name:       u.Name,
		AvatarURL:  u.AvatarURL,
		CustomData: maps.Clone(u.CustomData),
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

func roomState(r types.Room, members []string, summary state.ReadSummaryState) state.RoomState {
	var pushTitle string
	if r.PushNotificationTitleOverride != nil {
		pushTitle = *r.PushNotificationTitleOverride
	}
	return state.RoomState{
		Kind:                  state.Populated,
		Identifier:            r.ID,
		Name:                  r.Name,
		IsPrivate:             r.Private,
		PushNotificationTitle: pushTitle,
		CreatorIdentifier:     r.CreatedByID,
		MemberIdentifiers:     sortedMembers(members),
		ReadSummary:           summary,
		CustomData:            maps.Clone(r.CustomData),
		LastMessageAt:         deref(r.LastMessageAt),
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
		DeletedAt:             deref(r.DeletedAt),
	}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
