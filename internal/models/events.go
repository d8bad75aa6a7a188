package models

import "time"

type ProfileEventType string

const (
	ProfileCreated ProfileEventType = "profile.created"
	ProfileUpdated ProfileEventType = "profile.updated"
	ProfileDeleted ProfileEventType = "profile.deleted"
)

type ProfileEvent struct {
	EventType ProfileEventType `json:"event_type"`
	ProfileID string           `json:"profile_id"`
	Email     string           `json:"email,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}
