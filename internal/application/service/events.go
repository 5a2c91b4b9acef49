package service

import (
	"context"
	"time"
)

type ProfileEventType string

const (
	ProfileEventCreated         ProfileEventType = "profile.created"
	ProfileEventUpdated         ProfileEventType = "profile.updated"
	ProfileEventDeleted         ProfileEventType = "profile.deleted"
	ProfileEventPictureUploaded ProfileEventType = "profile.picture_uploaded"
	ProfileEventPictureDeleted  ProfileEventType = "profile.picture_deleted"
	// ProfileEventBlobOrphaned asks the worker to delete a blob no row references.
	ProfileEventBlobOrphaned ProfileEventType = "profile.blob_orphaned"
)

type ProfileEvent struct {
	EventType  ProfileEventType `json:"event_type"`
	ProfileID  int64            `json:"profile_id"`
	BlobKey    string           `json:"blob_key,omitempty"`
	OccurredAt time.Time        `json:"occurred_at"`
}

type EventPublisher interface {
	PublishProfileEvent(ctx context.Context, evt ProfileEvent) error
}

type nopPublisher struct{}

func NewNopPublisher() EventPublisher { return nopPublisher{} }

func (nopPublisher) PublishProfileEvent(context.Context, ProfileEvent) error { return nil }
