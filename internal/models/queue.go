package models

import (
	"time"
)

// QueuedContent is one scheduled copy of a content item bound to a single
// destination and platform. It lives in the posting queue until dispatched.
type QueuedContent struct {
	ID              uint        `gorm:"primaryKey" json:"id"`
	ContentID       string      `gorm:"uniqueIndex;not null;size:255" json:"content_id"`
	ContentType     string      `gorm:"size:50;index" json:"content_type"`
	DestinationID   string      `gorm:"not null;size:255;index" json:"destination_id"`
	DestinationName string      `gorm:"size:255" json:"destination_name"`
	Platform        string      `gorm:"not null;size:50;index" json:"platform"`
	Body            string      `gorm:"type:text" json:"body"`
	Hashtags        StringArray `gorm:"type:text[]" json:"hashtags"`
	Link            string      `gorm:"size:1000" json:"link"`
	MediaPath       string      `gorm:"size:1000" json:"media_path,omitempty"`
	AltText         string      `gorm:"size:1000" json:"alt_text,omitempty"`

	SourceID string `gorm:"size:255;index" json:"source_id"`
	Category string `gorm:"size:255" json:"category"`

	ScheduledAt time.Time `gorm:"not null;index" json:"scheduled_at"`
	Priority    int       `gorm:"default:5" json:"priority"`

	IsDuplicate      bool   `gorm:"default:false" json:"is_duplicate"`
	DuplicateGroupID string `gorm:"size:255;index" json:"duplicate_group_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PostingHistoryRecord is the append-only audit entry written when a queued
// copy is successfully dispatched. Never mutated after creation.
type PostingHistoryRecord struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	ContentID       string    `gorm:"not null;size:255;index" json:"content_id"`
	ContentType     string    `gorm:"size:50" json:"content_type"`
	SourceID        string    `gorm:"size:255;index" json:"source_id"`
	DestinationID   string    `gorm:"size:255;index" json:"destination_id"`
	DestinationName string    `gorm:"size:255" json:"destination_name"`
	Platform        string    `gorm:"size:50;index" json:"platform"`
	PostID          string    `gorm:"size:255" json:"post_id"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	PostedAt        time.Time `gorm:"not null;index" json:"posted_at"`

	IsDuplicate      bool   `gorm:"default:false" json:"is_duplicate"`
	DuplicateGroupID string `gorm:"size:255" json:"duplicate_group_id,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
