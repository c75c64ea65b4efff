package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Join request lifecycle. Pending is the only state that may transition;
// approved and rejected are terminal.
const (
	JoinRequestPending  = "pending"
	JoinRequestApproved = "approved"
	JoinRequestRejected = "rejected"
)

// JoinRequest is a pending ask by a user to become a member of a team.
type JoinRequest struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	TeamID    string    `gorm:"type:uuid;index;not null" json:"teamId"`
	UserID    string    `gorm:"type:uuid;index;not null" json:"userId"`
	Status    string    `gorm:"default:'pending';not null" json:"status"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (r *JoinRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// PendingRequest is a join request enriched with the requester's profile
// for the owner's review list. Enrichment falls back to "Unknown" and the
// default avatar when the requester's profile is unreadable.
type PendingRequest struct {
	JoinRequest
	UserName     string `json:"userName"`
	UserLocation string `json:"userLocation"`
	UserGame     string `json:"userGame"`
	UserAvatar   string `json:"userAvatar"`
}
