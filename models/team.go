package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Team member roles.
const (
	RoleOwner  = "owner"
	RoleMember = "member"
)

// Team is a bounded-capacity group with one owner. CurrentMembers mirrors
// the number of TeamMember rows and must only be changed in the same
// transaction that changes membership.
type Team struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string     `gorm:"not null" json:"name"`
	Location       string     `json:"location"`
	Game           string     `json:"game"`
	MaxMembers     int        `gorm:"not null" json:"maxMembers"`
	CurrentMembers int        `gorm:"default:0" json:"currentMembers"`
	OwnerID        string     `gorm:"type:uuid;index;not null" json:"ownerId"`
	MeetingTimes   []string   `gorm:"serializer:json" json:"meetingTimes"`
	Description    string     `json:"description,omitempty"`
	LastActivity   *time.Time `json:"lastActivity,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Relations
	Members []TeamMember `gorm:"foreignKey:TeamID" json:"-"`

	// Wire shape: member id -> role, built from Members via Materialize.
	MemberRoles map[string]string `gorm:"-" json:"members"`
}

func (t *Team) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// Materialize fills the wire-level member map from the loaded rows.
func (t *Team) Materialize() {
	t.MemberRoles = make(map[string]string, len(t.Members))
	for _, m := range t.Members {
		t.MemberRoles[m.UserID] = m.Role
	}
}

// HasMember reports whether userID holds any role in the team. Valid only
// after Members has been preloaded.
func (t *Team) HasMember(userID string) bool {
	for _, m := range t.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// AtCapacity reports whether no further member can be approved.
func (t *Team) AtCapacity() bool {
	return t.CurrentMembers >= t.MaxMembers
}

// TeamMember links a user to a team with a role. The unique index makes a
// double join impossible at the storage level; the same rows back both the
// team's member map and the user's team set, so the two can never drift.
type TeamMember struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	TeamID    string    `gorm:"type:uuid;uniqueIndex:idx_team_user;not null" json:"team_id"`
	UserID    string    `gorm:"type:uuid;uniqueIndex:idx_team_user;index;not null" json:"user_id"`
	Role      string    `gorm:"default:'member'" json:"role"`
	CreatedAt time.Time `json:"created_at"`

	// Relations
	Team Team `json:"-"`
	User User `json:"-"`
}
