package models

import (
	"strings"
	"time"
)

// Socials holds the optional social handles shown on a profile card.
type Socials struct {
	Discord string `json:"discord"`
	Twitter string `json:"twitter"`
	Steam   string `json:"steam"`
}

// Profile is the user-editable record describing an identity. Its primary
// key equals the owning user's ID; it is created lazily on first save, so a
// registered user may have no profile row yet.
type Profile struct {
	ID           string  `gorm:"type:uuid;primaryKey" json:"id"`
	Email        string  `gorm:"not null" json:"email"`
	Name         string  `json:"name"`
	Location     string  `json:"location"`
	FavoriteGame string  `json:"favoriteGame"`
	Avatar       string  `json:"avatar"`
	Socials      Socials `gorm:"serializer:json" json:"socials"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Team ids the user belongs to, resolved from team_members rows.
	// Not a column; the membership table is the single source of truth.
	TeamIDs []string `gorm:"-" json:"teams"`
}

// Complete reports whether onboarding is finished: name, location and
// favorite game must all be non-empty after trimming.
func (p *Profile) Complete() bool {
	return strings.TrimSpace(p.Name) != "" &&
		strings.TrimSpace(p.Location) != "" &&
		strings.TrimSpace(p.FavoriteGame) != ""
}
