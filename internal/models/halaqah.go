package models

import "time"

// Halaqah represents a teaching circle supervised by a musyrif.
type Halaqah struct {
	ID            string    `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	MusyrifUserID string    `db:"musyrif_user_id" json:"musyrif_user_id"`
	Capacity      int       `db:"capacity" json:"capacity"`
	Schedule      string    `db:"schedule" json:"schedule"`
	Room          string    `db:"room" json:"room"`
	Active        bool      `db:"active" json:"active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// HalaqahFilter captures list query parameters.
type HalaqahFilter struct {
	Search        string
	MusyrifUserID string
	Active        *bool
	Page          int
	PageSize      int
}

// HalaqahDetail extends a halaqah with roster information.
type HalaqahDetail struct {
	Halaqah
	MusyrifName *string `db:"musyrif_name" json:"musyrif_name,omitempty"`
	SantriCount int     `db:"santri_count" json:"santri_count"`
}
