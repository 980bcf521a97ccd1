package models

import "time"

// Santri represents a student enrolled in the tahfidz program.
type Santri struct {
	ID         string    `db:"id" json:"id"`
	NIS        string    `db:"nis" json:"nis"`
	FullName   string    `db:"full_name" json:"full_name"`
	Gender     string    `db:"gender" json:"gender"`
	BirthDate  time.Time `db:"birth_date" json:"birth_date"`
	Address    string    `db:"address" json:"address"`
	Phone      string    `db:"phone" json:"phone"`
	WaliUserID *string   `db:"wali_user_id" json:"wali_user_id,omitempty"`
	HalaqahID  *string   `db:"halaqah_id" json:"halaqah_id,omitempty"`
	EnrolledAt time.Time `db:"enrolled_at" json:"enrolled_at"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// SantriFilter encapsulates allowed search parameters for listing santri.
type SantriFilter struct {
	Search     string
	HalaqahID  string
	WaliUserID string
	Active     *bool
	Page       int
	PageSize   int
}

// SantriDetail contains santri information with halaqah context.
type SantriDetail struct {
	Santri
	HalaqahName *string `db:"halaqah_name" json:"halaqah_name,omitempty"`
	MusyrifName *string `db:"musyrif_name" json:"musyrif_name,omitempty"`
	WaliName    *string `db:"wali_name" json:"wali_name,omitempty"`
}
