// Package domain defines the persistence models shared by the repository and
// service layers: users and their guardian profiles, dependents with their
// device bindings, the guardian-curated phrase catalog, dispatched messages,
// quota accounting, and notifications. All types are mapped with GORM.
package domain

import (
	"time"

	"gorm.io/gorm"
)

// User roles. Every authenticated identity carries exactly one role, resolved
// once at login instead of probing for profile rows at request time.
const (
	RoleAdmin     = "admin"
	RoleGuardian  = "guardian"
	RoleDependent = "dependent"
)

// User is the authentication identity, keyed by phone number. Guardians get a
// Guardian profile row; admins authenticate with a password instead of OTP.
type User struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string         `json:"name"         gorm:"type:varchar(255)"`
	PhoneNumber string         `json:"phone_number" gorm:"type:varchar(17);not null;uniqueIndex"`
	Role        string         `json:"role"         gorm:"type:varchar(16);not null;check:role IN ('admin','guardian','dependent')"`
	OTP         string         `json:"-"            gorm:"type:varchar(6)"`
	Address     string         `json:"address"      gorm:"type:varchar(255)"`
	IsActive    bool           `json:"is_active"    gorm:"not null;default:true"`
	IsBlocked   bool           `json:"is_blocked"   gorm:"not null;default:false"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// Guardian is the care-coordinating account profile. It owns its dependents,
// its received messages, and exactly one quota record.
type Guardian struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;uniqueIndex"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Guardian.
func (Guardian) TableName() string { return "guardians" }

// Dependent is an individual cared for by exactly one guardian. A dependent's
// device is identified by RegistrationID; the column is unique so a physical
// device can belong to at most one dependent at any time.
type Dependent struct {
	ID             string         `json:"id"              gorm:"type:char(36);primaryKey"`
	GuardianID     string         `json:"guardian_id"     gorm:"type:char(36);not null;index"`
	Name           string         `json:"name"            gorm:"type:varchar(255);not null"`
	DisabilityType string         `json:"disability_type" gorm:"type:varchar(20);not null;default:'other';check:disability_type IN ('motor','verbal','cognitive','visual','hearing','other')"`
	ControlMethod  string         `json:"control_method"  gorm:"type:varchar(20);not null;check:control_method IN ('eye','eye_lip')"`
	RegistrationID *string        `json:"registration_id" gorm:"type:varchar(255);uniqueIndex"`
	DateBirth      *time.Time     `json:"date_birth"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-"               gorm:"index"`

	Guardian Guardian `json:"-" gorm:"foreignKey:GuardianID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Dependent.
func (Dependent) TableName() string { return "dependents" }

// Phrase is a pre-approved message template managed by administrators.
// Integer IDs on purpose: the device protocol sends phrase_id as a number.
type Phrase struct {
	ID        uint           `json:"id"        gorm:"primaryKey;autoIncrement"`
	LabelAR   string         `json:"label_ar"  gorm:"type:varchar(100);not null"`
	LabelEN   string         `json:"label_en"  gorm:"type:varchar(100);not null"`
	Active    bool           `json:"active"    gorm:"not null;default:true"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"         gorm:"index"`
}

// TableName returns the database table name for Phrase.
func (Phrase) TableName() string { return "phrases" }

// GuardianPhrase is a guardian's selection of a catalog phrase, making it
// available on the dependent's device. Unique per (guardian, phrase).
type GuardianPhrase struct {
	ID         uint      `json:"id"          gorm:"primaryKey;autoIncrement"`
	GuardianID string    `json:"guardian_id" gorm:"type:char(36);not null;uniqueIndex:ux_guardian_phrase,priority:1"`
	PhraseID   uint      `json:"phrase_id"   gorm:"not null;uniqueIndex:ux_guardian_phrase,priority:2"`
	CreatedAt  time.Time `json:"created_at"`

	Guardian Guardian `json:"-"      gorm:"foreignKey:GuardianID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Phrase   Phrase   `json:"phrase" gorm:"foreignKey:PhraseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for GuardianPhrase.
func (GuardianPhrase) TableName() string { return "guardian_phrases" }
