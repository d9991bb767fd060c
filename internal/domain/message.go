package domain

import (
	"time"

	"gorm.io/gorm"
)

// Message is one dispatched device event received by a guardian from one of
// their dependents. Exactly one of {emergency, canned phrase} holds: emergency
// messages never reference a phrase, non-emergency messages always do. The SMS
// and voice delivery flags are mutually exclusive; both are orthogonal to
// quota accounting.
type Message struct {
	ID               string         `json:"id"                 gorm:"type:char(36);primaryKey"`
	GuardianID       string         `json:"guardian_id"        gorm:"type:char(36);not null;index:idx_guardian_msgs,priority:1"`
	DependentID      string         `json:"dependent_id"       gorm:"type:char(36);not null;index"`
	GuardianPhraseID *uint          `json:"guardian_phrase_id" gorm:"index"`
	IsEmergency      bool           `json:"is_emergency"       gorm:"not null;default:false;check:chk_emergency_phrase,(is_emergency AND guardian_phrase_id IS NULL) OR (NOT is_emergency AND guardian_phrase_id IS NOT NULL)"`
	IsSMS            bool           `json:"is_sms"             gorm:"not null;default:false;check:chk_delivery_flags,NOT (is_sms AND is_voice)"`
	IsVoice          bool           `json:"is_voice"           gorm:"not null;default:false"`
	IsSeen           bool           `json:"is_seen"            gorm:"not null;default:false"`
	CreatedAt        time.Time      `json:"created_at"         gorm:"index:idx_guardian_msgs,priority:2"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"-"                  gorm:"index"`

	Guardian       Guardian        `json:"-"      gorm:"foreignKey:GuardianID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Dependent      Dependent       `json:"-"      gorm:"foreignKey:DependentID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	GuardianPhrase *GuardianPhrase `json:"phrase,omitempty" gorm:"foreignKey:GuardianPhraseID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Message.
func (Message) TableName() string { return "messages" }
