package domain

import "time"

// QuotaConfig is the app-wide monthly message allotment. Several historical
// rows may exist (each admin change can version the config); the active one
// is the row with the highest ID. PendingIncrement queues an "apply next
// cycle" top-up that the next cycle reset consumes and zeroes.
type QuotaConfig struct {
	ID                   uint      `json:"id"                      gorm:"primaryKey;autoIncrement"`
	MaxMessagesPerCycle  int       `json:"max_messages_per_cycle"  gorm:"not null;check:max_messages_per_cycle >= 1"`
	PendingIncrement     int       `json:"pending_increment"       gorm:"not null;default:0;check:pending_increment >= 0"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// TableName returns the database table name for QuotaConfig.
func (QuotaConfig) TableName() string { return "quota_configs" }

// GuardianQuota tracks one guardian's usage within the current cycle against
// the config it was bound to at creation time. ExpiredNotified may be true
// only while MessagesUsed has reached the bound config's maximum; the flag is
// flipped transactionally with the crossing increment so the expiry
// notification fires exactly once.
type GuardianQuota struct {
	ID              uint      `json:"id"               gorm:"primaryKey;autoIncrement"`
	GuardianID      string    `json:"guardian_id"      gorm:"type:char(36);not null;uniqueIndex"`
	ConfigID        uint      `json:"config_id"        gorm:"not null;index"`
	MessagesUsed    int       `json:"messages_used"    gorm:"not null;default:0;check:messages_used >= 0"`
	ExpiredNotified bool      `json:"expired_notified" gorm:"not null;default:false"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Guardian Guardian    `json:"-"      gorm:"foreignKey:GuardianID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Config   QuotaConfig `json:"config" gorm:"foreignKey:ConfigID;references:ID"`
}

// TableName returns the database table name for GuardianQuota.
func (GuardianQuota) TableName() string { return "guardian_quotas" }

// Remaining returns the messages left in the cycle under max, never negative.
func (q GuardianQuota) Remaining(max int) int {
	if r := max - q.MessagesUsed; r > 0 {
		return r
	}
	return 0
}
