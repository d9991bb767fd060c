package domain

import (
	"time"

	"gorm.io/gorm"
)

// Notification categories. Emergency is routed with high push priority.
const (
	NotifCategoryNewMessage     = "new_message"
	NotifCategoryEmergency      = "emergency"
	NotifCategoryPackageExpired = "package_expired"
	NotifCategoryPackageRenewed = "package_renewed"
	NotifCategoryOTP            = "otp"
)

// Notification is the durable in-app record of a delivered event. The row is
// always persisted before any push attempt, so the in-app listing remains the
// source of truth even when every device push fails.
type Notification struct {
	ID        string         `json:"id"         gorm:"type:char(36);primaryKey"`
	UserID    string         `json:"user_id"    gorm:"type:char(36);not null;index:idx_user_notifs,priority:1"`
	Title     string         `json:"title"      gorm:"type:varchar(255);not null"`
	Body      string         `json:"body"       gorm:"type:text;not null"`
	Category  string         `json:"category"   gorm:"type:varchar(32);not null;check:category IN ('new_message','emergency','package_expired','package_renewed','otp')"`
	MessageID *string        `json:"message_id" gorm:"type:char(36);index"`
	Read      bool           `json:"read"       gorm:"not null;default:false"`
	CreatedAt time.Time      `json:"created_at" gorm:"index:idx_user_notifs,priority:2"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-"          gorm:"index"`

	User    User     `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	Message *Message `json:"-" gorm:"foreignKey:MessageID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:SET NULL"`
}

// TableName returns the database table name for Notification.
func (Notification) TableName() string { return "notifications" }

// PushDevice is a registered push token for one of a user's devices. Tokens
// are unique per user; re-registering the same token refreshes LastSeenAt.
type PushDevice struct {
	ID         string    `json:"id"           gorm:"type:char(36);primaryKey"`
	UserID     string    `json:"user_id"      gorm:"type:char(36);not null;uniqueIndex:ux_user_token,priority:1"`
	Token      string    `json:"token"        gorm:"type:varchar(512);not null;uniqueIndex:ux_user_token,priority:2"`
	Platform   string    `json:"platform"     gorm:"type:varchar(16);not null;default:'android';check:platform IN ('android','ios','web')"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for PushDevice.
func (PushDevice) TableName() string { return "push_devices" }
