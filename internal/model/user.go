package model

import "time"

// PublicUser is an anonymous client identified by an opaque token.
type PublicUser struct {
	ID              int64     `gorm:"primaryKey"`
	Token           string    `gorm:"size:36;uniqueIndex;not null"`
	TokenExpiryTime time.Time `gorm:"index;not null"`
	Timezone        string    `gorm:"size:100;not null"` // IANA name sent by the client
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`

	// Associations
	Assignments   []Assignment       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Subscriptions []PushSubscription `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
