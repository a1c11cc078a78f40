package model

import "time"

// Assignment is a named, time-boxed task owned by one PublicUser.
type Assignment struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	UserID             int64     `gorm:"index;not null"`
	Title              string    `gorm:"size:50;not null"`
	MaxDurationSeconds int64     `gorm:"not null"`
	State              string    `gorm:"size:16;not null"`
	CreatedAt          time.Time `gorm:"not null"`
	UpdatedAt          time.Time `gorm:"not null"`

	// Associations
	Statistic AssignmentStatistic `gorm:"foreignKey:AssignmentID;constraint:OnDelete:CASCADE"`
}

// AssignmentStatistic holds the timer bookkeeping of an Assignment (1:1).
type AssignmentStatistic struct {
	ID               int64  `gorm:"primaryKey"`
	AssignmentID     string `gorm:"size:36;uniqueIndex;not null"`
	StartTime        *time.Time
	ElapsedSeconds   float64  `gorm:"not null"` // up to the last pause or completion
	RemainingSeconds *float64 // as of the last pause
	LastPausedTime   *time.Time
	LastResumedTime  *time.Time
	EndTime          *time.Time
	PauseCount       int `gorm:"not null"`
	LapseNotifiedAt  *time.Time
	CreatedAt        time.Time `gorm:"not null"`
	UpdatedAt        time.Time `gorm:"not null"`
}
