package model

import (
	"time"

	"gorm.io/gorm"
)

// History is one executed plan entry, kept as an audit log of past runs.
type History struct {
	gorm.Model
	RunID     string      `gorm:"index;not null"`
	Outcome   OutcomeKind `gorm:"not null"`
	Kind      PlanKind    `gorm:"not null"`
	SrcPath   string      `gorm:"not null"`
	DstPath   string      `gorm:"not null"`
	Station   string
	Reason    string
	ErrMsg    string
	Size      int64
	HandledAt time.Time `gorm:"not null"`
}
