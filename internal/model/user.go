package model

import (
	"time"
)

type UserRole string

const (
	Player    UserRole = "player"
	Moderator UserRole = "moderator"
	Admin     UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name     string   `gorm:"size:100;not null" json:"name"`
	Email    string   `gorm:"size:100;unique;not null" json:"email"`
	Password string   `gorm:"size:100;not null" json:"-"`
	Role     UserRole `gorm:"size:20;default:'player'" json:"role"`
	// XP is the spendable balance; TotalXP is lifetime and never decreases.
	XP          int       `gorm:"default:0" json:"xp"`
	TotalXP     int       `gorm:"default:0" json:"totalXp"`
	Level       int       `gorm:"default:1" json:"level"`
	StreakCount int       `gorm:"default:0" json:"streakCount"`
	LastQuestAt time.Time `json:"lastQuestAt"`
	Avatar      string    `gorm:"size:255" json:"avatar"`
	Disabled    bool      `gorm:"default:false" json:"disabled"`
}

func (User) TableName() string {
	return "users"
}
