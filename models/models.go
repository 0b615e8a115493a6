package models

import (
	"fmt"
	"time"
)

type Position string

const (
	PositionAdmin   Position = "Admin"
	PositionManager Position = "Manager"
	PositionStaff   Position = "Staff"
)

// Positions lists the signup choices in display order. The first entry is
// the default.
var Positions = []Position{PositionAdmin, PositionManager, PositionStaff}

func ParsePosition(s string) (Position, error) {
	if s == "" {
		return Positions[0], nil
	}
	for _, p := range Positions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown position %q", s)
}

// View is the panel currently shown in a window.
type View string

const (
	ViewLogin  View = "login"
	ViewSignup View = "signup"
)

type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Name     string   `json:"name" validate:"required"`
	Email    string   `json:"email" validate:"required"`
	Password string   `json:"password" validate:"required"`
	Position Position `json:"position" validate:"oneof=Admin Manager Staff"`
}

// Identity is who a successful login resolved to. Role is the position shown
// to the user; Admin alone unlocks the account table.
type Identity struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	Admin    bool   `json:"admin"`
}

type Account struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Position     Position  `json:"position"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

const (
	NoticeInfo  = "info"
	NoticeError = "error"
)

// Notice is a modal acknowledgment. Title and Message are i18n keys; Args
// fill the message's format verbs.
type Notice struct {
	Level   string
	Title   string
	Message string
	Args    []string
}
