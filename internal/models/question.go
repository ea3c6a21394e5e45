package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxQuestionLength bounds question text.
	MaxQuestionLength = 500
	// MaxAnswerLength bounds answer text.
	MaxAnswerLength = 1000
)

// Question is an audience question in a session. Likes are not deduplicated per author.
type Question struct {
	ID         uuid.UUID `json:"id"`
	SessionID  uuid.UUID `json:"sessionId"`
	Text       string    `json:"question"`
	UserID     string    `json:"-"`
	UserName   string    `json:"userName"`
	Likes      int       `json:"likes"`
	IsAnswered bool      `json:"isAnswered"`
	Answer     *string   `json:"answer,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
	UpdatedAt  time.Time `json:"-"`
}
