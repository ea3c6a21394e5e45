package models

import (
	"time"

	"github.com/google/uuid"
)

// ReactionType is one of the fixed reaction kinds a viewer can send.
type ReactionType string

const (
	ReactionLike     ReactionType = "like"
	ReactionLove     ReactionType = "love"
	ReactionFire     ReactionType = "fire"
	ReactionClap     ReactionType = "clap"
	ReactionWow      ReactionType = "wow"
	ReactionLaugh    ReactionType = "laugh"
	ReactionBest     ReactionType = "best"
	ReactionDisagree ReactionType = "disagree"
	ReactionAngry    ReactionType = "angry"
	ReactionCry      ReactionType = "cry"
)

var reactionTypes = map[ReactionType]struct{}{
	ReactionLike: {}, ReactionLove: {}, ReactionFire: {}, ReactionClap: {}, ReactionWow: {},
	ReactionLaugh: {}, ReactionBest: {}, ReactionDisagree: {}, ReactionAngry: {}, ReactionCry: {},
}

// Valid reports whether t is a known reaction kind.
func (t ReactionType) Valid() bool {
	_, ok := reactionTypes[t]
	return ok
}

// Reaction is an append-only audience signal.
type Reaction struct {
	ID        uuid.UUID    `json:"id"`
	SessionID uuid.UUID    `json:"sessionId"`
	Type      ReactionType `json:"type"`
	UserID    string       `json:"-"`
	UserName  string       `json:"userName"`
	CreatedAt time.Time    `json:"timestamp"`
}
