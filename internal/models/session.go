package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a showcase session.
type SessionStatus string

const (
	SessionScheduled SessionStatus = "scheduled"
	SessionLive      SessionStatus = "live"
	SessionEnded     SessionStatus = "ended"
)

// Session is a live product showcase with its aggregate stats.
type Session struct {
	ID                 uuid.UUID     `json:"id"`
	Title              string        `json:"title"`
	Description        string        `json:"description"`
	HostName           string        `json:"hostName"`
	Status             SessionStatus `json:"status"`
	ProductIDs         []uuid.UUID   `json:"products"`
	HighlightedProduct *uuid.UUID    `json:"highlightedProduct"`
	ViewerCount        int           `json:"viewerCount"`
	PeakViewers        int           `json:"peakViewers"`
	TotalReactions     int           `json:"totalReactions"`
	TotalQuestions     int           `json:"totalQuestions"`
	StartTime          time.Time     `json:"startTime"`
	EndTime            *time.Time    `json:"endTime,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
}

// IsLive reports whether the session currently accepts viewers and audience events.
func (s *Session) IsLive() bool {
	return s.Status == SessionLive
}

// HasProduct reports whether productID is part of the session's product list.
func (s *Session) HasProduct(productID uuid.UUID) bool {
	for _, id := range s.ProductIDs {
		if id == productID {
			return true
		}
	}
	return false
}

// ObserveViewers records the current viewer count. Peak never decreases.
func (s *Session) ObserveViewers(count int) {
	s.ViewerCount = count
	if count > s.PeakViewers {
		s.PeakViewers = count
	}
}

// Clone returns a deep copy so callers can hand snapshots out without sharing slices.
func (s *Session) Clone() *Session {
	c := *s
	c.ProductIDs = append([]uuid.UUID(nil), s.ProductIDs...)
	if s.HighlightedProduct != nil {
		p := *s.HighlightedProduct
		c.HighlightedProduct = &p
	}
	if s.EndTime != nil {
		t := *s.EndTime
		c.EndTime = &t
	}
	return &c
}

// SessionStatusChange is the control-plane signal emitted when a session starts or ends.
type SessionStatusChange struct {
	SessionID uuid.UUID     `json:"sessionId"`
	Title     string        `json:"title"`
	Status    SessionStatus `json:"status"`
}
