package realtime

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/validator"
)

// Inbound event names (client -> server).
const (
	EventJoinSession      = "join:session"
	EventLeaveSession     = "leave:session"
	EventAdminJoin        = "admin:join"
	EventAdminLeave       = "admin:leave"
	EventSendReaction     = "reaction:send"
	EventSendQuestion     = "question:send"
	EventLikeQuestion     = "question:like"
	EventAnswerQuestion   = "question:answer"
	EventHighlightProduct = "product:highlight"
)

// Outbound event names (server -> client).
const (
	EventSessionJoined      = "session:joined"
	EventViewersUpdate      = "viewers:update"
	EventReactionNew        = "reaction:new"
	EventQuestionNew        = "question:new"
	EventQuestionSent       = "question:sent"
	EventQuestionLiked      = "question:liked"
	EventQuestionAnswered   = "question:answered"
	EventProductHighlighted = "product:highlighted"
	EventSessionStarted     = "session:started"
	EventSessionEnded       = "session:ended"
	EventError              = "error"
)

// DefaultUserName is used when a viewer does not provide a display name.
const DefaultUserName = "Anonymous"

// InboundEvent is one of the closed set of actions a connection can send.
type InboundEvent interface {
	EventName() string
	// AdminOnly reports whether the action requires an admin connection.
	AdminOnly() bool
}

// JoinSession asks to be counted as a viewer of a live session.
type JoinSession struct {
	SessionID uuid.UUID
	UserName  string
}

// LeaveSession stops viewing a session.
type LeaveSession struct {
	SessionID uuid.UUID
}

// AdminJoin subscribes an admin control panel to a session.
type AdminJoin struct {
	SessionID uuid.UUID
}

// AdminLeave unsubscribes an admin control panel.
type AdminLeave struct {
	SessionID uuid.UUID
}

// SendReaction publishes a reaction to a live session.
type SendReaction struct {
	SessionID uuid.UUID
	Type      models.ReactionType
	UserName  string
}

// SendQuestion asks a question in a live session.
type SendQuestion struct {
	SessionID uuid.UUID
	Text      string
	UserName  string
}

// LikeQuestion adds one like to a question.
type LikeQuestion struct {
	QuestionID uuid.UUID
}

// AnswerQuestion stores the admin's answer to a question.
type AnswerQuestion struct {
	QuestionID uuid.UUID
	Answer     string
}

// HighlightProduct sets or clears (nil) the featured product of a session.
type HighlightProduct struct {
	SessionID uuid.UUID
	ProductID *uuid.UUID
}

func (JoinSession) EventName() string      { return EventJoinSession }
func (LeaveSession) EventName() string     { return EventLeaveSession }
func (AdminJoin) EventName() string        { return EventAdminJoin }
func (AdminLeave) EventName() string       { return EventAdminLeave }
func (SendReaction) EventName() string     { return EventSendReaction }
func (SendQuestion) EventName() string     { return EventSendQuestion }
func (LikeQuestion) EventName() string     { return EventLikeQuestion }
func (AnswerQuestion) EventName() string   { return EventAnswerQuestion }
func (HighlightProduct) EventName() string { return EventHighlightProduct }

func (JoinSession) AdminOnly() bool      { return false }
func (LeaveSession) AdminOnly() bool     { return false }
func (AdminJoin) AdminOnly() bool        { return true }
func (AdminLeave) AdminOnly() bool       { return true }
func (SendReaction) AdminOnly() bool     { return false }
func (SendQuestion) AdminOnly() bool     { return false }
func (LikeQuestion) AdminOnly() bool     { return false }
func (AnswerQuestion) AdminOnly() bool   { return true }
func (HighlightProduct) AdminOnly() bool { return true }

// wire payloads, validated before conversion to typed events

type sessionPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
}

type joinPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	UserName  string `json:"userName" validate:"max=100"`
}

type reactionPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Type      string `json:"type" validate:"required"`
	UserName  string `json:"userName" validate:"max=100"`
}

type questionPayload struct {
	SessionID string `json:"sessionId" validate:"required,uuid"`
	Question  string `json:"question" validate:"required,max=500"`
	UserName  string `json:"userName" validate:"max=100"`
}

type questionRefPayload struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
}

type answerPayload struct {
	QuestionID string `json:"questionId" validate:"required,uuid"`
	Answer     string `json:"answer" validate:"required,max=1000"`
}

type highlightPayload struct {
	SessionID string  `json:"sessionId" validate:"required,uuid"`
	ProductID *string `json:"productId"`
}

// Decoder turns raw websocket messages into typed inbound events.
type Decoder struct {
	validate *validator.Validator
}

// NewDecoder creates a decoder backed by the given validator.
func NewDecoder(v *validator.Validator) *Decoder {
	if v == nil {
		v = validator.New()
	}
	return &Decoder{validate: v}
}

// Decode parses and validates msg. Errors wrap models.ErrUnknownEvent or models.ErrValidation.
func (d *Decoder) Decode(msg WSMessage) (InboundEvent, error) {
	switch msg.Event {
	case EventJoinSession:
		var p joinPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		return JoinSession{SessionID: uuid.MustParse(p.SessionID), UserName: displayName(p.UserName)}, nil
	case EventLeaveSession, EventAdminJoin, EventAdminLeave:
		var p sessionPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		id := uuid.MustParse(p.SessionID)
		switch msg.Event {
		case EventLeaveSession:
			return LeaveSession{SessionID: id}, nil
		case EventAdminJoin:
			return AdminJoin{SessionID: id}, nil
		default:
			return AdminLeave{SessionID: id}, nil
		}
	case EventSendReaction:
		var p reactionPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		t := models.ReactionType(p.Type)
		if !t.Valid() {
			return nil, fmt.Errorf("%w: unknown reaction type %q", models.ErrValidation, p.Type)
		}
		return SendReaction{SessionID: uuid.MustParse(p.SessionID), Type: t, UserName: displayName(p.UserName)}, nil
	case EventSendQuestion:
		var p questionPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		return SendQuestion{SessionID: uuid.MustParse(p.SessionID), Text: p.Question, UserName: displayName(p.UserName)}, nil
	case EventLikeQuestion:
		var p questionRefPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		return LikeQuestion{QuestionID: uuid.MustParse(p.QuestionID)}, nil
	case EventAnswerQuestion:
		var p answerPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		return AnswerQuestion{QuestionID: uuid.MustParse(p.QuestionID), Answer: p.Answer}, nil
	case EventHighlightProduct:
		var p highlightPayload
		if err := d.bind(msg, &p); err != nil {
			return nil, err
		}
		ev := HighlightProduct{SessionID: uuid.MustParse(p.SessionID)}
		if p.ProductID != nil && *p.ProductID != "" {
			pid, err := uuid.Parse(*p.ProductID)
			if err != nil {
				return nil, fmt.Errorf("%w: productId must be a valid uuid", models.ErrValidation)
			}
			ev.ProductID = &pid
		}
		return ev, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEvent, msg.Event)
	}
}

// bind unmarshals the payload, normalizes string fields the caller cares about and validates.
func (d *Decoder) bind(msg WSMessage, dst interface{}) error {
	if len(msg.Data) == 0 {
		return fmt.Errorf("%w: missing payload", models.ErrValidation)
	}
	if err := json.Unmarshal(msg.Data, dst); err != nil {
		return fmt.Errorf("%w: malformed payload", models.ErrValidation)
	}
	normalizeFields(dst)
	if errs := d.validate.ValidateStruct(dst); len(errs) > 0 {
		return fmt.Errorf("%w: %s", models.ErrValidation, validator.Join(errs))
	}
	return nil
}

// normalizeFields trims free text and lowercases ids, since the uuid rule
// only matches the lowercase form.
func normalizeFields(dst interface{}) {
	switch p := dst.(type) {
	case *sessionPayload:
		p.SessionID = normalizeID(p.SessionID)
	case *questionPayload:
		p.SessionID = normalizeID(p.SessionID)
		p.Question = strings.TrimSpace(p.Question)
		p.UserName = strings.TrimSpace(p.UserName)
	case *questionRefPayload:
		p.QuestionID = normalizeID(p.QuestionID)
	case *answerPayload:
		p.QuestionID = normalizeID(p.QuestionID)
		p.Answer = strings.TrimSpace(p.Answer)
	case *joinPayload:
		p.SessionID = normalizeID(p.SessionID)
		p.UserName = strings.TrimSpace(p.UserName)
	case *reactionPayload:
		p.SessionID = normalizeID(p.SessionID)
		p.UserName = strings.TrimSpace(p.UserName)
	case *highlightPayload:
		p.SessionID = normalizeID(p.SessionID)
	}
}

func normalizeID(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func displayName(s string) string {
	if s == "" {
		return DefaultUserName
	}
	return s
}

// Outbound payloads.

// SessionJoinedPayload is sent to the joining connection only.
type SessionJoinedPayload struct {
	SessionID   uuid.UUID       `json:"sessionId"`
	Session     *models.Session `json:"session"`
	ViewerCount int             `json:"viewerCount"`
}

// ViewersUpdatePayload carries the live viewer count and the session peak.
type ViewersUpdatePayload struct {
	Count       int `json:"count"`
	PeakViewers int `json:"peakViewers"`
}

// ReactionPayload is broadcast for each persisted reaction.
type ReactionPayload struct {
	ID        uuid.UUID           `json:"id"`
	Type      models.ReactionType `json:"type"`
	UserName  string              `json:"userName"`
	Timestamp time.Time           `json:"timestamp"`
}

// QuestionSentPayload acknowledges a question to its author.
type QuestionSentPayload struct {
	Success bool      `json:"success"`
	ID      uuid.UUID `json:"id"`
}

// QuestionLikedPayload carries the updated like count.
type QuestionLikedPayload struct {
	ID    uuid.UUID `json:"id"`
	Likes int       `json:"likes"`
}

// ProductHighlightedPayload carries the highlighted product or null when cleared.
type ProductHighlightedPayload struct {
	ProductID *uuid.UUID `json:"productId"`
}

// ErrorPayload reports a failed action to its originator.
type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

// NewErrorPayload builds the error event body for err.
// Storage and internal failures are reported without their underlying cause.
func NewErrorPayload(err error) ErrorPayload {
	code := models.ErrorCode(err)
	switch code {
	case "PersistenceFailed":
		return ErrorPayload{Message: models.ErrPersistence.Error(), Code: code}
	case "Internal":
		return ErrorPayload{Message: "internal error", Code: code}
	}
	return ErrorPayload{Message: err.Error(), Code: code}
}
