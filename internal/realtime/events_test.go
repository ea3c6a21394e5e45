package realtime

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-live/showcase/internal/models"
)

func TestDecoder_Decode(t *testing.T) {
	sid := uuid.New()
	qid := uuid.New()
	pid := uuid.New()
	d := NewDecoder(nil)

	tests := []struct {
		name    string
		event   string
		data    string
		want    InboundEvent
		wantErr error
	}{
		{
			name:  "JoinDefaultsName",
			event: EventJoinSession,
			data:  fmt.Sprintf(`{"sessionId":%q}`, sid),
			want:  JoinSession{SessionID: sid, UserName: DefaultUserName},
		},
		{
			name:  "JoinTrimsName",
			event: EventJoinSession,
			data:  fmt.Sprintf(`{"sessionId":%q,"userName":"  Ana  "}`, sid),
			want:  JoinSession{SessionID: sid, UserName: "Ana"},
		},
		{
			name:    "JoinMissingSession",
			event:   EventJoinSession,
			data:    `{"userName":"Ana"}`,
			wantErr: models.ErrValidation,
		},
		{
			name:    "JoinBadSessionID",
			event:   EventJoinSession,
			data:    `{"sessionId":"not-a-uuid"}`,
			wantErr: models.ErrValidation,
		},
		{
			name:  "JoinUppercaseSessionID",
			event: EventJoinSession,
			data:  fmt.Sprintf(`{"sessionId":%q}`, strings.ToUpper(sid.String())),
			want:  JoinSession{SessionID: sid, UserName: DefaultUserName},
		},
		{
			name:  "LikeUppercaseQuestionID",
			event: EventLikeQuestion,
			data:  fmt.Sprintf(`{"questionId":%q}`, strings.ToUpper(qid.String())),
			want:  LikeQuestion{QuestionID: qid},
		},
		{
			name:  "HighlightUppercaseIDs",
			event: EventHighlightProduct,
			data:  fmt.Sprintf(`{"sessionId":%q,"productId":%q}`, strings.ToUpper(sid.String()), strings.ToUpper(pid.String())),
			want:  HighlightProduct{SessionID: sid, ProductID: &pid},
		},
		{
			name:  "AdminLeave",
			event: EventAdminLeave,
			data:  fmt.Sprintf(`{"sessionId":%q}`, sid),
			want:  AdminLeave{SessionID: sid},
		},
		{
			name:  "Reaction",
			event: EventSendReaction,
			data:  fmt.Sprintf(`{"sessionId":%q,"type":"clap","userName":"Bo"}`, sid),
			want:  SendReaction{SessionID: sid, Type: models.ReactionClap, UserName: "Bo"},
		},
		{
			name:    "ReactionUnknownType",
			event:   EventSendReaction,
			data:    fmt.Sprintf(`{"sessionId":%q,"type":"meh"}`, sid),
			wantErr: models.ErrValidation,
		},
		{
			name:    "QuestionBlank",
			event:   EventSendQuestion,
			data:    fmt.Sprintf(`{"sessionId":%q,"question":"   "}`, sid),
			wantErr: models.ErrValidation,
		},
		{
			name:    "QuestionTooLong",
			event:   EventSendQuestion,
			data:    fmt.Sprintf(`{"sessionId":%q,"question":%q}`, sid, strings.Repeat("x", 501)),
			wantErr: models.ErrValidation,
		},
		{
			name:  "Question",
			event: EventSendQuestion,
			data:  fmt.Sprintf(`{"sessionId":%q,"question":" In stock? "}`, sid),
			want:  SendQuestion{SessionID: sid, Text: "In stock?", UserName: DefaultUserName},
		},
		{
			name:  "Like",
			event: EventLikeQuestion,
			data:  fmt.Sprintf(`{"questionId":%q}`, qid),
			want:  LikeQuestion{QuestionID: qid},
		},
		{
			name:    "AnswerMissing",
			event:   EventAnswerQuestion,
			data:    fmt.Sprintf(`{"questionId":%q}`, qid),
			wantErr: models.ErrValidation,
		},
		{
			name:  "HighlightSet",
			event: EventHighlightProduct,
			data:  fmt.Sprintf(`{"sessionId":%q,"productId":%q}`, sid, pid),
			want:  HighlightProduct{SessionID: sid, ProductID: &pid},
		},
		{
			name:  "HighlightClear",
			event: EventHighlightProduct,
			data:  fmt.Sprintf(`{"sessionId":%q,"productId":null}`, sid),
			want:  HighlightProduct{SessionID: sid},
		},
		{
			name:    "HighlightBadProduct",
			event:   EventHighlightProduct,
			data:    fmt.Sprintf(`{"sessionId":%q,"productId":"x"}`, sid),
			wantErr: models.ErrValidation,
		},
		{
			name:    "MalformedJSON",
			event:   EventLikeQuestion,
			data:    `{"questionId":`,
			wantErr: models.ErrValidation,
		},
		{
			name:    "Unknown",
			event:   "poll:vote",
			data:    `{}`,
			wantErr: models.ErrUnknownEvent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Decode(WSMessage{Event: tt.event, Data: []byte(tt.data)})
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecoder_MissingPayload(t *testing.T) {
	_, err := NewDecoder(nil).Decode(WSMessage{Event: EventLeaveSession})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestAdminOnly(t *testing.T) {
	assert.True(t, AdminJoin{}.AdminOnly())
	assert.True(t, AnswerQuestion{}.AdminOnly())
	assert.True(t, HighlightProduct{}.AdminOnly())
	assert.False(t, JoinSession{}.AdminOnly())
	assert.False(t, SendQuestion{}.AdminOnly())
	assert.False(t, LikeQuestion{}.AdminOnly())
}

func TestNewErrorPayload_HidesCause(t *testing.T) {
	err := fmt.Errorf("save session: %w: %w", models.ErrPersistence, errors.New("dial tcp 10.0.0.3:5432: refused"))
	p := NewErrorPayload(err)
	assert.Equal(t, "PersistenceFailed", p.Code)
	assert.NotContains(t, p.Message, "10.0.0.3")

	p = NewErrorPayload(models.ErrSessionNotLive)
	assert.Equal(t, ErrorPayload{Message: "session is not live", Code: "SessionNotLive"}, p)
}
