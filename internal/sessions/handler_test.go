package sessions_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/internal/sessions"
	"github.com/aura-live/showcase/internal/store"
)

type recordingNotifier struct {
	mu      sync.Mutex
	changes []models.SessionStatusChange
}

func (n *recordingNotifier) NotifyStatusChange(_ context.Context, c models.SessionStatusChange) error {
	n.mu.Lock()
	n.changes = append(n.changes, c)
	n.mu.Unlock()
	return nil
}

type fixedViewers int

func (v fixedViewers) ViewerCount(uuid.UUID) int { return int(v) }

type recordingScheduler struct {
	ids []uuid.UUID
	err error
}

func (s *recordingScheduler) ScheduleArchive(_ context.Context, id uuid.UUID, _ time.Time) error {
	s.ids = append(s.ids, id)
	return s.err
}

type fakeLinker map[string]string

func (l fakeLinker) ArchiveURL(_ context.Context, id string) (string, error) {
	if u, ok := l[id]; ok {
		return u, nil
	}
	return "", errors.New("no such key")
}

type fixture struct {
	mem       *store.Memory
	notifier  *recordingNotifier
	scheduler *recordingScheduler
	router    *gin.Engine
}

func newFixture(t *testing.T, links sessions.ArchiveLinker) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	f := &fixture{
		mem:       store.NewMemory(),
		notifier:  &recordingNotifier{},
		scheduler: &recordingScheduler{},
	}
	h := sessions.NewHandler(f.mem, f.notifier, fixedViewers(3), f.scheduler, links, zaptest.NewLogger(t))
	r := gin.New()
	r.GET("/sessions", h.List)
	r.GET("/sessions/live/current", h.Live)
	r.GET("/sessions/:id", h.Get)
	r.POST("/sessions", h.Create)
	r.GET("/sessions/:id/questions", h.Questions)
	r.GET("/sessions/:id/reactions", h.Reactions)
	r.GET("/sessions/:id/viewers", h.Viewers)
	r.GET("/sessions/:id/archive", h.Archive)
	r.PUT("/sessions/:id/start", h.Start)
	r.PUT("/sessions/:id/end", h.End)
	f.router = r
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	f.router.ServeHTTP(w, req)
	return w
}

func data[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var body struct {
		Success bool `json:"success"`
		Data    T    `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.True(t, body.Success)
	return body.Data
}

func TestHandler_CreateAndGet(t *testing.T) {
	f := newFixture(t, nil)
	pid := uuid.New()

	w := f.do(http.MethodPost, "/sessions", `{"title":"Spring drop","hostName":"Mia","products":["`+pid.String()+`"]}`)
	require.Equal(t, http.StatusCreated, w.Code)
	created := data[models.Session](t, w)
	assert.Equal(t, models.SessionScheduled, created.Status)
	assert.Equal(t, []uuid.UUID{pid}, created.ProductIDs)

	w = f.do(http.MethodGet, "/sessions/"+created.ID.String(), "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Spring drop", data[models.Session](t, w).Title)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPost, "/sessions", `{"hostName":"x"}`).Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/sessions/"+uuid.NewString(), "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/sessions/nope", "").Code)
}

// unknownProductStore rejects product ids the way the products foreign key does.
type unknownProductStore struct {
	*store.Memory
}

func (s unknownProductStore) CreateSession(_ context.Context, sess *models.Session) error {
	return fmt.Errorf("%w: unknown product %s", models.ErrValidation, sess.ProductIDs[0])
}

func TestHandler_CreateUnknownProduct(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := sessions.NewHandler(unknownProductStore{store.NewMemory()}, &recordingNotifier{}, fixedViewers(0), &recordingScheduler{}, nil, zaptest.NewLogger(t))
	r := gin.New()
	r.POST("/sessions", h.Create)
	f := &fixture{router: r}

	pid := uuid.New()
	w := f.do(http.MethodPost, "/sessions", `{"title":"Spring drop","products":["`+pid.String()+`"]}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"ValidationFailed"`)
	assert.Contains(t, w.Body.String(), pid.String())
}

func TestHandler_StartEnd(t *testing.T) {
	f := newFixture(t, nil)
	a := f.mem.AddSession(&models.Session{Title: "A"})
	b := f.mem.AddSession(&models.Session{Title: "B"})

	w := f.do(http.MethodPut, "/sessions/"+a.ID.String()+"/start", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.SessionLive, data[models.Session](t, w).Status)

	assert.Equal(t, http.StatusConflict, f.do(http.MethodPut, "/sessions/"+b.ID.String()+"/start", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodPut, "/sessions/"+b.ID.String()+"/end", "").Code)

	w = f.do(http.MethodGet, "/sessions/live/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, a.ID, data[models.Session](t, w).ID)

	w = f.do(http.MethodPut, "/sessions/"+a.ID.String()+"/end", "")
	require.Equal(t, http.StatusOK, w.Code)
	ended := data[models.Session](t, w)
	assert.Equal(t, models.SessionEnded, ended.Status)
	assert.NotNil(t, ended.EndTime)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/sessions/live/current", "").Code)
	assert.Equal(t, []uuid.UUID{a.ID}, f.scheduler.ids)
	assert.Equal(t, []models.SessionStatusChange{
		{SessionID: a.ID, Title: "A", Status: models.SessionLive},
		{SessionID: a.ID, Title: "A", Status: models.SessionEnded},
	}, f.notifier.changes)
}

func TestHandler_EndSucceedsWhenSchedulingFails(t *testing.T) {
	f := newFixture(t, nil)
	f.scheduler.err = errors.New("redis down")
	s := f.mem.AddSession(&models.Session{Title: "A", Status: models.SessionLive})

	assert.Equal(t, http.StatusOK, f.do(http.MethodPut, "/sessions/"+s.ID.String()+"/end", "").Code)
}

func TestHandler_List(t *testing.T) {
	f := newFixture(t, nil)
	f.mem.AddSession(&models.Session{Title: "A"})
	f.mem.AddSession(&models.Session{Title: "B", Status: models.SessionEnded})

	w := f.do(http.MethodGet, "/sessions", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, data[[]models.Session](t, w), 2)

	w = f.do(http.MethodGet, "/sessions?status=ended", "")
	require.Equal(t, http.StatusOK, w.Code)
	list := data[[]models.Session](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "B", list[0].Title)

	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, "/sessions?status=paused", "").Code)
}

func TestHandler_ReactionsLimit(t *testing.T) {
	f := newFixture(t, nil)
	s := f.mem.AddSession(&models.Session{Status: models.SessionLive})
	ctx := context.Background()
	for i := 0; i < 25; i++ {
		require.NoError(t, f.mem.CreateReaction(ctx, &models.Reaction{ID: uuid.New(), SessionID: s.ID, Type: models.ReactionLike}))
	}
	base := "/sessions/" + s.ID.String() + "/reactions"

	assert.Len(t, data[[]models.Reaction](t, f.do(http.MethodGet, base, "")), 20)
	assert.Len(t, data[[]models.Reaction](t, f.do(http.MethodGet, base+"?limit=5", "")), 5)
	assert.Len(t, data[[]models.Reaction](t, f.do(http.MethodGet, base+"?limit=500", "")), 25)
	assert.Equal(t, http.StatusBadRequest, f.do(http.MethodGet, base+"?limit=0", "").Code)
}

func TestHandler_QuestionsAndViewers(t *testing.T) {
	f := newFixture(t, nil)
	s := f.mem.AddSession(&models.Session{Status: models.SessionLive})
	require.NoError(t, f.mem.CreateQuestion(context.Background(), &models.Question{ID: uuid.New(), SessionID: s.ID, Text: "ship to EU?"}))

	qs := data[[]models.Question](t, f.do(http.MethodGet, "/sessions/"+s.ID.String()+"/questions", ""))
	require.Len(t, qs, 1)
	assert.Equal(t, "ship to EU?", qs[0].Text)

	v := data[struct {
		Count int `json:"count"`
	}](t, f.do(http.MethodGet, "/sessions/"+s.ID.String()+"/viewers", ""))
	assert.Equal(t, 3, v.Count)
}

func TestHandler_Archive(t *testing.T) {
	known := uuid.New()
	f := newFixture(t, fakeLinker{known.String(): "https://bucket/archive.json"})

	w := f.do(http.MethodGet, "/sessions/"+known.String()+"/archive", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://bucket/archive.json", data[map[string]string](t, w)["url"])
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/sessions/"+uuid.NewString()+"/archive", "").Code)

	none := newFixture(t, nil)
	assert.Equal(t, http.StatusServiceUnavailable, none.do(http.MethodGet, "/sessions/"+known.String()+"/archive", "").Code)
}
