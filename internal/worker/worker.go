package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aura-live/showcase/internal/coordinator"
	"github.com/aura-live/showcase/internal/models"
	"github.com/aura-live/showcase/pkg/queue"
)

// maxArchivedReactions caps the reactions written to one archive document.
const maxArchivedReactions = 10000

// ArchiveStore is what the archive job reads and corrects.
type ArchiveStore interface {
	coordinator.TotalsStore
	ListQuestions(ctx context.Context, sessionID uuid.UUID) ([]*models.Question, error)
	ListReactions(ctx context.Context, sessionID uuid.UUID, limit int) ([]*models.Reaction, error)
}

// Uploader stores an archive document.
type Uploader interface {
	UploadArchive(ctx context.Context, sessionID string, body io.Reader) (string, error)
}

// JobSource yields jobs and takes failed ones back.
type JobSource interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// Archive is the document written for an ended session.
type Archive struct {
	Session    *models.Session    `json:"session"`
	Questions  []*models.Question `json:"questions"`
	Reactions  []*models.Reaction `json:"reactions"`
	ArchivedAt time.Time          `json:"archivedAt"`
}

// SessionArchiveProcessor reconciles totals of ended sessions and uploads their archive.
type SessionArchiveProcessor struct {
	store    ArchiveStore
	uploader Uploader // nil disables upload
	queue    JobSource
	logger   *zap.Logger
	backoff  time.Duration
}

// NewSessionArchiveProcessor creates a session archive processor.
func NewSessionArchiveProcessor(store ArchiveStore, uploader Uploader, q JobSource, logger *zap.Logger) *SessionArchiveProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionArchiveProcessor{store: store, uploader: uploader, queue: q, logger: logger, backoff: queue.RetryBackoff}
}

// Process executes one session archive job.
func (p *SessionArchiveProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSessionArchive {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SessionArchivePayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	s, drifted, err := coordinator.ReconcileTotals(ctx, p.store, payload.SessionID)
	if err != nil {
		return fmt.Errorf("reconcile totals: %w", err)
	}
	if drifted {
		p.logger.Warn("session totals corrected",
			zap.String("session_id", s.ID.String()),
			zap.Int("total_reactions", s.TotalReactions),
			zap.Int("total_questions", s.TotalQuestions))
	}

	if p.uploader == nil {
		p.logger.Info("session reconciled", zap.String("session_id", s.ID.String()))
		return nil
	}

	questions, err := p.store.ListQuestions(ctx, s.ID)
	if err != nil {
		return fmt.Errorf("list questions: %w", err)
	}
	reactions, err := p.store.ListReactions(ctx, s.ID, maxArchivedReactions)
	if err != nil {
		return fmt.Errorf("list reactions: %w", err)
	}
	body, err := json.Marshal(Archive{Session: s, Questions: questions, Reactions: reactions, ArchivedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal archive: %w", err)
	}
	key, err := p.uploader.UploadArchive(ctx, s.ID.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("upload archive: %w", err)
	}

	p.logger.Info("session archived", zap.String("session_id", s.ID.String()), zap.String("s3_key", key))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *SessionArchiveProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("archive worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *SessionArchiveProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
