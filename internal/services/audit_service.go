package services

import (
	"context"
	"sync"
	"time"

	"github.com/aims-admin/backend/internal/events"
	"github.com/aims-admin/backend/internal/metrics"
	"github.com/aims-admin/backend/internal/models"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Auditor records privileged mutations. Log never reports failure to the
// caller.
type Auditor interface {
	Log(ctx context.Context, entry models.AuditEntry)
}

type AuditService struct {
	store     AuditStore
	publisher events.Publisher
	timeout   time.Duration
	log       *zap.Logger
	wg        sync.WaitGroup
}

// NewAuditService returns the audit writer. publisher may be nil.
func NewAuditService(store AuditStore, publisher events.Publisher, timeout time.Duration, log *zap.Logger) *AuditService {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AuditService{store: store, publisher: publisher, timeout: timeout, log: log}
}

// Log appends entry in the background. The write outlives the request that
// triggered it; failures go to the error log and the failure counter.
func (s *AuditService) Log(ctx context.Context, entry models.AuditEntry) {
	detached := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		wctx, cancel := context.WithTimeout(detached, s.timeout)
		defer cancel()
		if _, err := s.Record(wctx, entry); err != nil {
			metrics.RecordAuditFailure(entry.Action)
			s.log.Error("audit write failed",
				zap.String("action", entry.Action),
				zap.String("entity_type", entry.EntityType),
				zap.Stringp("entity_id", entry.EntityID),
				zap.Error(err),
			)
		}
	}()
}

// Record writes entry synchronously and publishes it on the audit stream.
func (s *AuditService) Record(ctx context.Context, entry models.AuditEntry) (*models.AuditLog, error) {
	oldValues, err := snapshot(entry.OldValues)
	if err != nil {
		return nil, err
	}
	newValues, err := snapshot(entry.NewValues)
	if err != nil {
		return nil, err
	}

	row := &models.AuditLog{
		ID:         uuid.New(),
		Action:     entry.Action,
		EntityType: entry.EntityType,
		EntityID:   entry.EntityID,
		OldValues:  oldValues,
		NewValues:  newValues,
		UserID:     entry.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.InsertAudit(ctx, row); err != nil {
		return nil, err
	}
	metrics.RecordAuditWrite()

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, events.StreamAudit, auditEvent(row)); err != nil {
			s.log.Warn("audit publish failed", zap.String("action", row.Action), zap.Error(err))
		}
	}
	return row, nil
}

// Flush blocks until every pending background write has finished.
func (s *AuditService) Flush() {
	s.wg.Wait()
}

func (s *AuditService) List(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, int, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Limit > 200 {
		f.Limit = 200
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.store.ListAudit(ctx, f)
}

func snapshot(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	if raw, ok := v.(json.RawMessage); ok {
		return raw, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func auditEvent(row *models.AuditLog) events.Event {
	payload := map[string]any{
		"id":          row.ID.String(),
		"action":      row.Action,
		"entity_type": row.EntityType,
		"created_at":  row.CreatedAt.Format(time.RFC3339Nano),
	}
	if row.EntityID != nil {
		payload["entity_id"] = *row.EntityID
	}
	if row.UserID != nil {
		payload["user_id"] = row.UserID.String()
	}
	return events.Event{Type: events.EventAuditLogged, Payload: payload}
}

// entityID formats an id for AuditEntry.EntityID.
func entityID(id uuid.UUID) *string {
	s := id.String()
	return &s
}

func pairID(a, b uuid.UUID) *string {
	s := a.String() + ":" + b.String()
	return &s
}
