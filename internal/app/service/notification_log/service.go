package notification_log

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
	// async is false in tests so journal writes are observable on return.
	async bool
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log, async: true}
}

// NewSync returns a journal that writes on the caller's goroutine.
func NewSync(db *gorm.DB, log *zap.SugaredLogger) *Service {
	return &Service{db: db, log: log}
}

// Save persists a stripe event journal line. Nil input is ignored.
func (s *Service) Save(ctx context.Context, log *models.StripeEventLog) {
	if log == nil {
		return
	}
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	if log.TraceID == "" {
		log.TraceID = logctx.TraceID(ctx)
	}
	write := func() {
		if err := s.db.Save(log).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save stripe event log: %v", err)
		}
	}
	if s.async {
		go write()
		return
	}
	write()
}

// Received journals the verified payload before any handling.
func (s *Service) Received(ctx context.Context, eventID, eventType, env string, payload []byte) {
	s.Save(ctx, &models.StripeEventLog{
		EventID:     eventID,
		EventType:   eventType,
		Environment: env,
		Data:        datatypes.JSON(payload),
		Status:      models.StripeEventLogStatusReceived,
	})
}

// Finished journals the handling outcome of an event.
func (s *Service) Finished(ctx context.Context, eventID, eventType, env string, result any, handleErr error) {
	res := map[string]any{"result": result}
	status := models.StripeEventLogStatusHandled
	if handleErr != nil {
		res["error"] = handleErr.Error()
		status = models.StripeEventLogStatusHandleFailed
	}
	b, err := json.Marshal(res)
	if err != nil {
		b = []byte(fmt.Sprintf(`{"error":%q}`, err.Error()))
	}
	j := datatypes.JSON(b)
	s.Save(ctx, &models.StripeEventLog{
		EventID:     eventID,
		EventType:   eventType,
		Environment: env,
		Data:        datatypes.JSON("{}"),
		Result:      &j,
		Status:      status,
	})
}

// ListByEvent returns the journal lines of one processor event id.
func (s *Service) ListByEvent(ctx context.Context, eventID string) ([]*models.StripeEventLog, error) {
	var out []*models.StripeEventLog
	if err := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list stripe event logs: %w", err)
	}
	return out, nil
}

var Module = fx.Options(
	fx.Provide(New),
)
