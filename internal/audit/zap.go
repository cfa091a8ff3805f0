package audit

import (
	"context"

	"go.uber.org/zap"
)

// ZapSink writes entries to a structured logger
type ZapSink struct {
	logger *zap.Logger
}

// NewZapSink creates a logging sink
func NewZapSink(logger *zap.Logger) *ZapSink {
	return &ZapSink{logger: logger.Named("audit")}
}

// Log implements Sink
func (s *ZapSink) Log(_ context.Context, e Entry) error {
	s.logger.Info("audit",
		zap.Uint("actor_id", e.ActorID),
		zap.String("action", e.Action.String()),
		zap.String("entity_type", string(e.EntityType)),
		zap.String("entity_id", e.EntityID),
		zap.String("request_id", e.RequestID),
		zap.Any("old_values", e.OldValues),
		zap.Any("new_values", e.NewValues))
	return nil
}
