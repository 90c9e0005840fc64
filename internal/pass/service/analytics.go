package service

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
)

// Analytics records issuance events. Events fire on the Issued transition
// only, never on failures.
type Analytics interface {
	PassIssued(ctx context.Context, hostID string, gate domain.GateID, visitorName string)
}

type logAnalytics struct {
	logger *slog.Logger
}

// NewLogAnalytics returns an Analytics that emits structured log events.
func NewLogAnalytics(logger *slog.Logger) Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &logAnalytics{logger: logger}
}

func (a *logAnalytics) PassIssued(ctx context.Context, hostID string, gate domain.GateID, visitorName string) {
	a.logger.InfoContext(ctx, "pass_issued",
		"host_id", hostID,
		"gate", int(gate),
		"visitor", visitorName,
	)
}
