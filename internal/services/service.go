package service

import (
	"context"

	"github.com/honeynil/invest-ledger/internal/infrastructure/observability"
	"github.com/honeynil/invest-ledger/internal/models"
	pkgerrors "github.com/honeynil/invest-ledger/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "ledger-service"

// startOperation opens the span of a service operation. The returned func
// closes it and counts the outcome in ledger_operations_total.
func startOperation(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, operation, trace.WithAttributes(attrs...))

	return ctx, func(err error) {
		outcome := "success"
		switch {
		case err == nil:
		case pkgerrors.IsBusiness(err):
			outcome = "rejected"
			span.SetStatus(codes.Error, err.Error())
		default:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.LedgerOperations.WithLabelValues(operation, outcome).Inc()
		span.End()
	}
}

// requireAdmin runs before anything is read on behalf of the caller.
func requireAdmin(ctx context.Context, p models.Principal, operation string) error {
	if p.IsAdmin() {
		return nil
	}
	observability.WithContext(ctx).Warn("forbidden operation",
		"security_event", true,
		"operation", operation,
		"principal_id", p.ID,
		"role", p.Role)
	return pkgerrors.ErrForbidden
}

// logOutcome logs rejections at Warn and faults at Error.
func logOutcome(ctx context.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	if pkgerrors.IsBusiness(err) {
		observability.WithContext(ctx).Warn(msg, args...)
		return
	}
	observability.WithContext(ctx).Error(msg, args...)
}
