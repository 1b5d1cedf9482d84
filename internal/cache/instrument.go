package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/claw-quants/internal/logging"
	"github.com/irfndi/claw-quants/internal/telemetry"
)

// cacheOp is one traced snapshot read or write.
type cacheOp struct {
	span   trace.Span
	events *logging.StandardLogger
	name   string
	id     string
	start  time.Time
}

func startOp(ctx context.Context, events *logging.StandardLogger, backend, name, id string) (context.Context, *cacheOp) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetCacheTracer(), "snapshot."+name,
		telemetry.StringAttribute("cache.backend", backend),
		telemetry.StringAttribute("cache.key", id),
	)
	return ctx, &cacheOp{span: span, events: events, name: name, id: id, start: time.Now()}
}

// end closes the span and emits a cache event. size is the payload length.
func (op *cacheOp) end(hit bool, size int, err error) {
	telemetry.SetSpanAttributes(op.span,
		telemetry.BoolAttribute("cache.hit", hit),
		telemetry.Int64Attribute("cache.bytes", int64(size)),
	)
	if err != nil {
		telemetry.RecordError(op.span, err)
	} else {
		telemetry.SetSpanStatus(op.span, codes.Ok, "")
	}
	op.span.End()

	if op.events != nil {
		op.events.LogCacheOperation(op.name, op.id, hit, time.Since(op.start).Milliseconds())
	}
}
