// Package oteltrace wraps xexec work items in OpenTelemetry spans.
//
//	reg, _ := xexec.NewRegistryBuilder().
//	    WithMiddleware(oteltrace.Middleware()).
//	    Build()
//
// One span is started per work item, named "<PayloadType> <item>", carrying the
// bus kind, priorities and invocation sequence as attributes. Failed items mark
// the span as errored.
package oteltrace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/trickstertwo/xexec"
)

const instrumentationName = "github.com/trickstertwo/xexec/adapter/oteltrace"

type config struct {
	provider trace.TracerProvider
}

// Option configures the tracing middleware.
type Option func(*config)

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *config) {
		if tp != nil {
			c.provider = tp
		}
	}
}

// Middleware returns an xexec.Middleware starting one span per work item.
func Middleware(opts ...Option) xexec.Middleware {
	cfg := config{provider: otel.GetTracerProvider()}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	tracer := cfg.provider.Tracer(instrumentationName)

	return func(next xexec.Step) xexec.Step {
		return func(ctx context.Context, info xexec.StepInfo) error {
			ctx, span := tracer.Start(ctx, info.PayloadType+" "+info.Name,
				trace.WithSpanKind(trace.SpanKindInternal),
				trace.WithAttributes(
					attribute.String("xexec.bus", string(info.Bus)),
					attribute.String("xexec.payload_type", info.PayloadType),
					attribute.String("xexec.item", info.Name),
					attribute.Int("xexec.priority", info.Priority),
					attribute.IntSlice("xexec.extra", info.Extra),
					attribute.Int64("xexec.seq", int64(info.Seq)),
				),
			)
			defer span.End()

			err := next(ctx, info)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			return err
		}
	}
}
