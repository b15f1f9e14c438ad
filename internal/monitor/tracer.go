package monitor

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "nexus"

// Span attribute keys.
var (
	AttrExecID    = attribute.Key("nexus.execution.id")
	AttrFilename  = attribute.Key("nexus.filename")
	AttrLocation  = attribute.Key("nexus.location")
	AttrExtension = attribute.Key("nexus.extension")
	AttrAction    = attribute.Key("nexus.action")
	AttrCommand   = attribute.Key("nexus.command")
	AttrExitCode  = attribute.Key("nexus.exit_code")
	AttrTruncated = attribute.Key("nexus.output.truncated")
	AttrFileCount = attribute.Key("nexus.files.count")
)

// Tracer starts spans for file operations and executions. Without a
// configured TracerProvider spans are no-ops.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer uses the global TracerProvider.
func NewTracer() *Tracer {
	return NewTracerWithProvider(otel.GetTracerProvider())
}

func NewTracerWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(instrumentationName)}
}

// StartFileOp starts a span named "files.<op>" for an operation on
// filename in location. Directory operations pass an empty filename.
func (t *Tracer) StartFileOp(ctx context.Context, op, filename, location string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{AttrLocation.String(location)}
	if filename != "" {
		attrs = append(attrs, AttrFilename.String(filename))
	}
	return t.tracer.Start(ctx, "files."+op, trace.WithAttributes(attrs...))
}

// StartExecution starts the span covering one compile/run request.
func (t *Tracer) StartExecution(ctx context.Context, execID, filename, extension, action string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "execute", trace.WithAttributes(
		AttrExecID.String(execID),
		AttrFilename.String(filename),
		AttrExtension.String(extension),
		AttrAction.String(action),
	))
}

// MarkError records err on span and flags the span as failed. A nil err
// leaves the span untouched.
func MarkError(span trace.Span, err error) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
