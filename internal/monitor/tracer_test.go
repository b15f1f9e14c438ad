package monitor

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingSpan struct {
	noop.Span
	status      codes.Code
	description string
	errs        []error
}

func (s *recordingSpan) SetStatus(code codes.Code, description string) {
	s.status = code
	s.description = description
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func TestMarkError(t *testing.T) {
	span := &recordingSpan{}
	MarkError(span, nil)
	if span.status != codes.Unset || len(span.errs) != 0 {
		t.Errorf("nil error changed the span: status=%v errs=%v", span.status, span.errs)
	}

	err := errors.New("file not found")
	MarkError(span, err)
	if span.status != codes.Error || span.description != "file not found" {
		t.Errorf("status = %v %q, want Error %q", span.status, span.description, "file not found")
	}
	if len(span.errs) != 1 || span.errs[0] != err {
		t.Errorf("recorded errors = %v", span.errs)
	}
}

func TestTracer_StartsSpans(t *testing.T) {
	tr := NewTracerWithProvider(noop.NewTracerProvider())

	ctx, span := tr.StartExecution(context.Background(), "id-1", "hello.py", "py", "run")
	if !trace.SpanFromContext(ctx).SpanContext().Equal(span.SpanContext()) {
		t.Error("execution span not stored in context")
	}
	span.End()

	ctx, span = tr.StartFileOp(context.Background(), "view", "hello.py", "src")
	if !trace.SpanFromContext(ctx).SpanContext().Equal(span.SpanContext()) {
		t.Error("file span not stored in context")
	}
	span.End()
}

func TestNewTracer_GlobalProvider(t *testing.T) {
	_, span := NewTracer().StartFileOp(context.Background(), "list", "", ".")
	defer span.End()
	if span.SpanContext().IsValid() {
		t.Error("expected a no-op span without a configured provider")
	}
}
