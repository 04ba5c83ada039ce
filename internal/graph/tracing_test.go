package graph

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/onnwee/knowledge-cluster-map/engine/internal/db"
)

// TestRunLayoutEmitsSpan verifies a layout pass is wrapped in a trace span
// carrying its node and tick counts.
func TestRunLayoutEmitsSpan(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	fs := newFakeStore()
	fs.nodes = testNodes("a", "b")
	fs.links = []db.GraphLink{{Source: "a", Target: "b", Weight: 1}}
	svc := newTestService(t, fs)

	if _, err := svc.RunLayout(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var found bool
	for _, span := range recorder.Ended() {
		if span.Name() == "graph.RunLayout" {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected a graph.RunLayout span to be recorded")
	}
}
