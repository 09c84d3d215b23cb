package tracing

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func TestInitWithoutEndpointIsNoop(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	shutdown, err := Init(context.Background(), log, "alertx", "test", "")
	if err != nil {
		t.Fatalf("init failed: %v", err)
	}
	if shutdown == nil {
		t.Fatalf("expected a shutdown func even when disabled")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("no-op shutdown returned error: %v", err)
	}
}
