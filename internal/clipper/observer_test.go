package clipper

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"clipper/internal/models"
)

func TestPrometheusObserverCountsResolves(t *testing.T) {
	reg := prometheus.NewRegistry()
	observer, err := NewPrometheusObserver("", reg)
	if err != nil {
		t.Fatalf("observer: %v", err)
	}
	env := newTestEnv(t, Config{Observer: observer}, upper())
	ctx := context.Background()
	file := env.save(t, "metered", "text/plain")
	opts := models.Options{"w": 1}

	readAll(t)(env.svc.Resolve(ctx, file, opts))
	readAll(t)(env.svc.Resolve(ctx, file, opts))
	if _, err := env.svc.ResolveByID(ctx, file.ID, models.Options{"id": 1}); err == nil {
		t.Fatal("expected reserved option error")
	}

	if got := testutil.ToFloat64(observer.results.WithLabelValues("resolve", "miss")); got != 1 {
		t.Fatalf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(observer.results.WithLabelValues("resolve", "hit")); got != 1 {
		t.Fatalf("expected 1 hit, got %v", got)
	}
	if got := testutil.ToFloat64(observer.results.WithLabelValues("resolve", "error")); got != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	if got := testutil.ToFloat64(observer.results.WithLabelValues("generate", "ok")); got != 1 {
		t.Fatalf("expected 1 generation, got %v", got)
	}
	if got := testutil.ToFloat64(observer.bytes.WithLabelValues("save")); got != float64(len("metered")) {
		t.Fatalf("expected saved bytes counted, got %v", got)
	}
}

func TestPrometheusObserverReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheusObserver("dup", reg)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := NewPrometheusObserver("dup", reg)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	second.ObserveSave(0, 10, nil)
	if got := testutil.ToFloat64(first.bytes.WithLabelValues("save")); got != 10 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}
