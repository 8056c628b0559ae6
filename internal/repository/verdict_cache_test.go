package repository

import (
	"context"
	"testing"
	"time"

	"BreakCheck/internal/domain/models"
	"BreakCheck/pkg/cache"
)

func TestCachedVerdictRoundTrip(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	vc := NewCachedVerdict(mc, time.Minute)
	ctx := context.Background()

	in := &models.ValidateResponse{
		RuleID: "orb-mes-0930",
		Metrics: models.ValidationMetrics{
			SampleSize:    40,
			WinRate:       0.6,
			MeanRealizedR: 0.31,
		},
	}
	if err := vc.Put(ctx, in.RuleID, in); err != nil {
		t.Fatalf("Put: %v", err)
	}

	out, err := vc.Get(ctx, in.RuleID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out == nil {
		t.Fatal("expected a hit")
	}
	if out.RuleID != in.RuleID || out.Metrics.SampleSize != 40 || out.Metrics.MeanRealizedR != 0.31 {
		t.Fatalf("unexpected cached verdict: %+v", out)
	}
}

func TestCachedVerdictMissIsNilNil(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	vc := NewCachedVerdict(mc, time.Minute)

	out, err := vc.Get(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != nil {
		t.Fatalf("expected nil on miss, got %+v", out)
	}
}

func TestCachedVerdictInvalidate(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	vc := NewCachedVerdict(mc, time.Minute)
	ctx := context.Background()

	if err := vc.Put(ctx, "r1", &models.ValidateResponse{RuleID: "r1"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := vc.Invalidate(ctx, "r1"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	out, err := vc.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if out != nil {
		t.Fatalf("expected miss after invalidate, got %+v", out)
	}
}
