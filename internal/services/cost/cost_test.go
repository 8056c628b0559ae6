package cost

import (
	"errors"
	"math"
	"testing"
)

func testModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel([]Instrument{
		{Symbol: "MES", PointValue: 5, TickSize: 0.25, RoundTripFriction: 3.5},
		{Symbol: "MNQ", PointValue: 2, TickSize: 0.25, RoundTripFriction: 3.5},
	})
	if err != nil {
		t.Fatalf("new model: %v", err)
	}
	return m
}

func TestUnknownInstrumentFailsClosed(t *testing.T) {
	m := testModel(t)
	if _, err := m.PerTradeCost("ES", 1.0); !errors.Is(err, ErrUnvalidatedInstrument) {
		t.Fatalf("expected ErrUnvalidatedInstrument, got %v", err)
	}
	if _, err := m.RealizedR("ES", 10, 5, 3.5); !errors.Is(err, ErrUnvalidatedInstrument) {
		t.Fatalf("expected ErrUnvalidatedInstrument, got %v", err)
	}
}

func TestRejectsInvalidRegistry(t *testing.T) {
	if _, err := NewModel([]Instrument{{Symbol: "MES", PointValue: 0, TickSize: 0.25}}); err == nil {
		t.Fatalf("expected error for zero point value")
	}
	if _, err := NewModel([]Instrument{
		{Symbol: "MES", PointValue: 5, TickSize: 0.25},
		{Symbol: "MES", PointValue: 5, TickSize: 0.25},
	}); err == nil {
		t.Fatalf("expected error for duplicate instrument")
	}
}

func TestBreakevenStopLossIsMinusOne(t *testing.T) {
	m := testModel(t)
	cost, err := m.PerTradeCost("MES", 1.0)
	if err != nil {
		t.Fatalf("per trade cost: %v", err)
	}
	// Full loss: outcome points = -risk points.
	r, err := m.RealizedR("MES", -8.0, 8.0, cost)
	if err != nil {
		t.Fatalf("realized r: %v", err)
	}
	if math.Abs(r-(-1.0)) > 1e-9 {
		t.Fatalf("breakeven-stop loss should be exactly -1.0, got %v", r)
	}
}

func TestCostMonotonicity(t *testing.T) {
	m := testModel(t)
	outcomes := []struct{ pts, risk float64 }{
		{16, 8}, {-8, 8}, {4, 8}, {-2, 8},
	}
	for _, o := range outcomes {
		var prev float64
		for i, stress := range []float64{1.0, 1.25, 1.5} {
			c, err := m.PerTradeCost("MES", stress)
			if err != nil {
				t.Fatalf("cost: %v", err)
			}
			r, err := m.RealizedR("MES", o.pts, o.risk, c)
			if err != nil {
				t.Fatalf("realized r: %v", err)
			}
			if i > 0 && r > prev+1e-12 {
				t.Fatalf("realized R must be non-increasing in stress: pts=%v stress=%v r=%v prev=%v",
					o.pts, stress, r, prev)
			}
			prev = r
		}
	}
}

func TestStressScalesFriction(t *testing.T) {
	m := testModel(t)
	base, _ := m.PerTradeCost("MNQ", 1.0)
	stressed, _ := m.PerTradeCost("MNQ", 1.5)
	if math.Abs(stressed-base*1.5) > 1e-9 {
		t.Fatalf("stress should scale friction: base=%v stressed=%v", base, stressed)
	}
	if _, err := m.PerTradeCost("MNQ", 0); err == nil {
		t.Fatalf("expected error for non-positive stress")
	}
}
