package cost

import (
	"errors"
	"fmt"
	"sort"
)

// ErrUnvalidatedInstrument is returned for any instrument without a
// registered parameter set. The model fails closed rather than guessing a
// multiplier.
var ErrUnvalidatedInstrument = errors.New("cost: unvalidated instrument")

// Instrument holds the validated contract parameters for one instrument.
type Instrument struct {
	Symbol string
	// PointValue is the dollar value of one point of price movement.
	PointValue float64
	// TickSize is the minimum price increment.
	TickSize float64
	// RoundTripFriction is the fixed round-trip dollar cost per trade:
	// commission plus two spread crossings plus assumed slippage.
	RoundTripFriction float64
}

func (i Instrument) validate() error {
	if i.Symbol == "" {
		return fmt.Errorf("instrument symbol is required")
	}
	if i.PointValue <= 0 {
		return fmt.Errorf("instrument %s: point_value must be > 0", i.Symbol)
	}
	if i.TickSize <= 0 {
		return fmt.Errorf("instrument %s: tick_size must be > 0", i.Symbol)
	}
	if i.RoundTripFriction < 0 {
		return fmt.Errorf("instrument %s: round_trip_friction must be >= 0", i.Symbol)
	}
	return nil
}

// Model converts round-trip friction into per-trade cost and normalizes
// trade P&L into realized R. Instruments are an explicit registry passed in
// at construction; lookups for unknown instruments fail closed.
type Model struct {
	instruments map[string]Instrument
}

// NewModel builds a cost model over a validated instrument registry.
func NewModel(instruments []Instrument) (*Model, error) {
	m := &Model{instruments: make(map[string]Instrument, len(instruments))}
	for _, in := range instruments {
		if err := in.validate(); err != nil {
			return nil, fmt.Errorf("cost model: %w", err)
		}
		if _, dup := m.instruments[in.Symbol]; dup {
			return nil, fmt.Errorf("cost model: duplicate instrument %s", in.Symbol)
		}
		m.instruments[in.Symbol] = in
	}
	return m, nil
}

// Instrument returns the registered parameter set, failing closed when the
// instrument is unknown.
func (m *Model) Instrument(symbol string) (Instrument, error) {
	in, ok := m.instruments[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("%w: %s", ErrUnvalidatedInstrument, symbol)
	}
	return in, nil
}

// Symbols lists registered instruments in stable order.
func (m *Model) Symbols() []string {
	out := make([]string, 0, len(m.instruments))
	for s := range m.instruments {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// PerTradeCost returns the dollar cost of one round trip under a cost-stress
// multiplier. stress=1.0 is the base scenario; 1.25 and 1.50 are the
// standard stress scenarios.
func (m *Model) PerTradeCost(symbol string, stress float64) (float64, error) {
	in, err := m.Instrument(symbol)
	if err != nil {
		return 0, err
	}
	if stress <= 0 {
		return 0, fmt.Errorf("cost model: stress multiplier must be > 0, got %v", stress)
	}
	return in.RoundTripFriction * stress, nil
}

// RealizedR converts a point P&L into cost-adjusted R. The cost is amortized
// into both the numerator and the risk denominator, so a loss at a breakeven
// stop is exactly -1.0.
func (m *Model) RealizedR(symbol string, outcomePoints, riskPoints, cost float64) (float64, error) {
	in, err := m.Instrument(symbol)
	if err != nil {
		return 0, err
	}
	if riskPoints <= 0 {
		return 0, fmt.Errorf("cost model: risk_points must be > 0, got %v", riskPoints)
	}
	grossDollars := outcomePoints * in.PointValue
	riskDollars := riskPoints*in.PointValue + cost
	return (grossDollars - cost) / riskDollars, nil
}
