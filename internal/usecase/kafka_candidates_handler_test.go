package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
)

type fakeMetrics struct {
	mu     sync.Mutex
	errors map[string]int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{errors: make(map[string]int)}
}

func (f *fakeMetrics) RecordRunStarted(string, string)          {}
func (f *fakeMetrics) RecordRunFinished(string, string, string) {}
func (f *fakeMetrics) RecordLatency(string, float64)            {}
func (f *fakeMetrics) RecordSimulatedDays(int)                  {}

func (f *fakeMetrics) RecordError(kind string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[kind]++
}

func (f *fakeMetrics) errorCount(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errors[kind]
}

func candidatesHandler(t *testing.T, bars *fakeBarStore, m *fakeMetrics) *KafkaCandidatesHandler {
	t.Helper()
	return NewKafkaCandidatesHandler("rule-candidates", testRunner(t, bars), m, nil)
}

func TestHandleValidCandidate(t *testing.T) {
	m := newFakeMetrics()
	h := candidatesHandler(t, &fakeBarStore{bars: winningHistory(35)}, m)

	b, err := json.Marshal(validateRequest())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := h.Handle(context.Background(), b); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestHandleAppliesPayloadDefaults(t *testing.T) {
	m := newFakeMetrics()
	h := candidatesHandler(t, &fakeBarStore{bars: winningHistory(35)}, m)

	// Minimal payload: bias, RR, stop and entry modes come from defaults.
	payload := []byte(`{
        "rule_id": "orb-mes-0930",
        "instrument": "MES",
        "window": "0930",
        "window_minutes": 5,
        "from": "2024-01-01T00:00:00Z",
        "to": "2024-02-15T00:00:00Z"
    }`)
	if err := h.Handle(context.Background(), payload); err != nil {
		t.Fatalf("Handle: %v", err)
	}
}

func TestHandleRejectsMalformedCandidates(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		kind    string
	}{
		{"broken json", `{"rule_id": `, "candidate_unmarshal"},
		{"short window label", `{"rule_id":"r1","instrument":"MES","window":"9","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z"}`, "candidate_invalid"},
		{"missing instrument", `{"rule_id":"r1","window":"0930","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z"}`, "candidate_invalid"},
		{"bad bias", `{"rule_id":"r1","instrument":"MES","window":"0930","bias":"sideways","from":"2024-01-01T00:00:00Z","to":"2024-02-01T00:00:00Z"}`, "candidate_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := newFakeMetrics()
			h := candidatesHandler(t, &fakeBarStore{}, m)

			err := h.Handle(context.Background(), []byte(tc.payload))
			if err == nil {
				t.Fatal("expected error")
			}
			if m.errorCount(tc.kind) != 1 {
				t.Fatalf("error %q recorded %d times, want 1", tc.kind, m.errorCount(tc.kind))
			}
		})
	}
}
