package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"go.uber.org/zap"
)

type staticFetcher struct {
	payload json.RawMessage
	calls   int
}

func (f *staticFetcher) FetchCurrent(context.Context, string) (json.RawMessage, error) {
	f.calls++
	return f.payload, nil
}

func (f *staticFetcher) FetchForecast(context.Context, string) (json.RawMessage, error) {
	f.calls++
	return f.payload, nil
}

func TestSimulated_PassThrough(t *testing.T) {
	next := &staticFetcher{payload: json.RawMessage(`{"ok":true}`)}
	s := NewSimulated(next, 0.5, zap.NewNop())
	s.rand = func() float64 { return 0.9 } // above the rate: no failure

	payload, err := s.FetchCurrent(context.Background(), "en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("unexpected payload %s", payload)
	}
	if next.calls != 1 {
		t.Errorf("expected delegate called once, got %d", next.calls)
	}
}

func TestSimulated_InjectsFailure(t *testing.T) {
	next := &staticFetcher{payload: json.RawMessage(`{}`)}
	s := NewSimulated(next, 0.5, zap.NewNop())
	s.rand = func() float64 { return 0.1 } // below the rate: fail

	_, err := s.FetchForecast(context.Background(), "en")
	if !errors.Is(err, ErrSimulatedFailure) {
		t.Fatalf("expected ErrSimulatedFailure, got %v", err)
	}
	if next.calls != 0 {
		t.Errorf("delegate must not be called on injected failure, got %d calls", next.calls)
	}
}

func TestSimulated_RateZeroNeverFails(t *testing.T) {
	next := &staticFetcher{payload: json.RawMessage(`{}`)}
	s := NewSimulated(next, 0, zap.NewNop())

	for i := 0; i < 100; i++ {
		if _, err := s.FetchCurrent(context.Background(), "en"); err != nil {
			t.Fatalf("rate 0 must never fail, got %v", err)
		}
	}
}
