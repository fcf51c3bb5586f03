package llm

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// MockStep is one scripted reply. Delay is honored before answering and respects ctx.
type MockStep struct {
	Answer FieldAnswer
	Err    error
	Delay  time.Duration
}

// Mock is a scripted Provider for tests and offline runs. Steps are consumed in order;
// the last one repeats. With no steps it always answers "not found".
type Mock struct {
	mu    sync.Mutex
	steps []MockStep
	calls []FieldRequest
}

func NewMock(steps ...MockStep) *Mock {
	return &Mock{steps: steps}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) ResolveField(ctx context.Context, req FieldRequest) (FieldAnswer, []byte, error) {
	m.mu.Lock()
	step := MockStep{}
	if n := len(m.steps); n > 0 {
		idx := len(m.calls)
		if idx >= n {
			idx = n - 1
		}
		step = m.steps[idx]
	}
	m.calls = append(m.calls, req)
	m.mu.Unlock()

	if step.Delay > 0 {
		t := time.NewTimer(step.Delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return FieldAnswer{}, nil, ctx.Err()
		case <-t.C:
		}
	}
	if step.Err != nil {
		return FieldAnswer{}, nil, step.Err
	}
	raw, _ := json.Marshal(step.Answer)
	return step.Answer, raw, nil
}

// Calls returns the requests received so far.
func (m *Mock) Calls() []FieldRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FieldRequest(nil), m.calls...)
}
