package core

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
)

func facultyReq() llm.FieldRequest {
	return llm.FieldRequest{Field: constants.FacultyName, Column: "Faculty Name", Filename: "a.txt", Excerpt: "text"}
}

func TestResolve_Answer(t *testing.T) {
	m := llm.NewMock(llm.MockStep{Answer: llm.FieldAnswer{Value: "Dr. Jane Doe", Found: true}})
	r := NewResolver(m, ResolverConfig{}, nil)

	v, origin := r.Resolve(context.Background(), facultyReq())
	assert.Equal(t, "Dr. Jane Doe", v)
	assert.Equal(t, constants.OriginLLM, origin)
	assert.Len(t, m.Calls(), 1)
}

func TestResolve_TimeoutIsUnknown(t *testing.T) {
	m := llm.NewMock(llm.MockStep{Delay: time.Second})
	r := NewResolver(m, ResolverConfig{Timeout: 20 * time.Millisecond, RetryBackoff: time.Millisecond}, nil)

	start := time.Now()
	v, origin := r.Resolve(context.Background(), facultyReq())
	assert.Equal(t, constants.ValueUnknown, v)
	assert.Equal(t, constants.OriginUnknown, origin)
	assert.Len(t, m.Calls(), 2, "a timeout is retried once")
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestResolve_RetryThenAnswer(t *testing.T) {
	m := llm.NewMock(
		llm.MockStep{Err: &llm.StatusError{Provider: "mock", Status: 503}},
		llm.MockStep{Answer: llm.FieldAnswer{Value: "ENG 101", Found: true}},
	)
	r := NewResolver(m, ResolverConfig{RetryBackoff: time.Millisecond}, nil)

	v, origin := r.Resolve(context.Background(), facultyReq())
	assert.Equal(t, "ENG 101", v)
	assert.Equal(t, constants.OriginLLM, origin)
	assert.Len(t, m.Calls(), 2)
}

func TestResolve_PermanentErrorNotRetried(t *testing.T) {
	m := llm.NewMock(llm.MockStep{Err: &llm.StatusError{Provider: "mock", Status: 401}})
	r := NewResolver(m, ResolverConfig{RetryBackoff: time.Millisecond}, nil)

	v, origin := r.Resolve(context.Background(), facultyReq())
	assert.Equal(t, constants.ValueUnknown, v)
	assert.Equal(t, constants.OriginUnknown, origin)
	assert.Len(t, m.Calls(), 1)
}

func TestResolve_RejectedAnswers(t *testing.T) {
	answers := []llm.FieldAnswer{
		{Value: "", Found: false},
		{Value: "Dr. Smith or Dr. Jones", Found: true},
		{Value: "N/A", Found: true},
		{Value: "line one\nline two", Found: true},
	}
	for _, a := range answers {
		r := NewResolver(llm.NewMock(llm.MockStep{Answer: a}), ResolverConfig{}, nil)
		v, origin := r.Resolve(context.Background(), facultyReq())
		assert.Equal(t, constants.ValueUnknown, v, a.Value)
		assert.Equal(t, constants.OriginUnknown, origin)
	}
}

func TestResolve_NoProvider(t *testing.T) {
	r := NewResolver(nil, ResolverConfig{}, nil)
	v, origin := r.Resolve(context.Background(), facultyReq())
	assert.Equal(t, constants.ValueUnknown, v)
	assert.Equal(t, constants.OriginUnknown, origin)
}

func TestResolveRow(t *testing.T) {
	m := llm.NewMock(llm.MockStep{Answer: llm.FieldAnswer{Value: "ENG 101", Found: true}})
	r := NewResolver(m, ResolverConfig{ExcerptChars: 5}, nil)
	row := extract.Row{
		Values:  map[string]string{"Course": "", "Faculty": "Dr. Jane Doe"},
		Origins: map[string]constants.Origin{"Course": constants.OriginNone, "Faculty": constants.OriginPattern},
		Pending: []string{"Course"},
	}

	r.ResolveRow(context.Background(), "long document text", "a.txt", &row, map[string]constants.Field{"Course": constants.CourseNameNumber})

	assert.Equal(t, "ENG 101", row.Values["Course"])
	assert.Equal(t, constants.OriginLLM, row.Origins["Course"])
	assert.Equal(t, "Dr. Jane Doe", row.Values["Faculty"])
	assert.Empty(t, row.Pending)

	calls := m.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, constants.CourseNameNumber, calls[0].Field)
	assert.Contains(t, calls[0].Excerpt, "long ")
	assert.NotContains(t, calls[0].Excerpt, "document")
}

// countingProvider records the peak number of concurrent calls.
type countingProvider struct {
	cur, peak atomic.Int32
}

func (p *countingProvider) Name() string { return "counting" }

func (p *countingProvider) ResolveField(ctx context.Context, _ llm.FieldRequest) (llm.FieldAnswer, []byte, error) {
	n := p.cur.Add(1)
	defer p.cur.Add(-1)
	for {
		peak := p.peak.Load()
		if n <= peak || p.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-time.After(10 * time.Millisecond):
	case <-ctx.Done():
		return llm.FieldAnswer{}, nil, ctx.Err()
	}
	return llm.FieldAnswer{}, nil, errors.New("permanent")
}

func TestResolve_InFlightCap(t *testing.T) {
	p := &countingProvider{}
	r := NewResolver(p, ResolverConfig{MaxInFlight: 2}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Resolve(context.Background(), facultyReq())
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, p.peak.Load(), int32(2))
	assert.Positive(t, p.peak.Load())
}
