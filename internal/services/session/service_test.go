package session

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/syllabus-review/constants"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/export"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
	"github.com/joseph-ayodele/syllabus-review/internal/repository"
	"github.com/joseph-ayodele/syllabus-review/internal/table"
	"github.com/joseph-ayodele/syllabus-review/internal/template"
)

// clock is a settable time source.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestService(t *testing.T, provider llm.Provider, cfg common.SessionConfig) (*Service, *clock) {
	t.Helper()
	drv, err := repository.Open(context.Background(), repository.Config{Name: "session-" + uuid.NewString()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(drv, nil) })

	proc := core.NewProcessor(nil,
		loader.New(loader.Config{}, nil),
		extract.NewExtractor(nil, nil),
		core.NewResolver(provider, core.ResolverConfig{}, nil),
		2, 0,
	)
	svc := NewService(
		repository.NewSessionRepository(drv, nil),
		repository.NewDocumentRepository(drv, nil),
		proc, nil, nil, cfg, nil,
	)
	c := &clock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	svc.now = c.Now
	return svc, c
}

func mustTemplate(t *testing.T, columns ...string) *template.Template {
	t.Helper()
	tpl, err := template.New("review.csv", columns)
	require.NoError(t, err)
	return tpl
}

func TestService_ReviewFlow(t *testing.T) {
	ctx := context.Background()
	m := llm.NewMock(llm.MockStep{Answer: llm.FieldAnswer{Value: "ENG 101 Composition I", Found: true}})
	svc, _ := newTestService(t, m, common.SessionConfig{MaxSessions: 5, TTL: time.Hour})

	sess, err := svc.Create(ctx, mustTemplate(t, "Course Name & Number", "Faculty Name"))
	require.NoError(t, err)

	empty, err := svc.Table(ctx, sess.ID)
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
	assert.Equal(t, []string{"Course Name & Number", "Faculty Name"}, empty.Columns)

	tbl, err := svc.Process(ctx, sess.ID, []loader.Upload{
		{Name: "a.txt", Data: []byte("Instructor: Dr. Jane Doe\n")},
		{Name: "b.png", Data: []byte{0x89, 'P', 'N', 'G'}},
	})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, "ENG 101 Composition I", tbl.Rows[0].Values["Course Name & Number"])
	assert.Equal(t, constants.DocumentStatusFailed, tbl.Rows[1].Status)

	got, err := svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.DocumentCount)

	row, err := svc.UpdateCell(ctx, sess.ID, 0, "Faculty Name", "Dr. J. Doe")
	require.NoError(t, err)
	assert.Equal(t, constants.OriginUser, row.Origins["Faculty Name"])

	text, err := svc.Text(ctx, sess.ID, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "Dr. Jane Doe")

	data, err := svc.Export(ctx, sess.ID, export.Options{})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Review", "B2")
	require.NoError(t, err)
	assert.Equal(t, "Dr. J. Doe", v)

	got, err = svc.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ExportedAt)

	// a new batch replaces the table and drops the edit
	tbl, err = svc.Process(ctx, sess.ID, []loader.Upload{{Name: "c.txt", Data: []byte("Instructor: Prof. Alan Smith\n")}})
	require.NoError(t, err)
	require.Len(t, tbl.Rows, 1)
	reloaded, err := svc.Table(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Rows, 1)
	assert.Equal(t, "Prof. Alan Smith", reloaded.Rows[0].Values["Faculty Name"])

	require.NoError(t, svc.Delete(ctx, sess.ID))
	_, err = svc.Table(ctx, sess.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_TemplateRules(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, common.SessionConfig{})

	tpl, err := template.Parse("review.yaml", []byte(`
columns:
  - Faculty Name
  - name: Modality
    rules:
      - kind: label
        pattern: 'Delivery\s*:\s*(.+)'
`))
	require.NoError(t, err)
	sess, err := svc.Create(ctx, tpl)
	require.NoError(t, err)

	tbl, err := svc.Process(ctx, sess.ID, []loader.Upload{{Name: "a.txt", Data: []byte("Instructor: Dr. Jane Doe\nDelivery: Online\n")}})
	require.NoError(t, err)
	assert.Equal(t, "Online", tbl.Rows[0].Values["Modality"])
	assert.Equal(t, "Dr. Jane Doe", tbl.Rows[0].Values["Faculty Name"])
}

func TestService_ProcessIntakeKeepsSkippedFiles(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, common.SessionConfig{})

	sess, err := svc.Create(ctx, mustTemplate(t, "Faculty Name"))
	require.NoError(t, err)
	tbl, err := svc.ProcessIntake(ctx, sess.ID,
		[]loader.Upload{{Name: "a.txt", Data: []byte("Instructor: Dr. Jane Doe\n")}},
		[]string{"big.pdf: larger than 1024 bytes"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"big.pdf: larger than 1024 bytes"}, tbl.Warnings)

	data, err := svc.Export(ctx, sess.ID, export.Options{IncludeWarnings: true})
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Warnings", "A2")
	require.NoError(t, err)
	assert.Equal(t, "big.pdf: larger than 1024 bytes", v)
}

func TestService_CreateRejectsEmptyTemplate(t *testing.T) {
	svc, _ := newTestService(t, nil, common.SessionConfig{})
	_, err := svc.Create(context.Background(), &template.Template{Name: "x.csv"})
	assert.ErrorIs(t, err, common.ErrTemplateSchema)
}

func TestService_UpdateCellErrors(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, nil, common.SessionConfig{})
	sess, err := svc.Create(ctx, mustTemplate(t, "Faculty Name"))
	require.NoError(t, err)
	_, err = svc.Process(ctx, sess.ID, []loader.Upload{{Name: "a.txt", Data: []byte("Instructor: Dr. Jane Doe\n")}})
	require.NoError(t, err)

	_, err = svc.UpdateCell(ctx, sess.ID, 0, "", "x")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = svc.UpdateCell(ctx, sess.ID, 0, constants.ProvenanceColumn, "x")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
	_, err = svc.UpdateCell(ctx, sess.ID, 3, "Faculty Name", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.UpdateCell(ctx, uuid.New(), 0, "Faculty Name", "x")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_MaxSessionsEvictsOldest(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t, nil, common.SessionConfig{MaxSessions: 2})

	first, err := svc.Create(ctx, mustTemplate(t, "A"))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	second, err := svc.Create(ctx, mustTemplate(t, "A"))
	require.NoError(t, err)
	clk.Advance(time.Minute)
	// touching the first makes the second the least recently used
	require.NoError(t, svc.KeepAlive(ctx, first.ID))
	clk.Advance(time.Minute)
	third, err := svc.Create(ctx, mustTemplate(t, "A"))
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	var ids []uuid.UUID
	for _, s := range list {
		ids = append(ids, s.ID)
	}
	assert.ElementsMatch(t, []uuid.UUID{first.ID, third.ID}, ids)
	_, err = svc.Get(ctx, second.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestService_Cleanup(t *testing.T) {
	ctx := context.Background()
	svc, clk := newTestService(t, nil, common.SessionConfig{TTL: 30 * time.Minute})

	stale, err := svc.Create(ctx, mustTemplate(t, "A"))
	require.NoError(t, err)
	clk.Advance(20 * time.Minute)
	fresh, err := svc.Create(ctx, mustTemplate(t, "A"))
	require.NoError(t, err)
	clk.Advance(15 * time.Minute)

	n, err := svc.Cleanup(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = svc.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = svc.Get(ctx, fresh.ID)
	assert.NoError(t, err)
}

func TestService_RunStopsWithContext(t *testing.T) {
	svc, _ := newTestService(t, nil, common.SessionConfig{TTL: time.Minute, CleanupInterval: time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, err := ParseID(" " + id.String() + " ")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseID("nope")
	assert.ErrorIs(t, err, common.ErrValidation)
	_, err = ParseID("")
	assert.ErrorIs(t, err, common.ErrValidation)
}

// pausingDocuments holds the next LoadTable until release is closed.
type pausingDocuments struct {
	repository.DocumentRepository
	loading chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *pausingDocuments) LoadTable(ctx context.Context, id uuid.UUID, columns []string) (*table.ResultTable, error) {
	p.once.Do(func() {
		close(p.loading)
		<-p.release
	})
	return p.DocumentRepository.LoadTable(ctx, id, columns)
}

func TestService_EditDuringNewBatchDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t, llm.NewMock(), common.SessionConfig{MaxSessions: 5, TTL: time.Hour})

	sess, err := svc.Create(ctx, mustTemplate(t, "Faculty Name"))
	require.NoError(t, err)
	_, err = svc.Process(ctx, sess.ID, []loader.Upload{{Name: "a.txt", Data: []byte("Instructor: Dr. Jane Doe\n")}})
	require.NoError(t, err)

	docs := &pausingDocuments{
		DocumentRepository: svc.documents,
		loading:            make(chan struct{}),
		release:            make(chan struct{}),
	}
	svc.documents = docs

	var wg sync.WaitGroup
	var editErr, batchErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, editErr = svc.UpdateCell(ctx, sess.ID, 0, "Faculty Name", "Edited")
	}()
	<-docs.loading

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, batchErr = svc.Process(ctx, sess.ID, []loader.Upload{{Name: "b.txt", Data: []byte("Instructor: Prof. Alan Smith\n")}})
	}()
	// give the batch time to reach the store before the edit is saved
	time.Sleep(100 * time.Millisecond)
	close(docs.release)
	wg.Wait()
	require.NoError(t, editErr)
	require.NoError(t, batchErr)

	got, err := svc.Table(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "b.txt", got.Rows[0].SourceName)
	assert.Equal(t, "Prof. Alan Smith", got.Rows[0].Values["Faculty Name"])
	assert.NotEqual(t, constants.OriginUser, got.Rows[0].Origins["Faculty Name"])
}
