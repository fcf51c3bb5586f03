package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/extract"
	"github.com/joseph-ayodele/syllabus-review/internal/llm"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
	"github.com/joseph-ayodele/syllabus-review/internal/repository"
	"github.com/joseph-ayodele/syllabus-review/internal/services/session"
	"github.com/joseph-ayodele/syllabus-review/internal/table"
)

func newTestServer(t *testing.T, health func(context.Context) error) *echo.Echo {
	t.Helper()
	drv, err := repository.Open(context.Background(), repository.Config{Name: "api-" + uuid.NewString()}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repository.Close(drv, nil) })

	proc := core.NewProcessor(nil,
		loader.New(loader.Config{}, nil),
		extract.NewExtractor(nil, nil),
		core.NewResolver(llm.NewMock(llm.MockStep{Answer: llm.FieldAnswer{Value: "ENG 101 Composition I", Found: true}}), core.ResolverConfig{}, nil),
		2, 0,
	)
	svc := session.NewService(
		repository.NewSessionRepository(drv, nil),
		repository.NewDocumentRepository(drv, nil),
		proc, nil, nil, common.SessionConfig{MaxSessions: 5}, nil,
	)
	return NewServer(NewHandler(svc, health, "test", nil), "1M", nil)
}

func do(e *echo.Echo, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func multipartBody(t *testing.T, field string, files map[string]string, order ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := new(bytes.Buffer)
	w := multipart.NewWriter(body)
	for _, name := range order {
		part, err := w.CreateFormFile(field, name)
		require.NoError(t, err)
		_, err = part.Write([]byte(files[name]))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func decodeAPIError(t *testing.T, rec *httptest.ResponseRecorder) APIError {
	t.Helper()
	var out APIError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func createSession(t *testing.T, e *echo.Echo, columns ...string) string {
	t.Helper()
	raw, err := json.Marshal(createSessionRequest{Columns: columns})
	require.NoError(t, err)
	rec := do(e, http.MethodPost, "/api/sessions", bytes.NewReader(raw), echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	return sess.ID.String()
}

func TestHealth(t *testing.T) {
	e := newTestServer(t, nil)
	rec := do(e, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	e = newTestServer(t, func(context.Context) error { return errors.New("store down") })
	rec = do(e, http.MethodGet, "/health", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestReviewFlow(t *testing.T) {
	e := newTestServer(t, nil)
	id := createSession(t, e, "Course Name & Number", "Faculty Name")

	body, ct := multipartBody(t, "files", map[string]string{
		"a.txt": "Instructor: Dr. Jane Doe\n",
		"b.png": "not an image we read",
	}, "a.txt", "b.png")
	rec := do(e, http.MethodPost, "/api/sessions/"+id+"/documents", body, ct)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var tbl table.ResultTable
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tbl))
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, 2, tbl.DocumentCount)
	assert.Equal(t, "Dr. Jane Doe", tbl.Rows[0].Values["Faculty Name"])
	assert.Equal(t, "ENG 101 Composition I", tbl.Rows[0].Values["Course Name & Number"])
	assert.Equal(t, common.CodeUnsupportedFormat, tbl.Rows[1].ErrorCode)

	rec = do(e, http.MethodPut, "/api/sessions/"+id+"/rows/0",
		strings.NewReader(`{"column":"Faculty Name","value":"Dr. J. Doe"}`), echo.MIMEApplicationJSON)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"Dr. J. Doe"`)

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/table", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"Dr. J. Doe"`)

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/table/msgpack", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/msgpack", rec.Header().Get(echo.HeaderContentType))
	var packed map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &packed))
	assert.Contains(t, packed, "rows")
	assert.Contains(t, packed, "columns")

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/rows/0/text", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Instructor: Dr. Jane Doe")

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/export?warnings=true", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))

	rec = do(e, http.MethodPost, "/api/sessions/"+id+"/keepalive", nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodDelete, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(e, http.MethodGet, "/api/sessions/"+id, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, common.CodeNotFound, decodeAPIError(t, rec).Code)
}

func TestCreateSession_TemplateUpload(t *testing.T) {
	e := newTestServer(t, nil)

	body, ct := multipartBody(t, "template", map[string]string{"review.csv": "Course,Faculty Name\n"}, "review.csv")
	rec := do(e, http.MethodPost, "/api/sessions", body, ct)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"columns":["Course","Faculty Name"]`)

	body, ct = multipartBody(t, "template", map[string]string{"dup.csv": "Course,course\n"}, "dup.csv")
	rec = do(e, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, common.CodeTemplateSchema, decodeAPIError(t, rec).Code)

	body, ct = multipartBody(t, "template", map[string]string{"t.json": "{}"}, "t.json")
	rec = do(e, http.MethodPost, "/api/sessions", body, ct)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = do(e, http.MethodPost, "/api/sessions", strings.NewReader(`{"columns":[]}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestErrors(t *testing.T) {
	e := newTestServer(t, nil)
	id := createSession(t, e, "Faculty Name")

	rec := do(e, http.MethodGet, "/api/sessions/not-a-uuid/table", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decodeAPIError(t, rec).Code)

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/rows/x/text", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/rows/4/text", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(e, http.MethodPut, "/api/sessions/"+id+"/rows/0", strings.NewReader(`{"column":"Faculty Name"}`), echo.MIMEApplicationJSON)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, ct := multipartBody(t, "other", map[string]string{"a.txt": "x"}, "a.txt")
	rec = do(e, http.MethodPost, "/api/sessions/"+id+"/documents", body, ct)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(e, http.MethodGet, "/api/sessions/"+id+"/export?origins=maybe", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-123")
	rr := httptest.NewRecorder()
	e.ServeHTTP(rr, req)
	assert.Equal(t, "req-123", rr.Header().Get(echo.HeaderXRequestID))
}

func TestFromError(t *testing.T) {
	tests := map[string]struct {
		err    error
		status int
	}{
		"template":    {common.TemplateSchemaError("bad"), http.StatusUnprocessableEntity},
		"not found":   {common.NewAppError(common.CodeNotFound, "gone", common.ErrNotFound), http.StatusNotFound},
		"invalid":     {common.NewAppError(common.CodeInvalidInput, "no", common.ErrInvalidInput), http.StatusBadRequest},
		"deadline":    {context.DeadlineExceeded, http.StatusGatewayTimeout},
		"api error":   {NewValidationError("x"), http.StatusBadRequest},
		"echo error":  {echo.NewHTTPError(http.StatusMethodNotAllowed, "nope"), http.StatusMethodNotAllowed},
		"unexpected":  {errors.New("boom"), http.StatusInternalServerError},
		"unsupported": {common.UnsupportedFormatError("a.png", "png"), http.StatusUnsupportedMediaType},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got := FromError(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.NotEmpty(t, got.Code)
		})
	}
	assert.Equal(t, "an unexpected error occurred", FromError(errors.New("secret detail")).Message)
}
