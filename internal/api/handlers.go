package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/joseph-ayodele/syllabus-review/internal/export"
	"github.com/joseph-ayodele/syllabus-review/internal/loader"
	"github.com/joseph-ayodele/syllabus-review/internal/services/session"
	"github.com/joseph-ayodele/syllabus-review/internal/template"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Handler serves the review API on top of the session service.
type Handler struct {
	sessions *session.Service
	health   func(ctx context.Context) error
	version  string
	logger   *slog.Logger
}

// NewHandler creates a new API handler. health may be nil.
func NewHandler(sessions *session.Service, health func(ctx context.Context) error, version string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{sessions: sessions, health: health, version: version, logger: logger}
}

type createSessionRequest struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

type updateCellRequest struct {
	Column string  `json:"column"`
	Value  *string `json:"value"`
}

type textResponse struct {
	Row  int    `json:"row"`
	Text string `json:"text"`
}

// HandleHealth reports liveness and store health.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := map[string]string{"status": "ok", "version": h.version}
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			return c.JSON(http.StatusServiceUnavailable, status)
		}
	}
	return c.JSON(http.StatusOK, status)
}

// HandleCreateSession starts a session from a multipart "template" file, or from a
// JSON body listing the columns.
func (h *Handler) HandleCreateSession(c echo.Context) error {
	var (
		tpl *template.Template
		err error
	)
	if fh, ferr := c.FormFile("template"); ferr == nil {
		data, rerr := readFormFile(fh)
		if rerr != nil {
			return NewBadRequestError("could not read template upload", rerr)
		}
		tpl, err = template.Parse(fh.Filename, data)
	} else {
		var req createSessionRequest
		if berr := c.Bind(&req); berr != nil {
			return NewBadRequestError("expected a multipart template file or a JSON column list", berr)
		}
		if len(req.Columns) == 0 {
			return NewValidationError("template")
		}
		name := req.Name
		if name == "" {
			name = "inline"
		}
		tpl, err = template.New(name, req.Columns)
	}
	if err != nil {
		return err
	}

	sess, err := h.sessions.Create(c.Request().Context(), tpl)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, sess)
}

func (h *Handler) HandleGetSession(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	sess, err := h.sessions.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sess)
}

func (h *Handler) HandleDeleteSession(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.sessions.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleKeepAlive(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	if err := h.sessions.KeepAlive(c.Request().Context(), id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// HandleUploadDocuments runs a batch over the multipart "files" and returns the new table.
func (h *Handler) HandleUploadDocuments(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected multipart form data", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return NewValidationError("files")
	}
	uploads := make([]loader.Upload, 0, len(files))
	for _, fh := range files {
		data, err := readFormFile(fh)
		if err != nil {
			return NewBadRequestError("could not read upload "+fh.Filename, err)
		}
		uploads = append(uploads, loader.Upload{Name: fh.Filename, Data: data})
	}

	tbl, err := h.sessions.Process(c.Request().Context(), id, uploads)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

func (h *Handler) HandleGetTable(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	tbl, err := h.sessions.Table(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tbl)
}

// HandleGetTableMsgpack returns the table in MessagePack, keyed like the JSON form.
func (h *Handler) HandleGetTableMsgpack(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	tbl, err := h.sessions.Table(c.Request().Context(), id)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(tbl); err != nil {
		return fmt.Errorf("encode msgpack: %w", err)
	}
	return c.Blob(http.StatusOK, "application/msgpack", buf.Bytes())
}

func (h *Handler) HandleUpdateCell(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		return NewValidationError("row")
	}
	var req updateCellRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.Value == nil {
		return NewValidationError("value")
	}

	updated, err := h.sessions.UpdateCell(c.Request().Context(), id, row, req.Column, *req.Value)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) HandleGetText(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	row, err := strconv.Atoi(c.Param("row"))
	if err != nil {
		return NewValidationError("row")
	}
	text, err := h.sessions.Text(c.Request().Context(), id, row)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, textResponse{Row: row, Text: text})
}

// HandleExport streams the table as an xlsx attachment. ?warnings=true and
// ?origins=true add the extra sheets.
func (h *Handler) HandleExport(c echo.Context) error {
	id, err := session.ParseID(c.Param("id"))
	if err != nil {
		return err
	}
	var opts export.Options
	if opts.IncludeWarnings, err = queryBool(c, "warnings"); err != nil {
		return err
	}
	if opts.IncludeOrigins, err = queryBool(c, "origins"); err != nil {
		return err
	}

	data, err := h.sessions.Export(c.Request().Context(), id, opts)
	if err != nil {
		return err
	}
	filename := fmt.Sprintf("syllabus-review-%s.xlsx", id.String()[:8])
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

func queryBool(c echo.Context, name string) (bool, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, NewValidationError(name)
	}
	return v, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

