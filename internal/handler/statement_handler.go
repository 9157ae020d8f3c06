package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cleared-dev/bankfeed/internal/export"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

// StatementHandlerConfig holds the request defaults taken from bankfeed.yaml.
type StatementHandlerConfig struct {
	DefaultFormat    string
	ValidateBalances bool
	MaxBodyBytes     int64
}

type StatementHandler struct {
	parser *statement.Parser
	cfg    StatementHandlerConfig
	logger *logger.Logger
}

func NewStatementHandler(parser *statement.Parser, cfg StatementHandlerConfig, log *logger.Logger) *StatementHandler {
	return &StatementHandler{
		parser: parser,
		cfg:    cfg,
		logger: log,
	}
}

var (
	errEmptyBody    = errors.New("statement content is required")
	errBodyTooLarge = errors.New("statement content exceeds the size limit")
)

// Parse handles POST /statements/parse. The statement is the raw request
// body, or the "file" part of a multipart form.
func (h *StatementHandler) Parse(c echo.Context) error {
	ctx := c.Request().Context()

	format := c.QueryParam("format")
	if format == "" {
		format = h.cfg.DefaultFormat
	}

	validate := h.cfg.ValidateBalances
	if v := c.QueryParam("validate"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{
				"error": "validate must be a boolean",
			})
		}
		validate = b
	}

	content, err := h.readContent(c)
	switch {
	case errors.Is(err, errEmptyBody):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, errBodyTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case err != nil:
		h.logger.Error(ctx, "Failed to read statement content", "error", err)
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read statement content"})
	}

	res, err := h.parser.Parse(content, format)
	if err != nil {
		var fe *statement.FormatError
		if errors.As(err, &fe) {
			h.logger.Warn(ctx, "Rejected statement", "error", err, "declared", format)
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		}
		h.logger.Error(ctx, "Failed to parse statement", "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "failed to parse statement"})
	}

	for _, d := range res.Diagnostics {
		h.logger.Warn(ctx, "Dropped statement input",
			"format", d.Format,
			"line", d.Line,
			"record", d.Record,
			"reason", d.Reason,
		)
	}

	var validation []statement.ValidationError
	if validate {
		validation = statement.Validate(res.Statements)
	}

	h.logger.Info(ctx, "Parsed statement",
		"statements", len(res.Statements),
		"transactions", res.TransactionCount(),
		"diagnostics", len(res.Diagnostics),
		"validation_errors", len(validation),
	)

	return c.JSON(http.StatusOK, export.NewDocument(res, validation))
}

func (h *StatementHandler) readContent(c echo.Context) (string, error) {
	var r io.Reader = c.Request().Body

	if strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm) {
		file, err := c.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return "", errEmptyBody
			}
			return "", fmt.Errorf("reading multipart form: %w", err)
		}
		if h.cfg.MaxBodyBytes > 0 && file.Size > h.cfg.MaxBodyBytes {
			return "", errBodyTooLarge
		}
		src, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("opening uploaded file: %w", err)
		}
		defer src.Close()
		r = src
	}

	if h.cfg.MaxBodyBytes > 0 {
		r = io.LimitReader(r, h.cfg.MaxBodyBytes+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	if h.cfg.MaxBodyBytes > 0 && int64(len(data)) > h.cfg.MaxBodyBytes {
		return "", errBodyTooLarge
	}
	if strings.TrimSpace(string(data)) == "" {
		return "", errEmptyBody
	}
	return string(data), nil
}
