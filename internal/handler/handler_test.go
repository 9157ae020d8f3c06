package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bankfeed/internal/export"
	"github.com/cleared-dev/bankfeed/internal/logger"
	"github.com/cleared-dev/bankfeed/internal/statement"
)

const mt940Body = ":20:STMT1\n:25:NL91ABNA0417164300\n:60F:C240101EUR100,00\n" +
	":61:2401020102C50,00NTRFREF1\n:86:Invoice 7\n:62F:C240102EUR150,00\n-"

// ---- helpers ----

func newContext(method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMETextPlain)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func newStatementHandler(cfg StatementHandlerConfig) *StatementHandler {
	return NewStatementHandler(statement.NewParser(statement.DefaultRegistry()), cfg, logger.NewNop())
}

// ---- tests ----

func TestHealthCheck(t *testing.T) {
	c, rec := newContext(http.MethodGet, "/health", "")
	require.NoError(t, NewHealthHandler(statement.DefaultRegistry()).Check(c))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status  string   `json:"status"`
		Formats []string `json:"formats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.ElementsMatch(t, []string{"BAI2", "MT940", "CAMT053"}, body.Formats)
}

func TestStatementParse_DefaultFormatFromConfig(t *testing.T) {
	h := newStatementHandler(StatementHandlerConfig{DefaultFormat: "mt940"})
	c, rec := newContext(http.MethodPost, "/statements/parse", mt940Body)
	require.NoError(t, h.Parse(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Statements, 1)
	assert.Equal(t, "NL91ABNA0417164300", doc.Statements[0].AccountNumber)
	require.Len(t, doc.Statements[0].Transactions, 1)
	assert.Equal(t, "50.00", doc.Statements[0].Transactions[0].Amount)
	assert.Equal(t, "Invoice 7", doc.Statements[0].Transactions[0].Description)
}

func TestStatementParse_ValidateFromConfig(t *testing.T) {
	body := strings.Replace(mt940Body, "C240102EUR150,00", "C240102EUR175,00", 1)

	h := newStatementHandler(StatementHandlerConfig{DefaultFormat: "auto", ValidateBalances: true})
	c, rec := newContext(http.MethodPost, "/statements/parse", body)
	require.NoError(t, h.Parse(c))

	require.Equal(t, http.StatusOK, rec.Code)
	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	require.Len(t, doc.Validation, 1)
	assert.Equal(t, statement.CheckContinuity, doc.Validation[0].Check)
}

func TestStatementParse_QueryOverridesConfig(t *testing.T) {
	h := newStatementHandler(StatementHandlerConfig{DefaultFormat: "mt940"})
	c, rec := newContext(http.MethodPost, "/statements/parse?format=bai2", mt940Body)
	require.NoError(t, h.Parse(c))

	// Declared BAI2 decodes nothing from MT940 content but is not an error.
	require.Equal(t, http.StatusOK, rec.Code)
	var doc export.Document
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &doc))
	assert.Empty(t, doc.Statements)
}

func TestStatementParse_BodyLimit(t *testing.T) {
	h := newStatementHandler(StatementHandlerConfig{DefaultFormat: "auto", MaxBodyBytes: int64(len(mt940Body))})

	c, rec := newContext(http.MethodPost, "/statements/parse", mt940Body)
	require.NoError(t, h.Parse(c))
	assert.Equal(t, http.StatusOK, rec.Code, "body at the limit is accepted")

	c, rec = newContext(http.MethodPost, "/statements/parse", mt940Body+"\n")
	require.NoError(t, h.Parse(c))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
