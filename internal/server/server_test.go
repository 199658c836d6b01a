package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupulse/healthwatch/internal/server"
	"github.com/edupulse/healthwatch/pkg/engine"
	"github.com/edupulse/healthwatch/pkg/model"
	"github.com/edupulse/healthwatch/pkg/oracle"
	"github.com/edupulse/healthwatch/pkg/storage"
)

type fakeOracle struct {
	candidates []model.Alert
	err        error
}

func (f *fakeOracle) Analyze(_ context.Context, accounts []model.AccountSummary, _ []model.OpenAlertSummary, _ int) (*oracle.Analysis, error) {
	if f.err != nil {
		return nil, f.err
	}
	now := time.Now().UTC()
	out := make([]model.Alert, len(f.candidates))
	for i, c := range f.candidates {
		c.ID = fmt.Sprintf("alert-%d", i)
		c.Status = model.StatusNew
		c.CreatedAt = now
		c.MetricsSnapshot = fmt.Sprintf(`{"accounts_analyzed": %d}`, len(accounts))
		c.Fingerprint = model.Fingerprint(c.Type, c.AccountID, c.Title)
		out[i] = c
	}
	return &oracle.Analysis{Candidates: out, TokensUsed: 900, ModelUsed: "fake-scorer"}, nil
}

func newTestServer(t *testing.T, o oracle.Oracle) (*server.Server, *storage.Memory) {
	t.Helper()
	store := storage.NewMemory()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	snapshots := func(context.Context) ([]model.AccountSummary, error) {
		return []model.AccountSummary{
			{AccountID: "school-1", AccountName: "Northside Elementary", HealthScore: 32, Trend: model.TrendDown},
		}, nil
	}
	gen := engine.NewGenerator(store, o, snapshots, engine.GeneratorConfig{}, logger)
	lc := engine.NewLifecycle(store, logger)
	return server.New(store, gen, lc, logger), store
}

func doRequest(t *testing.T, s *server.Server, method, path string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func healthyOracle() *fakeOracle {
	return &fakeOracle{candidates: []model.Alert{{
		Type:        model.TypeChurnRisk,
		Severity:    model.SeverityCritical,
		AccountID:   "school-1",
		AccountName: "Northside Elementary",
		Title:       "Critical activity drop",
	}}}
}

func TestServer_Health(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ok"}`, rec.Body.String())
}

func TestServer_AlertsEmpty(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodGet, "/api/v1/alerts", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestServer_AlertsInvalidLimit(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodGet, "/api/v1/alerts?limit=banana", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GenerateFromConfiguredSource(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 1, res.AccountsAnalyzed)
	assert.Equal(t, 1, res.AlertsGenerated)
	assert.Equal(t, "fake-scorer", res.ModelUsed)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/alerts", nil)
	var alerts []model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)
	assert.Equal(t, model.StatusNew, alerts[0].Status)
}

func TestServer_GenerateInlineAccounts(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	body := strings.NewReader(`{"accounts": [
		{"account_id": "school-7", "account_name": "Lakeside Middle", "health_score": 45, "trend": "down"},
		{"account_id": "school-8", "account_name": "Westgate Prep", "health_score": 70, "trend": "flat"}
	]}`)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 2, res.AccountsAnalyzed)
}

func TestServer_GenerateBadBody(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", strings.NewReader(`{"accounts": [`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_GenerateOracleFailure(t *testing.T) {
	s, _ := newTestServer(t, &fakeOracle{err: fmt.Errorf("upstream 503: %w", oracle.ErrAnalysisFailed)})

	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	var res engine.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, 0, res.AlertsGenerated)
}

func TestServer_StatusTransition(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, s, http.MethodGet, "/api/v1/alerts", nil)
	var alerts []model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)

	body := strings.NewReader(`{"status": "acknowledged", "notes": "looking into it"}`)
	rec = doRequest(t, s, http.MethodPost, "/api/v1/alerts/"+alerts[0].ID+"/status", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var updated model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, model.StatusAcknowledged, updated.Status)
	assert.NotNil(t, updated.AcknowledgedAt)
	assert.Equal(t, "looking into it", updated.ResolutionNotes)
}

func TestServer_StatusInvalidTransition(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodPost, "/api/v1/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(t, s, http.MethodGet, "/api/v1/alerts", nil)
	var alerts []model.Alert
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &alerts))
	require.Len(t, alerts, 1)

	// new alerts cannot jump straight to resolved
	body := strings.NewReader(`{"status": "resolved"}`)
	rec = doRequest(t, s, http.MethodPost, "/api/v1/alerts/"+alerts[0].ID+"/status", body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_StatusUnknownAlert(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	body := strings.NewReader(`{"status": "acknowledged"}`)
	rec := doRequest(t, s, http.MethodPost, "/api/v1/alerts/no-such-alert/status", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_Generations(t *testing.T) {
	s, _ := newTestServer(t, healthyOracle())

	rec := doRequest(t, s, http.MethodGet, "/api/v1/generations", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = doRequest(t, s, http.MethodPost, "/api/v1/generate", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/generations", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var batches []model.GenerationBatch
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &batches))
	require.Len(t, batches, 1)
	assert.Equal(t, 1, batches[0].AlertsGenerated)
	assert.Equal(t, int64(900), batches[0].TokensUsed)
}
