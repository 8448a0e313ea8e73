package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bankpipe/internal/forecast"
	"bankpipe/internal/report"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	_, err := report.WriteTransactionsCSV(sampleTxs(), dir)
	require.NoError(t, err)
	_, err = report.WriteForecastCSV([]forecast.Point{
		{Date: civil.Date{Year: 2024, Month: 3, Day: 2}, Amount: 40},
		{Date: civil.Date{Year: 2024, Month: 3, Day: 3}, Amount: 42},
	}, dir)
	require.NoError(t, err)

	summary := &report.Summary{RunID: "run-1"}
	summary.AddStage("narrative", report.StageSkipped, "narrative analysis disabled")
	summary.AddStage("forecast", report.StageOK, "")
	_, err = report.WriteSummary(summary, dir)
	require.NoError(t, err)

	srv := NewServer(dir, zerolog.Nop())
	require.NoError(t, srv.Reload())
	return srv, dir
}

func getJSON(t *testing.T, h http.Handler, url string, out any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func TestTransactionsEndpoint(t *testing.T) {
	srv, _ := testServer(t)
	h := srv.Handler()

	var resp struct {
		Count        int `json:"count"`
		Transactions []struct {
			ID        string `json:"id"`
			Anomalous bool   `json:"anomalous"`
		} `json:"transactions"`
	}

	rec := getJSON(t, h, "/api/transactions", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, resp.Count)

	rec = getJSON(t, h, "/api/transactions?categories=Expense&anomaly=only", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "c", resp.Transactions[0].ID)
	assert.True(t, resp.Transactions[0].Anomalous)
}

func TestTransactionsEndpoint_BadQuery(t *testing.T) {
	srv, _ := testServer(t)
	rec := getJSON(t, srv.Handler(), "/api/transactions?anomaly=nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSummaryEndpoint_HonorsFilters(t *testing.T) {
	srv, _ := testServer(t)

	var resp SummaryResponse
	rec := getJSON(t, srv.Handler(), "/api/summary?from=2024-02-01", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, resp.Count)
	assert.Equal(t, 1, resp.Anomalies)
}

func TestForecastEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	var resp struct {
		Days   int              `json:"days"`
		Points []forecast.Point `json:"points"`
	}
	rec := getJSON(t, srv.Handler(), "/api/forecast", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, resp.Days)
	require.Len(t, resp.Points, 2)
	assert.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 2}, resp.Points[0].Date)
}

func TestStatusEndpoint_DegradedMarkers(t *testing.T) {
	srv, _ := testServer(t)

	var resp StatusResponse
	rec := getJSON(t, srv.Handler(), "/api/status", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "run-1", resp.RunID)
	assert.True(t, resp.NarrativeSkipped)
	assert.False(t, resp.ForecastSkipped)
}

func TestStatusEndpoint_NoSummary(t *testing.T) {
	srv := NewServer(t.TempDir(), zerolog.Nop())
	require.NoError(t, srv.Reload())

	var resp StatusResponse
	rec := getJSON(t, srv.Handler(), "/api/status", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no run summary found", resp.Message)
}

func TestReloadEndpoint_PicksUpNewRun(t *testing.T) {
	srv, dir := testServer(t)
	h := srv.Handler()

	// Overwrite the artifacts with a smaller run, then reload.
	_, err := report.WriteTransactionsCSV(sampleTxs()[:2], dir)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/reload", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	var resp struct {
		Count int `json:"count"`
	}
	getJSON(t, h, "/api/transactions", &resp)
	assert.Equal(t, 2, resp.Count)
}

func TestReload_MissingArtifactsTolerated(t *testing.T) {
	srv := NewServer(t.TempDir(), zerolog.Nop())
	require.NoError(t, srv.Reload())

	var resp struct {
		Count int `json:"count"`
	}
	rec := getJSON(t, srv.Handler(), "/api/transactions", &resp)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, resp.Count)
}

func TestHealthz(t *testing.T) {
	srv, _ := testServer(t)
	rec := getJSON(t, srv.Handler(), "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStaticIndexServed(t *testing.T) {
	srv, _ := testServer(t)
	rec := getJSON(t, srv.Handler(), "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bank Statement Dashboard")
}
