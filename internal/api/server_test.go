package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/piwi3910/BarCut/internal/engine"
	"github.com/piwi3910/BarCut/internal/model"
)

func testServer() *Server {
	gin.SetMode(gin.TestMode)
	s := model.DefaultSettings()
	s.ILPTimeoutMs = 2000
	s.ILPNodeLimit = 2000
	return NewServer(s)
}

func post(t *testing.T, srv *Server, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	srv := testServer()
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestOptimize_Success(t *testing.T) {
	srv := testServer()
	req := OptimizeRequest{
		Pieces: []model.ProfilePiece{{Profile: "IPE100", Orientation: "a-plat", Length: 2500, Quantity: 3}},
		Bars:   []model.ProfileBar{{Profile: "IPE100", Length: 6000, Quantity: 2}},
	}

	w := post(t, srv, "/api/v1/optimize", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Errors)
	require.Len(t, resp.Result.Models, 1)
	m := resp.Result.Models[0]
	assert.Equal(t, "IPE100_a-plat", m.ModelKey)
	require.NotNil(t, m.Selected)
	assert.Equal(t, 2, m.Selected.Result.BarsUsed())
	assert.Equal(t, 62.5, resp.Result.Global.UtilizationRate)
}

func TestOptimize_InfeasibleModelStillReturnsResult(t *testing.T) {
	srv := testServer()
	req := OptimizeRequest{
		Pieces: []model.ProfilePiece{
			{Profile: "IPE100", Orientation: "a-plat", Length: 2500, Quantity: 2},
			{Profile: "HEA200", Orientation: "debout", Length: 9000, Quantity: 1},
		},
		Bars: []model.ProfileBar{
			{Profile: "IPE100", Length: 6000, Quantity: 1},
			{Profile: "HEA200", Length: 6000, Quantity: 5},
		},
	}

	w := post(t, srv, "/api/v1/optimize", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Errors, 1)
	assert.Contains(t, resp.Errors[0], "HEA200_debout")
	require.Len(t, resp.Result.Models, 2)
	assert.Equal(t, 1, resp.Result.Global.SolvedModels)
}

func TestOptimize_MalformedInput(t *testing.T) {
	srv := testServer()

	tests := []struct {
		name string
		body interface{}
	}{
		{"invalid json", `{"pieces": [`},
		{"no pieces", OptimizeRequest{Pieces: []model.ProfilePiece{}}},
		{"zero length", OptimizeRequest{
			Pieces: []model.ProfilePiece{{Profile: "P", Length: 0, Quantity: 1}},
			Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 1}},
		}},
		{"negative stock", OptimizeRequest{
			Pieces: []model.ProfilePiece{{Profile: "P", Length: 100, Quantity: 1}},
			Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: -1}},
		}},
		{"too many pieces", OptimizeRequest{
			Pieces: []model.ProfilePiece{{Profile: "P", Length: 100, Quantity: model.MaxModelPieces + 1}},
			Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: model.UnlimitedQuantity}},
		}},
		{"unknown algorithm", OptimizeRequest{
			Pieces:   []model.ProfilePiece{{Profile: "P", Length: 100, Quantity: 1}},
			Bars:     []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 1}},
			Settings: &model.Settings{Algorithm: "genetic"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, srv, "/api/v1/optimize", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestOptimize_RequestSettingsOverrideDefaults(t *testing.T) {
	srv := testServer()
	req := OptimizeRequest{
		Pieces:   []model.ProfilePiece{{Profile: "P", Length: 1000, Quantity: 4}},
		Bars:     []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: model.UnlimitedQuantity}},
		Settings: &model.Settings{Algorithm: "FFD"},
	}

	w := post(t, srv, "/api/v1/optimize", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp OptimizeResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Models, 1)
	require.NotNil(t, resp.Result.Models[0].Selected)
	assert.Equal(t, model.AlgorithmFFD, resp.Result.Models[0].Selected.AlgoUsed)
}

func TestPrepare_ClampsRequestSettings(t *testing.T) {
	srv := testServer()
	settings, models, err := srv.prepare(OptimizeRequest{
		Pieces:   []model.ProfilePiece{{Profile: "P", Length: 1000, Quantity: 1}},
		Bars:     []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 1}},
		Settings: &model.Settings{ILPTimeoutMs: 1 << 40, ExhaustiveNodeLimit: 1 << 40},
	})

	require.NoError(t, err)
	require.Len(t, models, 1)
	assert.Equal(t, model.MaxSettings.ILPTimeoutMs, settings.ILPTimeoutMs)
	assert.Equal(t, model.MaxSettings.ExhaustiveNodeLimit, settings.ExhaustiveNodeLimit)
}

func TestCompare_DefaultScenarios(t *testing.T) {
	srv := testServer()
	req := CompareRequest{OptimizeRequest: OptimizeRequest{
		Pieces: []model.ProfilePiece{{Profile: "P", Length: 1500, Quantity: 4}},
		Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 2}},
	}}

	w := post(t, srv, "/api/v1/compare", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "Current Settings", resp.Results[0].Scenario.Name)
	for _, r := range resp.Results {
		assert.Empty(t, r.Error, r.Scenario.Name)
		assert.Equal(t, 1, r.BarsUsed, r.Scenario.Name)
	}
}

func TestCompare_CustomScenarios(t *testing.T) {
	srv := testServer()
	req := CompareRequest{
		OptimizeRequest: OptimizeRequest{
			Pieces: []model.ProfilePiece{{Profile: "P", Length: 1500, Quantity: 4}},
			Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 2}},
		},
		Scenarios: []engine.ComparisonScenario{
			{Name: "heuristic", Settings: model.Settings{Algorithm: model.AlgorithmFFD}},
			{Name: "exact", Settings: model.Settings{Algorithm: model.AlgorithmILP, ILPTimeoutMs: 2000, ILPNodeLimit: 2000}},
		},
	}

	w := post(t, srv, "/api/v1/compare", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CompareResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "heuristic", resp.Results[0].Scenario.Name)
	assert.Equal(t, "exact", resp.Results[1].Scenario.Name)
}

func TestCompare_BadScenarioAlgorithm(t *testing.T) {
	srv := testServer()
	req := CompareRequest{
		OptimizeRequest: OptimizeRequest{
			Pieces: []model.ProfilePiece{{Profile: "P", Length: 1500, Quantity: 1}},
			Bars:   []model.ProfileBar{{Profile: "P", Length: 6000, Quantity: 1}},
		},
		Scenarios: []engine.ComparisonScenario{{Name: "bad", Settings: model.Settings{Algorithm: "annealing"}}},
	}

	w := post(t, srv, "/api/v1/compare", req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "bad")
}

func TestErrorStringsFlattensJoinedErrors(t *testing.T) {
	a := &model.InfeasibleModelError{ModelKey: "A_x", PieceLength: 10}
	b := &model.InfeasibleModelError{ModelKey: "B_x", PieceLength: 20, MaxStockLength: 5}

	assert.Empty(t, errorStrings(nil))
	assert.NotNil(t, errorStrings(nil))
	joined := errors.Join(a, b)
	assert.Len(t, errorStrings(joined), 2)
	assert.True(t, onlyInfeasible(joined))
	assert.False(t, onlyInfeasible(errors.Join(a, model.ErrMalformedInput)))
}
