package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"greenchain/credit-engine/internal/certificate"
	"greenchain/credit-engine/internal/climate"
	"greenchain/credit-engine/internal/engine"
	"greenchain/credit-engine/internal/geometry"
	"greenchain/credit-engine/internal/vegetation"
)

type steadyImagery struct{}

func (steadyImagery) FetchObservations(_ context.Context, _ *geometry.FarmPolygon, w vegetation.Window) ([]vegetation.Observation, error) {
	var out []vegetation.Observation
	for ts := w.Start; !ts.After(w.End); ts = ts.AddDate(0, 0, 30) {
		out = append(out, vegetation.Observation{
			Timestamp:  ts,
			Index:      0.65,
			CloudCover: 0.1,
			SceneID:    "API_" + ts.Format("20060102"),
		})
	}
	return out, nil
}

type calmWeather struct{}

func (calmWeather) FetchAnomaly(context.Context, *geometry.FarmPolygon, vegetation.Window) (climate.Anomaly, error) {
	return climate.Anomaly{Value: 0.1}, nil
}

func newTestRouter(t *testing.T) (*gin.Engine, certificate.Repository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := certificate.NewMemoryRepository()
	eng, err := engine.New(engine.DefaultConfig(), engine.Deps{
		Imagery:    steadyImagery{},
		Weather:    calmWeather{},
		Repository: repo,
		Now:        func() time.Time { return time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)

	router := gin.New()
	RegisterRoutes(router, NewHandler(eng, repo, nil))
	return router, repo
}

func evaluationBody() []byte {
	body, _ := json.Marshal(map[string]interface{}{
		"vertices": []map[string]float64{
			{"lat": 29.600, "lon": 76.270},
			{"lat": 29.600, "lon": 76.280},
			{"lat": 29.610, "lon": 76.280},
			{"lat": 29.610, "lon": 76.270},
		},
		"loan": map[string]interface{}{
			"farmer_id": "farmer-001",
			"amount":    10000,
			"purpose":   "seeds",
		},
	})
	return body
}

func postEvaluation(t *testing.T, router *gin.Engine) *engine.Result {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(evaluationBody()))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var result engine.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return &result
}

func TestEvaluationEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	result := postEvaluation(t, router)
	require.NotNil(t, result.Certificate)
	assert.True(t, result.Certificate.Decision.Approved)
	assert.NotEmpty(t, result.Certificate.Fingerprint)
	assert.NotEmpty(t, result.Narrative.Text)
}

func TestEvaluationRejectsBadPolygon(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"vertices": []map[string]float64{
			{"lat": 29.600, "lon": 76.270},
			{"lat": 29.600, "lon": 76.280},
		},
		"loan": map[string]interface{}{"farmer_id": "f", "amount": 100, "purpose": "seeds"},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid polygon")
}

func TestEvaluationRejectsUnknownPurpose(t *testing.T) {
	router, _ := newTestRouter(t)

	body, _ := json.Marshal(map[string]interface{}{
		"vertices": []map[string]float64{
			{"lat": 29.600, "lon": 76.270},
			{"lat": 29.600, "lon": 76.280},
			{"lat": 29.610, "lon": 76.280},
			{"lat": 29.610, "lon": 76.270},
		},
		"loan": map[string]interface{}{"farmer_id": "f", "amount": 100, "purpose": "yacht"},
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/evaluations", bytes.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCertificateLookupAndPDF(t *testing.T) {
	router, _ := newTestRouter(t)
	result := postEvaluation(t, router)
	id := result.Certificate.ID.String()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+id, nil))
	require.Equal(t, http.StatusOK, w.Code)

	var cert certificate.Certificate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cert))
	assert.Equal(t, result.Certificate.Fingerprint, cert.Fingerprint)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/"+id+"/pdf", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, "%PDF", w.Body.String()[:4])
}

func TestCertificateNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/1db86bbb-0c09-4f54-9a42-73b0c1f6b5c1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	result := postEvaluation(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/"+result.Certificate.Fingerprint, nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":true`)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/verify/0xdeadbeef", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"valid":false`)
}

func TestExportEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	postEvaluation(t, router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/certificates/export", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "certificates.xlsx")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestPing(t *testing.T) {
	router, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "pong")
}
