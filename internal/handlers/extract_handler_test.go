package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupExtractRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewExtractHandler()
	router.POST("/api/v1/extract", handler.Extract)
	router.POST("/api/v1/extract/batch", handler.ExtractBatch)
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExtract_AmazonSKU(t *testing.T) {
	router := setupExtractRouter()

	w := postJSON(t, router, "/api/v1/extract", ExtractRequest{SKU: "MZM-4KTCXB0CYZ-New"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data struct {
			Kind       string `json:"kind"`
			Identifier string `json:"identifier"`
			Link       string `json:"link"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "amazon", resp.Data.Kind)
	assert.Equal(t, "B0CYZ4KTCX", resp.Data.Identifier)
	assert.Equal(t, "https://www.amazon.com/dp/B0CYZ4KTCX", resp.Data.Link)
}

func TestExtract_EmptySKU(t *testing.T) {
	router := setupExtractRouter()

	w := postJSON(t, router, "/api/v1/extract", ExtractRequest{SKU: "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExtractBatch_MixedSKUs(t *testing.T) {
	router := setupExtractRouter()

	w := postJSON(t, router, "/api/v1/extract/batch", BatchExtractRequest{
		SKUs: []string{
			"MZM-4KTCXB0CYZ-New",
			"MMS-197190135509-New",
			"GG-SHORT-New",
			"",
		},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data  []BatchExtractItem `json:"data"`
		Total int                `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 4, resp.Total)

	assert.Equal(t, "amazon", resp.Data[0].Kind)
	assert.Equal(t, "ebay", resp.Data[1].Kind)
	assert.Equal(t, "135509197190", resp.Data[1].Identifier)
	assert.Equal(t, "manual_review", resp.Data[2].Kind)
	assert.Empty(t, resp.Data[2].Identifier)
	assert.NotEmpty(t, resp.Data[3].Error)
}

func TestExtractBatch_MissingBody(t *testing.T) {
	router := setupExtractRouter()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract/batch", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
