/*
Copyright 2025 Tawi Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tawihq/tawi"
	"github.com/tawihq/tawi/config"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.MockConfig(&config.Configuration{
		ProjectName: "Tawi Test",
		AuditDir:    t.TempDir(),
		Payment: config.PaymentProviderConfig{
			BaseUrl: "https://payments.test/api/v1",
			ApiKey:  "api-key",
		},
		Airtime: config.AirtimeProviderConfig{
			BaseUrl: "https://airtime.test/api/v2",
			Key:     "key",
			Secret:  "secret",
		},
		Snapshot: config.SnapshotConfig{Dir: t.TempDir()},
	})

	service, err := tawi.NewTawi()
	require.NoError(t, err)
	return NewAPI(service).Router()
}

func postJSON(router *gin.Engine, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req, _ := http.NewRequest("POST", path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func getPath(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req, _ := http.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func registerProviders(reference string) {
	httpmock.RegisterResponder("POST", "https://payments.test/api/v1/payment/initialize",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"status": "success",
			"data":   map[string]interface{}{"transaction_reference": reference},
		}))
	httpmock.RegisterResponder("POST", "https://airtime.test/api/v2/airtime",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{"status_code": 200}))
}

func TestPurchaseEndpoint(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	router := setupRouter(t)
	registerProviders("TXN-API-1")

	w := postJSON(router, "/purchase", map[string]interface{}{
		"payment_number": "0712345678",
		"amount":         1000,
	})
	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "TXN-API-1", resp["reference"])
	assert.Equal(t, "254712345678", resp["payer_number"])
	assert.Equal(t, "INITIATED", resp["status"])
}

func TestPurchaseEndpointValidation(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/purchase", map[string]interface{}{
		"payment_number": "0712345678",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = postJSON(router, "/purchase", map[string]interface{}{
		"amount": 1000,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPurchaseEndpointProviderDown(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	router := setupRouter(t)
	httpmock.RegisterResponder("POST", "https://payments.test/api/v1/payment/initialize",
		httpmock.NewJsonResponderOrPanic(500, map[string]interface{}{"error": "down"}))

	w := postJSON(router, "/purchase", map[string]interface{}{
		"payment_number": "0712345678",
		"amount":         1000,
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestStatusEndpointHidesFee(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	router := setupRouter(t)
	registerProviders("TXN-API-2")
	httpmock.RegisterResponder("GET", "https://payments.test/api/v1/payment/status",
		httpmock.NewJsonResponderOrPanic(200, map[string]interface{}{
			"data": map[string]interface{}{"status": "success"},
		}))

	w := postJSON(router, "/purchase", map[string]interface{}{
		"payment_number": "0712345678",
		"amount":         1000,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	// A confirming webhook fulfills the transaction, computing the fee.
	w = postJSON(router, "/webhook/payment", map[string]interface{}{
		"transaction_reference": "TXN-API-2",
		"status":                "success",
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = getPath(router, "/api/status/TXN-API-2")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "FULFILLED", resp["status"])
	assert.Equal(t, float64(1025), resp["airtime_sent"])
	assert.NotContains(t, resp, "computed_fee")
	assert.NotContains(t, w.Body.String(), "computed_fee")
}

func TestStatusEndpointUnknownReference(t *testing.T) {
	router := setupRouter(t)

	w := getPath(router, "/api/status/missing-ref")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookEndpointUnknownReference(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/webhook/payment", map[string]interface{}{
		"transaction_reference": "forged",
		"status":                "success",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookEndpointValidation(t *testing.T) {
	router := setupRouter(t)

	w := postJSON(router, "/webhook/payment", map[string]interface{}{
		"status": "success",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingEndpoint(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	router := setupRouter(t)
	registerProviders("TXN-API-3")

	w := postJSON(router, "/purchase", map[string]interface{}{
		"payment_number": "0712345678",
		"amount":         500,
	})
	require.Equal(t, http.StatusAccepted, w.Code)

	w = getPath(router, "/pending")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["count"])
}

func TestRootEndpoint(t *testing.T) {
	router := setupRouter(t)

	w := getPath(router, "/")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
