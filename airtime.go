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

package tawi

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/audit"
	"github.com/tawihq/tawi/internal/request"
)

// AirtimeClient dispatches disbursements to the airtime provider and
// classifies the outcome. Every attempt is audited, delivered or not.
type AirtimeClient struct {
	baseUrl string
	key     string
	secret  string
	audit   *audit.Sink
}

// DispatchResult classifies one disbursement attempt. Retryable is set only
// for a provider-declared float shortage; transport errors and every other
// failure are terminal for the attempt.
type DispatchResult struct {
	Delivered bool
	Retryable bool
	Raw       map[string]interface{}
}

func NewAirtimeClient(conf config.AirtimeProviderConfig, sink *audit.Sink) *AirtimeClient {
	return &AirtimeClient{
		baseUrl: conf.BaseUrl,
		key:     conf.Key,
		secret:  conf.Secret,
		audit:   sink,
	}
}

// Dispatch sends a single disbursement request for the given phone, amount
// and reference.
func (c *AirtimeClient) Dispatch(ctx context.Context, phone string, amount int64, reference string) DispatchResult {
	payload := map[string]string{
		"phone_number": phone,
		"amount":       strconv.FormatInt(amount, 10),
	}
	c.audit.Record(audit.CategoryAirtimeAttempt, audit.Event{
		"reference": reference,
		"request":   payload,
	})

	body, err := request.ToJsonReq(payload)
	if err != nil {
		return c.transportFailure(reference, payload, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/airtime", body)
	if err != nil {
		return c.transportFailure(reference, payload, err)
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(c.key, c.secret))

	var response map[string]interface{}
	if _, err := request.Call(req, &response); err != nil {
		return c.transportFailure(reference, payload, err)
	}

	delivered, retryable := classifyDispatch(response)
	c.audit.Record(audit.CategoryAirtimeResult, audit.Event{
		"reference": reference,
		"request":   payload,
		"response":  response,
		"delivered": delivered,
		"retryable": retryable,
	})
	return DispatchResult{Delivered: delivered, Retryable: retryable, Raw: response}
}

// transportFailure converts a network/parse error into a terminal result.
// Only provider-declared float shortage justifies automatic retry, so these
// are logged and surfaced, never requeued.
func (c *AirtimeClient) transportFailure(reference string, payload map[string]string, err error) DispatchResult {
	logrus.Errorf("airtime dispatch %s failed: %v", reference, err)
	c.audit.Record(audit.CategoryAirtimeResult, audit.Event{
		"reference": reference,
		"request":   payload,
		"error":     err.Error(),
	})
	return DispatchResult{Raw: map[string]interface{}{"error": err.Error()}}
}

// classifyDispatch reads the provider's own verdict: a 200 status_code or
// an explicit success flag means delivered; an insufficient-float message
// marks the failure retryable.
func classifyDispatch(response map[string]interface{}) (delivered, retryable bool) {
	if code, ok := numberField(response, "status_code"); ok && code == 200 {
		delivered = true
	}
	if success, ok := response["success"].(bool); ok && success {
		delivered = true
	}
	if delivered {
		return true, false
	}

	description := strings.ToLower(asString(response["description"]))
	message := strings.ToLower(asString(response["message"]))
	if strings.Contains(description, "insufficient") || strings.Contains(message, "balance") {
		return false, true
	}
	return false, false
}

// numberField reads a numeric JSON field that some providers send as a
// number and others as a string.
func numberField(m map[string]interface{}, key string) (int64, bool) {
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
