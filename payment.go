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
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tawihq/tawi/config"
	"github.com/tawihq/tawi/internal/request"
)

// PaymentClient talks to the payment provider. It only initializes
// payments and reads their status; confirmation always comes from polling.
type PaymentClient struct {
	baseUrl   string
	apiKey    string
	userEmail string
	linkCode  string
}

func NewPaymentClient(conf config.PaymentProviderConfig) *PaymentClient {
	return &PaymentClient{
		baseUrl:   conf.BaseUrl,
		apiKey:    conf.ApiKey,
		userEmail: conf.UserEmail,
		linkCode:  conf.LinkCode,
	}
}

// Initialize starts a payment collection for the given phone and amount and
// returns the provider-assigned transaction reference. A response without a
// reference is an error: an untracked payment must never look successful.
func (c *PaymentClient) Initialize(ctx context.Context, phone string, amount float64) (string, map[string]interface{}, error) {
	payload := map[string]interface{}{
		"code":          c.linkCode,
		"mobile_number": phone,
		"amount":        amount,
	}
	body, err := request.ToJsonReq(payload)
	if err != nil {
		return "", nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+"/payment/initialize", body)
	if err != nil {
		return "", nil, err
	}
	c.setHeaders(req)

	var response map[string]interface{}
	resp, err := request.Call(req, &response)
	if err != nil {
		return "", nil, err
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return "", response, fmt.Errorf("payment initialize returned status %d", resp.StatusCode)
	}

	reference := nestedString(response, "data", "transaction_reference")
	if reference == "" {
		reference = nestedString(response, "data", "CheckoutRequestID")
	}
	if reference == "" {
		return "", response, errors.New("payment provider returned no transaction reference")
	}
	return reference, response, nil
}

// Status fetches the provider's view of a payment by reference. The raw
// status string is returned un-normalized.
func (c *PaymentClient) Status(ctx context.Context, reference string) (string, map[string]interface{}, error) {
	statusUrl := fmt.Sprintf("%s/payment/status?transaction_reference=%s", c.baseUrl, url.QueryEscape(reference))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusUrl, nil)
	if err != nil {
		return "", nil, err
	}
	c.setHeaders(req)

	var response map[string]interface{}
	if _, err := request.Call(req, &response); err != nil {
		return "", nil, err
	}

	raw := nestedString(response, "data", "status")
	if raw == "" {
		raw = asString(response["status"])
	}
	return raw, response, nil
}

func (c *PaymentClient) setHeaders(req *http.Request) {
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("X-User-Email", c.userEmail)
}

// nestedString digs a string out of a decoded JSON object.
func nestedString(m map[string]interface{}, keys ...string) string {
	current := m
	for i, key := range keys {
		value, ok := current[key]
		if !ok {
			return ""
		}
		if i == len(keys)-1 {
			return asString(value)
		}
		current, ok = value.(map[string]interface{})
		if !ok {
			return ""
		}
	}
	return ""
}

func asString(value interface{}) string {
	s, _ := value.(string)
	return s
}
