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
package model

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/tawihq/tawi/model"
)

// PurchaseRequest starts a top-up: the payment is collected from
// PaymentNumber and the airtime is sent to AirtimeNumber, or back to the
// payer when AirtimeNumber is empty.
type PurchaseRequest struct {
	PaymentNumber string  `json:"payment_number"`
	AirtimeNumber string  `json:"airtime_number,omitempty"`
	Amount        float64 `json:"amount"`
}

func (p *PurchaseRequest) ValidatePurchaseRequest() error {
	return validation.ValidateStruct(p,
		validation.Field(&p.PaymentNumber, validation.Required),
		validation.Field(&p.Amount, validation.Required, validation.Min(1.0)),
	)
}

// RedeemRequest converts loyalty points into airtime.
type RedeemRequest struct {
	Phone         string `json:"phone"`
	Points        int64  `json:"points"`
	AirtimeNumber string `json:"airtime_number,omitempty"`
}

func (r *RedeemRequest) ValidateRedeemRequest() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.Points, validation.Required, validation.Min(1)),
	)
}

// WebhookPayload is a payment provider push notification.
type WebhookPayload struct {
	Reference string                 `json:"transaction_reference"`
	Status    string                 `json:"status"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

func (w *WebhookPayload) ValidateWebhookPayload() error {
	return validation.ValidateStruct(w,
		validation.Field(&w.Reference, validation.Required),
		validation.Field(&w.Status, validation.Required),
	)
}

// StatusResponse is the client-facing view of a transaction. The computed
// fee never appears here; the airtime provider payload is reduced to the
// fields a caller can act on.
type StatusResponse struct {
	Reference       string                 `json:"reference"`
	PayerNumber     string                 `json:"payer_number"`
	PayoutNumber    string                 `json:"payout_number,omitempty"`
	RequestedAmount float64                `json:"requested_amount"`
	Status          string                 `json:"status"`
	Fulfillment     string                 `json:"fulfillment"`
	BonusAmount     int64                  `json:"bonus_amount"`
	AirtimeSent     int64                  `json:"airtime_sent"`
	RetryPending    bool                   `json:"retry_pending"`
	AirtimeResult   map[string]interface{} `json:"airtime_result,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
}

// airtimeViewKeys are the provider response fields exposed to clients.
var airtimeViewKeys = []string{"status_code", "description", "message"}

// ToStatusResponse redacts a transaction for client consumption.
func ToStatusResponse(txn *model.Transaction) StatusResponse {
	var airtimeView map[string]interface{}
	if txn.AirtimeResult != nil {
		airtimeView = make(map[string]interface{})
		for _, key := range airtimeViewKeys {
			if v, ok := txn.AirtimeResult[key]; ok {
				airtimeView[key] = v
			}
		}
	}

	return StatusResponse{
		Reference:       txn.Reference,
		PayerNumber:     txn.PayerNumber,
		PayoutNumber:    txn.PayoutNumber,
		RequestedAmount: txn.RequestedAmount,
		Status:          txn.Status,
		Fulfillment:     txn.Fulfillment,
		BonusAmount:     txn.BonusAmount,
		AirtimeSent:     txn.TotalAirtimeSent,
		RetryPending:    txn.RetryPending,
		AirtimeResult:   airtimeView,
		CreatedAt:       txn.CreatedAt,
	}
}
