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
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/gin-gonic/gin"

	model2 "github.com/tawihq/tawi/api/model"
	"github.com/tawihq/tawi/internal/apierror"
)

// Purchase starts a new airtime top-up. Payment collection is initialized
// synchronously; fulfillment happens later, once the poller or a webhook
// confirms the payment.
//
// Responses:
// - 400 Bad Request: If the request body fails binding or validation.
// - 502 Bad Gateway: If the payment provider rejects the initialization.
// - 202 Accepted: The transaction is registered and awaiting confirmation.
func (a Api) Purchase(c *gin.Context) {
	var req model2.PurchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := req.ValidatePurchaseRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	txn, err := a.tawi.InitiatePurchase(c.Request.Context(), req.PaymentNumber, req.AirtimeNumber, req.Amount)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, model2.ToStatusResponse(txn))
}

// GetStatus returns the tracked state of a transaction. It reads local
// state only and never calls a provider.
//
// Responses:
// - 400 Bad Request: If the reference is missing from the route.
// - 404 Not Found: If the reference is not tracked (or already evicted).
// - 200 OK: The redacted transaction view.
func (a Api) GetStatus(c *gin.Context) {
	reference, passed := c.Params.Get("reference")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference is required. pass it in the route /:reference"})
		return
	}

	txn, err := a.tawi.GetTransaction(reference)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, model2.ToStatusResponse(txn))
}

// Pending lists every tracked transaction with internal figures included.
// Debug surface, not meant for clients.
func (a Api) Pending(c *gin.Context) {
	txns := a.tawi.PendingOverview()
	c.JSON(http.StatusOK, gin.H{"count": len(txns), "transactions": txns})
}

// PaymentWebhook receives a payment provider push notification and merges
// it into tracked state. Unknown references are rejected so a forged push
// can never create or fulfill a transaction.
//
// Responses:
// - 400 Bad Request: If the payload fails binding or validation.
// - 404 Not Found: If the reference is not tracked.
// - 200 OK: The notification was merged.
func (a Api) PaymentWebhook(c *gin.Context) {
	var payload model2.WebhookPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := payload.ValidateWebhookPayload(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	if err := a.tawi.MergePaymentCallback(c.Request.Context(), payload.Reference, payload.Status, payload.Data); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "webhook received"})
}
