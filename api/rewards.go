package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	model2 "github.com/tawihq/tawi/api/model"
	"github.com/tawihq/tawi/internal/apierror"
)

// Redeem converts loyalty points into airtime in fixed bundles.
//
// Responses:
// - 400 Bad Request: If validation fails, the balance is short, or the
//   points fall below one bundle.
// - 502 Bad Gateway: If the dispatch fails terminally; points are refunded.
// - 200 OK: Airtime sent, or queued behind a float shortage.
func (a Api) Redeem(c *gin.Context) {
	var req model2.RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.Error(err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}

	if err := req.ValidateRedeemRequest(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": err.Error()})
		return
	}

	outcome, err := a.tawi.RedeemPoints(c.Request.Context(), req.Phone, req.Points, req.AirtimeNumber)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, outcome)
}

// GetRewards returns a phone's points balance and recent history.
func (a Api) GetRewards(c *gin.Context) {
	phone, passed := c.Params.Get("phone")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "phone is required. pass it in the route /:phone"})
		return
	}

	account := a.tawi.RewardsAccount(phone)
	c.JSON(http.StatusOK, account)
}
