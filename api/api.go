package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tawihq/tawi"
	"github.com/tawihq/tawi/api/middleware"
	"github.com/tawihq/tawi/config"
)

type Api struct {
	tawi   *tawi.Tawi
	router *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/purchase", a.Purchase)
	router.GET("/api/status/:reference", a.GetStatus)
	router.GET("/pending", a.Pending)

	router.POST("/rewards/redeem", a.Redeem)
	router.GET("/rewards/:phone", a.GetRewards)

	router.POST("/webhook/payment", a.PaymentWebhook)
	return a.router
}

func NewAPI(t *tawi.Tawi) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.Default()
	r.Use(middleware.RateLimitMiddleware(conf))

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": conf.ProjectName})
	})

	return &Api{tawi: t, router: r}
}
