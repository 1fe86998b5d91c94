package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
)

type BillingRunHandler struct {
	service service.BillingRunService
	log     *logger.Logger
}

func NewBillingRunHandler(service service.BillingRunService, log *logger.Logger) *BillingRunHandler {
	return &BillingRunHandler{service: service, log: log}
}

func (h *BillingRunHandler) Run(c *gin.Context) {
	var req dto.BillingRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.Run(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Billing run failed", "error", err, "plan_id", req.PlanID)
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
