package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/netbill/netbill/internal/api/dto"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/logger"
	"github.com/netbill/netbill/internal/service"
	"github.com/netbill/netbill/internal/types"
)

type InvoiceHandler struct {
	service service.InvoiceService
	log     *logger.Logger
}

func NewInvoiceHandler(service service.InvoiceService, log *logger.Logger) *InvoiceHandler {
	return &InvoiceHandler{service: service, log: log}
}

func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	var req dto.GenerateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GenerateInvoice(c.Request.Context(), &req)
	if err != nil {
		h.log.Error("Failed to generate invoice", "error", err, "user_id", req.UserID)
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *InvoiceHandler) GetInvoice(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.Error(ierr.NewError("id is required").
			WithHint("Invoice ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetInvoice(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) ListInvoices(c *gin.Context) {
	var filter types.InvoiceFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid query parameters").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.ListInvoices(c.Request.Context(), &filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) VoidInvoice(c *gin.Context) {
	var req dto.VoidInvoiceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.Error(ierr.WithError(err).
				WithHint("Invalid request format").
				Mark(ierr.ErrValidation))
			return
		}
	}

	resp, err := h.service.VoidInvoice(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		h.log.Error("Failed to void invoice", "error", err, "invoice_id", c.Param("id"))
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *InvoiceHandler) GetUserBalance(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		c.Error(ierr.NewError("user_id is required").
			WithHint("User ID is required").
			Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.service.GetUserBalance(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
