package payment

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"foodorder/internal/domain"
	"foodorder/internal/logging"
	"foodorder/internal/pkg/response"
	"foodorder/internal/pkg/validator"
)

const (
	defaultPendingAge = 30 * time.Minute
	maxCallbackBody   = 64 << 10
)

type Handler struct {
	svc        *Service
	logger     *slog.Logger
	pendingAge time.Duration
}

func NewHandler(svc *Service, logger *slog.Logger, pendingAge time.Duration) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	if pendingAge <= 0 {
		pendingAge = defaultPendingAge
	}
	return &Handler{svc: svc, logger: logger, pendingAge: pendingAge}
}

// RegisterRoutes mounts the payment endpoints. initiateMW runs in front of
// Initiate only (rate limiting); ops must already require staff auth.
func (h *Handler) RegisterRoutes(public, ops *gin.RouterGroup, initiateMW ...gin.HandlerFunc) {
	if public != nil {
		public.POST("/payments/borica/initiate", append(initiateMW, h.Initiate)...)
		public.POST("/payments/borica/callback", h.Callback)
	}
	if ops != nil {
		ops.GET("/ops/orders/pending", h.PendingOrders)
		ops.GET("/ops/orders/:id/transactions", h.Transactions)
	}
}

// Initiate godoc
// @Summary      Start a card payment
// @Description  Recomputes the cart price, creates a pending order and returns an auto-submitting form that posts the signed request to the gateway
// @Tags         Payments
// @Accept       json
// @Produce      html
// @Param        body body InitiateRequest true "Cart, delivery and cardholder data"
// @Success      200 {string} string "auto-submit HTML form"
// @Failure      400 {object} ErrorResponse
// @Failure      429 {object} ErrorResponse
// @Failure      500 {object} ErrorResponse
// @Router       /payments/borica/initiate [post]
func (h *Handler) Initiate(c *gin.Context) {
	var req InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}
	if details := validator.Validate(req.Cardholder); details != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid cardholder data", details)
		return
	}

	res, err := h.svc.Initiate(c.Request.Context(), req)
	if err != nil {
		var mismatch *PriceMismatchError
		switch {
		case errors.As(err, &mismatch):
			response.ErrorWithDetails(c, http.StatusBadRequest, "PRICE_MISMATCH", "Cart total is out of date", gin.H{
				"client_total": mismatch.ClientTotal.StringFixed(2),
				"server_total": mismatch.ServerTotal.StringFixed(2),
				"difference":   mismatch.Difference.StringFixed(2),
			})
		case errors.Is(err, ErrValidation):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		default:
			h.logger.ErrorContext(c.Request.Context(), "initiate payment failed", "error", err)
			response.Error(c, http.StatusInternalServerError, "INTERNAL", "Payment could not be started")
		}
		return
	}

	response.HTML(c, http.StatusOK, res.Form)
}

// Callback godoc
// @Summary      Gateway result callback (BACKREF)
// @Description  Verifies the gateway signature, settles the order once and redirects the browser to the result page
// @Tags         Payments
// @Accept       x-www-form-urlencoded
// @Success      303 "redirect to success or failure page"
// @Router       /payments/borica/callback [post]
func (h *Handler) Callback(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxCallbackBody)
	if err := c.Request.ParseForm(); err != nil {
		h.logger.WarnContext(c.Request.Context(), "unreadable callback body", "error", err)
	}

	res, err := h.svc.Callback(c.Request.Context(), c.Request.PostForm)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrGatewayDecline) {
			level = slog.LevelInfo
		}
		h.logger.Log(c.Request.Context(), level, "callback finished without payment", "error", err)
	}
	c.Header("Cache-Control", "no-store")
	c.Redirect(http.StatusSeeOther, res.RedirectURL)
}

// PendingOrders godoc
// @Summary      Stale pending orders
// @Description  Orders still waiting for a gateway result, for reconciliation
// @Tags         Ops
// @Security     BearerAuth
// @Produce      json
// @Param        older_than query string false "Minimum age, Go duration (default 30m)"
// @Param        limit query int false "Max rows (default 100)"
// @Success      200 {object} map[string]interface{}
// @Failure      400 {object} ErrorResponse
// @Router       /ops/orders/pending [get]
func (h *Handler) PendingOrders(c *gin.Context) {
	age := h.pendingAge
	if v := c.Query("older_than"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "older_than must be a duration like 30m")
			return
		}
		age = d
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	items, err := h.svc.PendingOrders(c.Request.Context(), age, limit)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "list pending orders failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	response.Success(c, http.StatusOK, items)
}

// Transactions godoc
// @Summary      Callback audit trail of an order
// @Tags         Ops
// @Security     BearerAuth
// @Produce      json
// @Param        id path int true "Order ID"
// @Success      200 {object} map[string]interface{}
// @Failure      404 {object} ErrorResponse
// @Router       /ops/orders/{id}/transactions [get]
func (h *Handler) Transactions(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid order ID")
		return
	}

	items, err := h.svc.Transactions(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Order not found")
			return
		}
		h.logger.ErrorContext(c.Request.Context(), "list transactions failed", "error", err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL", "Internal error")
		return
	}
	response.Success(c, http.StatusOK, items)
}
