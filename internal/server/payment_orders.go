package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	utbetalingdomain "github.com/smallbiznis/okonomi/internal/utbetaling/domain"
)

type paymentOrderResponse struct {
	*utbetalingdomain.PaymentOrder
	Status  utbetalingdomain.PaymentStatus `json:"status"`
	Receipt *utbetalingdomain.Receipt      `json:"receipt,omitempty"`
}

func newPaymentOrderResponse(order *utbetalingdomain.PaymentOrder) paymentOrderResponse {
	return paymentOrderResponse{
		PaymentOrder: order,
		Status:       order.Status(),
		Receipt:      order.Receipt(),
	}
}

func (s *Server) CreatePaymentOrder(c *gin.Context) {
	var req utbetalingdomain.Decision
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	order, err := s.payments.CreatePaymentOrder(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newPaymentOrderResponse(order)})
}

func (s *Server) GetPaymentOrder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	order, err := s.payments.GetPaymentOrder(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newPaymentOrderResponse(order)})
}

func (s *Server) ListPaymentOrders(c *gin.Context) {
	recipient := strings.TrimSpace(c.Param("recipient"))
	if recipient == "" {
		AbortWithError(c, newValidationError("recipient", "invalid_recipient", "invalid recipient"))
		return
	}

	orders, err := s.payments.ListPaymentOrders(c.Request.Context(), recipient)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	resp := make([]paymentOrderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newPaymentOrderResponse(&orders[i]))
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type recordPaymentEventRequest struct {
	Status             utbetalingdomain.PaymentStatus `json:"status"`
	OccurredAt         *time.Time                     `json:"occurred_at"`
	ReceiptCode        *string                        `json:"receipt_code"`
	ReceiptDescription *string                        `json:"receipt_description"`
	Acknowledgement    json.RawMessage                `json:"acknowledgement"`
}

func (s *Server) RecordPaymentEvent(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req recordPaymentEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if req.Status == "" && req.ReceiptCode == nil {
		AbortWithError(c, newValidationError("status", "required", "status or receipt_code is required"))
		return
	}

	event := utbetalingdomain.RecordPaymentEventRequest{
		OrderID:            id,
		Status:             utbetalingdomain.PaymentStatus(strings.TrimSpace(string(req.Status))),
		ReceiptCode:        req.ReceiptCode,
		ReceiptDescription: req.ReceiptDescription,
		Acknowledgement:    req.Acknowledgement,
	}
	if req.OccurredAt != nil {
		event.OccurredAt = *req.OccurredAt
	}

	resp, err := s.payments.RecordPaymentEvent(c.Request.Context(), event)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}
