package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/respiralivre/api/services"
	"github.com/respiralivre/api/utils"
)

const maxWebhookBody = 64 << 10

// PaymentController opens checkouts and receives Stripe webhooks.
type PaymentController struct {
	payments *services.PaymentService
}

// NewPaymentController creates a PaymentController.
func NewPaymentController(payments *services.PaymentService) *PaymentController {
	return &PaymentController{payments: payments}
}

// CreatePayment returns the hosted checkout URL for a product.
func (p *PaymentController) CreatePayment(ctx *gin.Context) {
	userID, ok := currentUser(ctx)
	if !ok {
		return
	}
	var req services.CreatePaymentInput
	if !bindJSON(ctx, &req) {
		return
	}
	session, err := p.payments.CreateCheckout(ctx.Request.Context(), userID, req)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"url": session.URL, "session_id": session.ID})
}

// Webhook verifies the raw body against Stripe-Signature before parsing it.
func (p *PaymentController) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		utils.Fail(ctx, utils.Invalid("unreadable webhook body"))
		return
	}
	applied, err := p.payments.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"received": true, "applied": applied})
}
