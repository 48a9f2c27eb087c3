package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	nh "github.com/fatflowers/docpay/internal/app/service/notification_handler"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/response"
)

// MaxWebhookBody caps the Stripe webhook body.
const MaxWebhookBody = 1 << 20

// EventHandler applies a verified processor event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev *stripe_webhook.VerifiedEvent) (*nh.HandleResult, error)
}

// @Summary      Stripe Webhook
// @Description  Receives Stripe events. The raw body is verified against the Stripe-Signature header with every configured environment secret.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Stripe signature header"
// @Param        payload body string true "Stripe event envelope"
// @Success      200  {object}  response.WebhookAck
// @Failure      400  {object}  response.WebhookAck
// @Router       /api/v2/payment/webhook/stripe [post]
func ApiStripeWebhook(v *stripe_webhook.Verifier, h EventHandler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		lg.Infow("webhook_stripe_received")

		payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, MaxWebhookBody))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				lg.Warnw("webhook_stripe_body_too_large", "limit", tooLarge.Limit)
			}
			c.JSON(http.StatusBadRequest, &response.WebhookAck{Error: "failed to read body"})
			return
		}

		ev, err := v.Verify(payload, c.GetHeader("Stripe-Signature"))
		if err != nil {
			lg.Warnw("webhook_stripe_verify_failed", "environments", v.Environments(), "err", err)
			c.JSON(http.StatusBadRequest, &response.WebhookAck{Error: "webhook signature verification failed"})
			return
		}

		if _, err := h.HandleEvent(c.Request.Context(), ev); err != nil {
			lg.Errorw("webhook_stripe_handle_error", "event_id", ev.Event.ID, "error", err.Error())
			c.JSON(http.StatusBadRequest, &response.WebhookAck{Error: err.Error()})
			return
		}
		c.JSON(http.StatusOK, &response.WebhookAck{Received: true})
	}
}

func RegisterPaymentWebhookRoutes(r gin.IRouter, v *stripe_webhook.Verifier, h EventHandler, log *zap.SugaredLogger) {
	// Mount under provided group, expected at "/api/v2/payment"
	r.POST("/webhook/stripe", ApiStripeWebhook(v, h, log))
}
