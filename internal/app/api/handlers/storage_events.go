package handlers

import (
	"errors"
	"net/http"

	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/pkg/logctx"
	"github.com/fatflowers/docpay/pkg/response"
)

// @Summary      Storage Event
// @Description  Accepts a CloudEvent announcing a finalized object in the document bucket and forwards the document to the automation webhook once.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        event body delivery.ObjectFinalized true "CloudEvent data (binary or structured mode)"
// @Success      200  {object}  handlers.RespDelivery
// @Router       /api/v1/storage/events [post]
func ApiStorageEvent(events *delivery.StorageEvents, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		lg := logctx.FromGin(c, log)
		ev, err := cehttp.NewEventFromHTTPRequest(c.Request)
		if err != nil {
			lg.Warnw("storage_event_decode_failed", "err", err)
			c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := events.Handle(c.Request.Context(), *ev)
		if err != nil {
			switch {
			case errors.Is(err, delivery.ErrUnsupportedEvent), errors.Is(err, delivery.ErrForeignObject):
				// Acknowledge so the emitter does not redeliver events that will never apply.
				lg.Infow("storage_event_skipped", "event_id", ev.ID(), "reason", err.Error())
				c.JSON(http.StatusOK, response.OKT(&delivery.DeliveryResult{Message: err.Error()}))
			case errors.Is(err, document.ErrNotFound):
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
			default:
				lg.Errorw("storage_event_failed", "event_id", ev.ID(), "err", err)
				c.JSON(http.StatusInternalServerError, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			}
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterStorageEventRoutes(r gin.IRouter, events *delivery.StorageEvents, log *zap.SugaredLogger) {
	r.POST("/events", ApiStorageEvent(events, log))
}
