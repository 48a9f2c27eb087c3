package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	notificationlog "github.com/fatflowers/docpay/internal/app/service/notification_log"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/app/service/recovery"
	"github.com/fatflowers/docpay/internal/app/service/statistics"
	"github.com/fatflowers/docpay/internal/app/service/sweeper"
	"github.com/fatflowers/docpay/pkg/response"
)

// @Summary      List Missing Files (Admin)
// @Description  Lists every paid document without a stored file, with optional filters.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body recovery.ListMissingRequest true "Filters and pagination"
// @Success      200  {object}  handlers.RespMissingFiles
// @Router       /api/v1/admin/missing_files [post]
func ApiAdminListMissingFiles(rec *recovery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req recovery.ListMissingRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := rec.ListMissingFileDocuments(c.Request.Context(), &req)
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, recovery.ErrInvalidFilter) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      List Payments (Admin)
// @Description  Retrieves a paginated and filterable list of settled payments.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body payment.ScanPaymentsRequest true "Filters, pagination and sorting"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/list_payments [post]
func ApiListPayments(svc *payment.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req payment.ScanPaymentsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := svc.ScanPayments(c.Request.Context(), &req)
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, payment.ErrInvalidScan) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Payment and Delivery Statistics (Admin)
// @Description  Computes the requested statistic items over a date window. Items are computed concurrently.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Param        request body statistics.StatisticRequest true "Window, filters and data items"
// @Success      200  {object}  handlers.RespStatistics
// @Router       /api/v1/admin/statistics [post]
func ApiGetStatistics(stats *statistics.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req statistics.StatisticRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := stats.GetStatistics(c.Request.Context(), &req)
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, statistics.ErrInvalidRequest) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

// @Summary      Sweeper Report (Admin)
// @Description  Lists abandoned drafts that a sweep would delete and the ones it would keep, with reasons.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  sweeper.Summary
// @Router       /api/v1/admin/sweeper/report [post]
func ApiSweeperReport(sw *sweeper.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := sw.Report(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Sweeper Run (Admin)
// @Description  Deletes abandoned drafts judged safe. At most one batch per call.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  sweeper.Summary
// @Router       /api/v1/admin/sweeper/run [post]
func ApiSweeperRun(sw *sweeper.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := sw.Run(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Sweeper Session Sync (Admin)
// @Description  Reconciles stale pending checkout sessions with Stripe.
// @Tags         Admin
// @Produce      json
// @Success      200  {object}  sweeper.SyncSummary
// @Router       /api/v1/admin/sweeper/sync [post]
func ApiSweeperSync(sw *sweeper.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		res, err := sw.SyncSessions(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// @Summary      Audit Trail (Admin)
// @Description  Returns the audit lines of one document or payment session, oldest first.
// @Tags         Admin
// @Produce      json
// @Param        entity_type query string true "document or payment_session"
// @Param        entity_id query string true "Entity id"
// @Success      200  {object}  handlers.RespActionLogs
// @Router       /api/v1/admin/action_logs [get]
func ApiListActionLogs(audit *actionlog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		entityType, entityID := c.Query("entity_type"), c.Query("entity_id")
		if entityType == "" || entityID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing entity_type or entity_id"))
			return
		}
		rows, err := audit.List(c.Request.Context(), entityType, entityID)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

// @Summary      Stripe Event Journal (Admin)
// @Description  Returns the journal rows of one Stripe event.
// @Tags         Admin
// @Produce      json
// @Param        id path string true "Stripe event id"
// @Success      200  {object}  handlers.RespStripeEvents
// @Router       /api/v1/admin/stripe_events/{id} [get]
func ApiGetStripeEvent(journal *notificationlog.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := journal.ListByEvent(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(rows))
	}
}

func RegisterAdminRoutes(r gin.IRouter, rec *recovery.Service, payments *payment.Service, stats *statistics.Service, sw *sweeper.Service, audit *actionlog.Service, journal *notificationlog.Service) {
	r.POST("/missing_files", ApiAdminListMissingFiles(rec))
	r.POST("/list_payments", ApiListPayments(payments))
	r.POST("/statistics", ApiGetStatistics(stats))
	r.POST("/sweeper/report", ApiSweeperReport(sw))
	r.POST("/sweeper/run", ApiSweeperRun(sw))
	r.POST("/sweeper/sync", ApiSweeperSync(sw))
	r.GET("/action_logs", ApiListActionLogs(audit))
	r.GET("/stripe_events/:id", ApiGetStripeEvent(journal))
}
