package app

import (
	"time"

	"go.uber.org/fx"

	"github.com/fatflowers/docpay/internal/app/api/server"
	actionlog "github.com/fatflowers/docpay/internal/app/service/action_log"
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/file_arrival"
	notificationhandler "github.com/fatflowers/docpay/internal/app/service/notification_handler"
	notificationlog "github.com/fatflowers/docpay/internal/app/service/notification_log"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/app/service/recovery"
	"github.com/fatflowers/docpay/internal/app/service/statistics"
	"github.com/fatflowers/docpay/internal/app/service/sweeper"
	"github.com/fatflowers/docpay/internal/app/service/upload"
	"github.com/fatflowers/docpay/internal/platform/automation"
	"github.com/fatflowers/docpay/internal/platform/db"
	"github.com/fatflowers/docpay/internal/platform/objectstore"
	"github.com/fatflowers/docpay/internal/platform/pdfpages"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_checkout"
	"github.com/fatflowers/docpay/internal/platform/stripe/stripe_webhook"
	"github.com/fatflowers/docpay/pkg/config"
	"github.com/fatflowers/docpay/pkg/logger"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// Core is everything except the HTTP server and the in-process schedule. The sweeper CLI
// runs on it directly.
var Core = fx.Options(
	logger.Module,
	config.Module,
	db.Module,
	objectstore.Module,
	pdfpages.Module,
	automation.Module,
	stripe_checkout.Module,
	stripe_webhook.Module,
	actionlog.Module,
	notificationlog.Module,
	document.Module,
	payment.Module,
	upload.Module,
	delivery.Module,
	file_arrival.Module,
	recovery.Module,
	statistics.Module,
	notificationhandler.Module,
	sweeper.Module,
)

var Module = fx.Options(
	Core,
	server.Module,
	fx.Invoke(sweeper.RegisterSchedule),
)
