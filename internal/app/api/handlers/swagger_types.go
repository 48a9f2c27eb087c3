package handlers

import (
	"github.com/fatflowers/docpay/internal/app/service/delivery"
	"github.com/fatflowers/docpay/internal/app/service/payment"
	"github.com/fatflowers/docpay/internal/app/service/recovery"
	"github.com/fatflowers/docpay/internal/app/service/statistics"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/response"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespCheckout wraps CheckoutResponse in the standard envelope.
type RespCheckout struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    CheckoutResponse         `json:"data"`
}

// RespDocumentStatus wraps DocumentStatusResponse in the standard envelope.
type RespDocumentStatus struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    DocumentStatusResponse   `json:"data"`
}

// RespMissingFiles wraps recovery.ListMissingResponse in the standard envelope.
type RespMissingFiles struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    recovery.ListMissingResponse `json:"data"`
}

// RespListPayments wraps payment.ScanPaymentsResponse in the standard envelope.
type RespListPayments struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    payment.ScanPaymentsResponse `json:"data"`
}

// RespActionLogs wraps a list of audit lines in the standard envelope.
type RespActionLogs struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.ActionLog       `json:"data"`
}

// RespStripeEvents wraps journal rows in the standard envelope.
type RespStripeEvents struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []models.StripeEventLog  `json:"data"`
}

// RespDelivery wraps delivery.DeliveryResult in the standard envelope.
type RespDelivery struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    delivery.DeliveryResult  `json:"data"`
}

// RespStatistics wraps statistics.StatisticResponse in the standard envelope.
type RespStatistics struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    statistics.StatisticResponse `json:"data"`
}
