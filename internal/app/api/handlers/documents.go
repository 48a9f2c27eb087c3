package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/fatflowers/docpay/internal/app/service/document"
	"github.com/fatflowers/docpay/internal/app/service/lifecycle"
	"github.com/fatflowers/docpay/internal/app/service/recovery"
	"github.com/fatflowers/docpay/internal/models"
	"github.com/fatflowers/docpay/pkg/response"
	"github.com/fatflowers/docpay/pkg/types"
)

// multipartOverhead is the slack allowed above the file limit for form fields and boundaries.
const multipartOverhead = 1 << 20

type CheckoutResponse struct {
	DocumentID  string                `json:"document_id"`
	SessionID   string                `json:"session_id"`
	CheckoutURL string                `json:"checkout_url"`
	Pages       int                   `json:"pages"`
	TotalCost   string                `json:"total_cost"`
	Status      models.DocumentStatus `json:"status"`
}

type DocumentStatusResponse struct {
	*models.Document
	NeedsRecovery bool `json:"needs_recovery"`
}

// readUpload pulls the "file" part of a multipart request, capped at maxSize.
func readUpload(c *gin.Context, maxSize int64) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)
	fh, err := c.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("missing file: %w", err)
	}
	if fh.Size > maxSize {
		return "", nil, document.ErrFileTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return "", nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxSize+1))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return fh.Filename, data, nil
}

// @Summary      Create Checkout
// @Description  Accepts a PDF, counts its pages, stores a draft document and opens a Stripe checkout session billed per page.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "PDF document"
// @Param        user_id formData string true "Customer id"
// @Param        client_name formData string false "Customer display name"
// @Param        document_type formData string false "standard, certified or sworn"
// @Param        source_language formData string false "Source language"
// @Param        target_language formData string false "Target language"
// @Param        source_currency formData string false "Source currency"
// @Param        target_currency formData string false "Target currency"
// @Success      200  {object}  handlers.RespCheckout
// @Router       /api/v1/documents/checkout [post]
func ApiCreateCheckout(docs *document.Service, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		filename, data, err := readUpload(c, maxSize)
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, err.Error()))
			return
		}
		res, err := docs.CreateDraft(c.Request.Context(), &document.DraftRequest{
			UserID:         c.PostForm("user_id"),
			ClientName:     c.PostForm("client_name"),
			DocumentType:   types.DocumentType(c.PostForm("document_type")),
			SourceLanguage: c.PostForm("source_language"),
			TargetLanguage: c.PostForm("target_language"),
			SourceCurrency: c.PostForm("source_currency"),
			TargetCurrency: c.PostForm("target_currency"),
			Filename:       filename,
			Data:           data,
		})
		if err != nil {
			code := response.APIResponseCodeError
			if errors.Is(err, document.ErrInvalidRequest) || errors.Is(err, document.ErrEmptyFile) ||
				errors.Is(err, document.ErrFileTooLarge) || errors.Is(err, document.ErrNotPDF) {
				code = response.APIResponseCodeBadRequest
			}
			c.JSON(http.StatusOK, response.ErrorT[any](code, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(&CheckoutResponse{
			DocumentID:  res.Document.ID,
			SessionID:   res.SessionID,
			CheckoutURL: res.CheckoutURL,
			Pages:       res.Document.Pages,
			TotalCost:   res.Document.TotalCost.StringFixed(2),
			Status:      res.Document.Status,
		}))
	}
}

// @Summary      Get Document
// @Description  Returns a document and whether it is waiting for a file resubmission.
// @Tags         Documents
// @Produce      json
// @Param        id path string true "Document id"
// @Success      200  {object}  handlers.RespDocumentStatus
// @Router       /api/v1/documents/{id} [get]
func ApiGetDocument(docs *document.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		doc, err := docs.Get(ctx, c.Param("id"))
		if err != nil {
			if errors.Is(err, document.ErrNotFound) {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeNotFound, err.Error()))
				return
			}
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		out := &DocumentStatusResponse{Document: doc}
		if doc.FileURL == nil && lifecycle.CanHoldFile(doc.Status) {
			paid, err := docs.HasCompletedPayment(ctx, doc.ID)
			if err != nil {
				c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
				return
			}
			out.NeedsRecovery = paid
		}
		c.JSON(http.StatusOK, response.OKT(out))
	}
}

// @Summary      Retry Upload
// @Description  Resubmits the file of a paid document whose upload failed. The file must be a PDF with exactly the paid page count.
// @Tags         Documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        id path string true "Document id"
// @Param        file formData file true "PDF document"
// @Success      200  {object}  recovery.RetryResult
// @Failure      400  {object}  recovery.RetryResult
// @Failure      404  {object}  recovery.RetryResult
// @Router       /api/v1/documents/{id}/retry_upload [post]
func ApiRetryUpload(rec *recovery.Service, maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		docID := c.Param("id")
		filename, data, err := readUpload(c, maxSize)
		if err != nil {
			msg := err.Error()
			if errors.Is(err, document.ErrFileTooLarge) {
				msg = fmt.Sprintf("file is too large, the limit is %d MB", maxSize>>20)
			}
			c.JSON(http.StatusBadRequest, &recovery.RetryResult{Error: msg, DocumentID: docID})
			return
		}
		res := rec.RetryUpload(c.Request.Context(), docID, &recovery.UploadFile{Filename: filename, Data: data})
		c.JSON(retryStatus(res), res)
	}
}

func retryStatus(res *recovery.RetryResult) int {
	switch {
	case res.Success:
		return http.StatusOK
	case res.Error == recovery.MsgDocumentNotFound:
		return http.StatusNotFound
	case res.Error == recovery.MsgUploadFailed:
		return http.StatusServiceUnavailable
	case res.Error == recovery.MsgStateChanged || res.Error == recovery.MsgAlreadyStored:
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

// @Summary      List Missing Files
// @Description  Lists a customer's paid documents that have no stored file.
// @Tags         Documents
// @Produce      json
// @Param        user_id query string true "Customer id"
// @Param        from query int false "Offset"
// @Param        size query int false "Page size"
// @Success      200  {object}  handlers.RespMissingFiles
// @Router       /api/v1/documents/missing_files [get]
func ApiListMissingFiles(rec *recovery.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Query("user_id")
		if userID == "" {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "missing user_id"))
			return
		}
		from, _ := strconv.Atoi(c.DefaultQuery("from", "0"))
		size, err := strconv.Atoi(c.DefaultQuery("size", "50"))
		if err != nil || size <= 0 || from < 0 {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeBadRequest, "invalid pagination"))
			return
		}
		res, err := rec.ListMissingFileDocuments(c.Request.Context(), &recovery.ListMissingRequest{UserID: userID, From: from, Size: size})
		if err != nil {
			c.JSON(http.StatusOK, response.ErrorT[any](response.APIResponseCodeError, err.Error()))
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func RegisterDocumentRoutes(r gin.IRouter, docs *document.Service, rec *recovery.Service, maxSize int64) {
	if maxSize <= 0 {
		maxSize = types.MaxUploadSize
	}
	r.POST("/checkout", ApiCreateCheckout(docs, maxSize))
	r.GET("/missing_files", ApiListMissingFiles(rec))
	r.GET("/:id", ApiGetDocument(docs))
	r.POST("/:id/retry_upload", ApiRetryUpload(rec, maxSize))
}
