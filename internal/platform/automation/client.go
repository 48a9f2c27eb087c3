package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/pkg/config"
)

var ErrNotConfigured = errors.New("automation webhook url not configured")

// Payload is the document notification body the automation service consumes.
type Payload struct {
	Filename           string `json:"filename" validate:"required"`
	FileURL            string `json:"file_url" validate:"required,url"`
	MimeType           string `json:"mimetype" validate:"required"`
	Size               int64  `json:"size" validate:"gte=0"`
	UserID             string `json:"user_id" validate:"required"`
	PageCount          int    `json:"page_count" validate:"gte=1"`
	DocumentType       string `json:"document_type" validate:"required"`
	Cost               string `json:"cost" validate:"required"`
	SourceLanguage     string `json:"source_language"`
	TargetLanguage     string `json:"target_language"`
	SourceCurrency     string `json:"source_currency"`
	TargetCurrency     string `json:"target_currency"`
	DocumentID         string `json:"document_id" validate:"required"`
	OriginalDocumentID string `json:"original_document_id"`
}

// SendError carries the response code of a rejected delivery; zero for transport failures.
type SendError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *SendError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("automation service responded %d: %s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("automation service unreachable: %v", e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

type Client interface {
	// Send posts p and returns the response status code on success.
	Send(ctx context.Context, p *Payload) (int, error)
}

type httpClient struct {
	url        string
	signingKey string
	hc         *http.Client
	validate   *validator.Validate
	log        *zap.SugaredLogger
}

func NewClient(cfg *config.Config, log *zap.SugaredLogger) Client {
	return newClient(cfg.Automation, &http.Client{Timeout: cfg.Automation.Timeout}, log)
}

func newClient(cfg config.AutomationConfig, hc *http.Client, log *zap.SugaredLogger) *httpClient {
	return &httpClient{
		url:        cfg.WebhookURL,
		signingKey: cfg.SigningKey,
		hc:         hc,
		validate:   validator.New(),
		log:        log,
	}
}

func (c *httpClient) Send(ctx context.Context, p *Payload) (int, error) {
	if c.url == "" {
		return 0, ErrNotConfigured
	}
	if err := c.validate.Struct(p); err != nil {
		return 0, fmt.Errorf("invalid delivery payload: %w", err)
	}
	body, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal delivery payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.signingKey != "" {
		token, err := c.sign(p.DocumentID)
		if err != nil {
			return 0, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return 0, &SendError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return resp.StatusCode, &SendError{StatusCode: resp.StatusCode, Body: string(b)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *httpClient) sign(documentID string) (string, error) {
	now := time.Now()
	claims := jwt.StandardClaims{
		Issuer:    "docpay",
		Subject:   documentID,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(5 * time.Minute).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(c.signingKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign delivery token: %w", err)
	}
	return token, nil
}

var Module = fx.Options(
	fx.Provide(NewClient),
)
