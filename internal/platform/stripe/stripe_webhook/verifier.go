package stripe_webhook

import (
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/docpay/pkg/config"
)

var (
	ErrNoSecrets        = errors.New("no webhook secrets configured")
	ErrMissingSignature = errors.New("missing signature header")
	ErrNoMatchingSecret = errors.New("signature does not match any configured secret")
)

// EnvironmentSecret is one candidate signing secret and the deployment environment it
// belongs to. Candidates are tried in order.
type EnvironmentSecret struct {
	Env    string
	Secret string
}

// VerifiedEvent is an event whose signature validated under Environment's secret.
type VerifiedEvent struct {
	Event       stripe.Event
	Environment string
	Payload     []byte
}

type Verifier struct {
	secrets   []EnvironmentSecret
	tolerance time.Duration
	log       *zap.SugaredLogger
}

func NewVerifier(cfg *config.Config, log *zap.SugaredLogger) *Verifier {
	secrets := make([]EnvironmentSecret, 0, len(cfg.Stripe.WebhookSecrets))
	for _, s := range cfg.Stripe.WebhookSecrets {
		if s.Secret == "" {
			continue
		}
		secrets = append(secrets, EnvironmentSecret{Env: s.Env, Secret: s.Secret})
	}
	return &Verifier{secrets: secrets, tolerance: webhook.DefaultTolerance, log: log}
}

// NewVerifierWithSecrets is used where the candidate list does not come from config.
func NewVerifierWithSecrets(secrets []EnvironmentSecret, tolerance time.Duration, log *zap.SugaredLogger) *Verifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secrets: secrets, tolerance: tolerance, log: log}
}

// Environments returns the configured environment tags in trial order.
func (v *Verifier) Environments() []string {
	out := make([]string, 0, len(v.secrets))
	for _, s := range v.secrets {
		out = append(out, s.Env)
	}
	return out
}

// Verify returns the event under the first secret its signature validates with.
// Header and timestamp problems do not depend on the secret and end the search.
func (v *Verifier) Verify(payload []byte, header string) (*VerifiedEvent, error) {
	if len(v.secrets) == 0 {
		return nil, ErrNoSecrets
	}
	if header == "" {
		return nil, ErrMissingSignature
	}
	opts := webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	}
	for _, s := range v.secrets {
		event, err := webhook.ConstructEventWithOptions(payload, header, s.Secret, opts)
		if err == nil {
			v.log.Infow("webhook_signature_verified", "environment", s.Env, "event_id", event.ID, "type", event.Type)
			return &VerifiedEvent{Event: event, Environment: s.Env, Payload: payload}, nil
		}
		if errors.Is(err, webhook.ErrNoValidSignature) {
			continue
		}
		return nil, fmt.Errorf("failed to verify webhook under %s secret: %w", s.Env, err)
	}
	return nil, ErrNoMatchingSecret
}

var Module = fx.Options(
	fx.Provide(NewVerifier),
)
