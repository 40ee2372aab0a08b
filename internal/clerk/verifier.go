package clerk

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	svix "github.com/svix/svix-webhooks/go"
)

// Mode selects how webhook signatures are checked.
type Mode string

const (
	// ModeSvix verifies the Svix HMAC signature against the shared signing secret.
	ModeSvix Mode = "svix"
	// ModeNoop accepts every delivery without checking the signature (local development and tests).
	ModeNoop Mode = "noop"
)

// Svix delivery headers.
const (
	HeaderID        = "svix-id"
	HeaderTimestamp = "svix-timestamp"
	HeaderSignature = "svix-signature"
)

// ErrMissingHeaders is returned when any of the Svix headers is absent.
var ErrMissingHeaders = errors.New("missing svix signature headers")

// Config captures the inputs required to initialize a verifier.
type Config struct {
	Mode   Mode
	Secret string
}

// Verifier authenticates a raw webhook body against its delivery headers.
type Verifier interface {
	Verify(payload []byte, headers http.Header) error
}

// NewVerifier constructs a Verifier matching the supplied configuration.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeSvix:
		secret := strings.TrimSpace(cfg.Secret)
		if secret == "" {
			return nil, errors.New("clerk webhook secret is required")
		}
		wh, err := svix.NewWebhook(secret)
		if err != nil {
			return nil, fmt.Errorf("init svix webhook: %w", err)
		}
		return wh, nil
	case ModeNoop:
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported webhook mode: %s", cfg.Mode)
	}
}

type noopVerifier struct{}

func (noopVerifier) Verify([]byte, http.Header) error { return nil }

// Delivery identifies a single webhook attempt by its Svix headers.
type Delivery struct {
	ID        string
	Timestamp string
	Signature string
}

// DeliveryFromHeaders extracts the three Svix headers, failing with ErrMissingHeaders if any is blank.
func DeliveryFromHeaders(h http.Header) (Delivery, error) {
	d := Delivery{
		ID:        strings.TrimSpace(h.Get(HeaderID)),
		Timestamp: strings.TrimSpace(h.Get(HeaderTimestamp)),
		Signature: strings.TrimSpace(h.Get(HeaderSignature)),
	}
	if d.ID == "" || d.Timestamp == "" || d.Signature == "" {
		return Delivery{}, ErrMissingHeaders
	}
	return d, nil
}
