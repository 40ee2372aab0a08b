// Package clerktest signs webhook deliveries the way Svix does, for use in tests.
package clerktest

import (
	"net/http"
	"strconv"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// Secret is a well-formed signing secret for tests.
const Secret = "whsec_MfKQ9r8GKYqrTwjUPD8ILPZIo2LaLaSw"

// Signer produces Svix headers for a payload.
type Signer struct {
	wh  *svix.Webhook
	Now func() time.Time
}

// NewSigner returns a Signer for secret. It panics on a malformed secret.
func NewSigner(secret string) *Signer {
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		panic(err)
	}
	return &Signer{wh: wh, Now: time.Now}
}

// Headers returns svix-id, svix-timestamp and svix-signature for payload.
func (s *Signer) Headers(msgID string, payload []byte) http.Header {
	ts := s.Now()
	sig, err := s.wh.Sign(msgID, ts, payload)
	if err != nil {
		panic(err)
	}
	h := http.Header{}
	h.Set("svix-id", msgID)
	h.Set("svix-timestamp", strconv.FormatInt(ts.Unix(), 10))
	h.Set("svix-signature", sig)
	return h
}
