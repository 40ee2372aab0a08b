package httpapi

import "net/http"

// Bodies of the webhook responses. The provider only looks at the status code.
const (
	msgReceived           = "received"
	msgNoSignatureHeaders = "no signature headers"
	msgVerificationFailed = "verification failed"
	msgInvalidPayload     = "invalid payload"
	msgInternalError      = "internal error"
)

func writeText(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(message))
}
