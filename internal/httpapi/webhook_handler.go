package httpapi

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/focusnest/webhook-service/internal/clerk"
	"github.com/focusnest/webhook-service/internal/delivery"
	"github.com/focusnest/webhook-service/internal/user"
	"github.com/focusnest/webhook-service/pkg/logging"
)

const (
	serviceTimeout = 8 * time.Second
	maxBodyBytes   = 1 << 20
)

// WebhookHandler verifies Clerk deliveries and mirrors user lifecycle events into the user store.
type WebhookHandler struct {
	verifier clerk.Verifier
	users    user.Service
	ledger   delivery.Ledger
	logger   *slog.Logger
}

// NewWebhookHandler wires the handler. A nil ledger disables de-duplication.
func NewWebhookHandler(verifier clerk.Verifier, users user.Service, ledger delivery.Ledger, logger *slog.Logger) *WebhookHandler {
	if ledger == nil {
		ledger = delivery.NopLedger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandler{verifier: verifier, users: users, ledger: ledger, logger: logger}
}

// RegisterRoutes registers the webhook routes
func RegisterRoutes(r chi.Router, h *WebhookHandler) {
	r.Route("/v1/webhooks", func(r chi.Router) {
		r.Post("/clerk", h.handleClerk)
	})
}

// mutation is the store change decoded from a verified event.
type mutation struct {
	action clerk.Action
	userID string
	record user.Record
	update user.UpdateInput
}

func (h *WebhookHandler) handleClerk(w http.ResponseWriter, r *http.Request) {
	logger := logging.WithRequestID(r.Context(), h.logger, middleware.GetReqID(r.Context()))

	d, err := clerk.DeliveryFromHeaders(r.Header)
	if err != nil {
		writeText(w, http.StatusBadRequest, msgNoSignatureHeaders)
		return
	}
	logger = logger.With(slog.String("svix_id", d.ID))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		logger.WarnContext(r.Context(), "failed to read webhook body", slog.Any("error", err))
		writeText(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}

	if err := h.verifier.Verify(body, r.Header); err != nil {
		logger.WarnContext(r.Context(), "webhook verification failed", slog.Any("error", err))
		writeText(w, http.StatusBadRequest, msgVerificationFailed)
		return
	}

	evt, err := clerk.ParseEvent(body)
	if err != nil {
		logger.WarnContext(r.Context(), "malformed webhook payload", slog.Any("error", err))
		writeText(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	logger = logger.With(slog.String("event_type", string(evt.Type)))

	m, err := mutationFor(evt)
	if err != nil {
		logger.WarnContext(r.Context(), "malformed webhook payload", slog.Any("error", err))
		writeText(w, http.StatusBadRequest, msgInvalidPayload)
		return
	}
	if m.action == clerk.ActionIgnore {
		logger.DebugContext(r.Context(), "ignoring unhandled event type")
		writeText(w, http.StatusOK, msgReceived)
		return
	}
	logger = logger.With(slog.String("user_id", m.userID), slog.String("action", m.action.String()))

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	claimed, err := h.ledger.Claim(ctx, d.ID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to claim delivery", slog.Any("error", err))
		writeText(w, http.StatusInternalServerError, msgInternalError)
		return
	}
	if !claimed {
		logger.InfoContext(ctx, "duplicate delivery ignored")
		writeText(w, http.StatusOK, msgReceived)
		return
	}

	err = h.apply(ctx, m)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "user synced")
	case errors.Is(err, user.ErrNotFound):
		// A zero-row update or delete leaves the store as the event requires; retrying cannot help.
		logger.WarnContext(ctx, "no local user matched event")
	default:
		if releaseErr := h.ledger.Release(ctx, d.ID); releaseErr != nil {
			logger.ErrorContext(ctx, "failed to release delivery", slog.Any("error", releaseErr))
		}
		logger.ErrorContext(ctx, "failed to apply user event", slog.Any("error", err))
		writeText(w, http.StatusInternalServerError, msgInternalError)
		return
	}

	writeText(w, http.StatusOK, msgReceived)
}

func (h *WebhookHandler) apply(ctx context.Context, m mutation) error {
	switch m.action {
	case clerk.ActionCreate:
		return h.users.Create(ctx, m.record)
	case clerk.ActionUpdate:
		return h.users.Update(ctx, m.userID, m.update)
	case clerk.ActionDelete:
		return h.users.Delete(ctx, m.userID)
	case clerk.ActionIgnore:
		return nil
	}
	return nil
}

func mutationFor(evt clerk.Event) (mutation, error) {
	action := evt.Type.Action()
	switch action {
	case clerk.ActionCreate:
		data, err := evt.User()
		if err != nil {
			return mutation{}, err
		}
		return mutation{
			action: action,
			userID: data.ID,
			record: user.Record{
				UserID:    data.ID,
				Email:     data.PrimaryEmail(),
				FirstName: data.FirstName,
				LastName:  data.LastName,
				ImageURL:  data.ImageURL,
				CreatedAt: data.CreatedTime(),
				UpdatedAt: data.UpdatedTime(),
			},
		}, nil
	case clerk.ActionUpdate:
		data, err := evt.User()
		if err != nil {
			return mutation{}, err
		}
		return mutation{
			action: action,
			userID: data.ID,
			update: user.UpdateInput{
				Email:     data.PrimaryEmail(),
				FullName:  data.FullName(),
				FirstName: data.FirstName,
				LastName:  data.LastName,
				ImageURL:  data.ImageURL,
				UpdatedAt: data.UpdatedTime(),
			},
		}, nil
	case clerk.ActionDelete:
		data, err := evt.Deleted()
		if err != nil {
			return mutation{}, err
		}
		return mutation{action: action, userID: data.ID}, nil
	case clerk.ActionIgnore:
		return mutation{action: action}, nil
	}
	return mutation{action: clerk.ActionIgnore}, nil
}
