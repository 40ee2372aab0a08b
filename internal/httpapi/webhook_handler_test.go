package httpapi

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/focusnest/webhook-service/internal/clerk"
	"github.com/focusnest/webhook-service/internal/clerk/clerktest"
	"github.com/focusnest/webhook-service/internal/delivery"
	"github.com/focusnest/webhook-service/internal/user"
)

const webhookPath = "/v1/webhooks/clerk"

// recordingRepo counts calls and delegates to an in-memory repository.
type recordingRepo struct {
	inner user.Repository

	mu      sync.Mutex
	inserts []user.Record
	updates []string
	deletes []string
	err     error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{inner: user.NewMemoryRepository()}
}

func (r *recordingRepo) Get(ctx context.Context, userID string) (user.Record, error) {
	return r.inner.Get(ctx, userID)
}

func (r *recordingRepo) Insert(ctx context.Context, record user.Record) error {
	r.mu.Lock()
	r.inserts = append(r.inserts, record)
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.inner.Insert(ctx, record)
}

func (r *recordingRepo) Update(ctx context.Context, userID string, input user.UpdateInput) error {
	r.mu.Lock()
	r.updates = append(r.updates, userID)
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.inner.Update(ctx, userID, input)
}

func (r *recordingRepo) Delete(ctx context.Context, userID string) error {
	r.mu.Lock()
	r.deletes = append(r.deletes, userID)
	r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	return r.inner.Delete(ctx, userID)
}

func (r *recordingRepo) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.inserts) + len(r.updates) + len(r.deletes)
}

type harness struct {
	router http.Handler
	repo   *recordingRepo
	signer *clerktest.Signer
}

func newHarness(t *testing.T, ledger delivery.Ledger) *harness {
	t.Helper()
	verifier, err := clerk.NewVerifier(clerk.Config{Mode: clerk.ModeSvix, Secret: clerktest.Secret})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newRecordingRepo()
	handler := NewWebhookHandler(verifier, user.NewService(repo, nil, logger), ledger, logger)

	r := chi.NewRouter()
	RegisterRoutes(r, handler)
	return &harness{router: r, repo: repo, signer: clerktest.NewSigner(clerktest.Secret)}
}

func (h *harness) send(headers http.Header, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, webhookPath, strings.NewReader(body))
	for name, values := range headers {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) sendSigned(msgID, body string) *httptest.ResponseRecorder {
	return h.send(h.signer.Headers(msgID, []byte(body)), body)
}

const createdBody = `{"type":"user.created","object":"event","data":{"id":"u1",
"email_addresses":[{"id":"idn_1","email_address":"a@x.com"}],
"first_name":"A","last_name":"B","image_url":"http://img","created_at":1000,"updated_at":1000}}`

const deletedBody = `{"type":"user.deleted","object":"event","data":{"id":"u1","object":"user","deleted":true}}`

func TestMissingHeadersRejected(t *testing.T) {
	h := newHarness(t, nil)
	signed := h.signer.Headers("msg_1", []byte(createdBody))

	for _, name := range []string{clerk.HeaderID, clerk.HeaderTimestamp, clerk.HeaderSignature} {
		headers := signed.Clone()
		headers.Del(name)

		w := h.send(headers, createdBody)
		require.Equal(t, http.StatusBadRequest, w.Code, "without %s", name)
		require.Equal(t, "no signature headers", w.Body.String())
	}

	w := h.send(http.Header{}, createdBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "no signature headers", w.Body.String())
	require.Zero(t, h.repo.calls())
}

func TestTamperedBodyRejected(t *testing.T) {
	h := newHarness(t, nil)
	headers := h.signer.Headers("msg_1", []byte(createdBody))
	tampered := strings.Replace(createdBody, "a@x.com", "evil@x.com", 1)

	w := h.send(headers, tampered)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "verification failed", w.Body.String())
	require.Zero(t, h.repo.calls())
}

func TestBadSignatureRejected(t *testing.T) {
	h := newHarness(t, nil)
	headers := h.signer.Headers("msg_1", []byte(createdBody))
	headers.Set(clerk.HeaderSignature, "v1,Zm9yZ2VkLXNpZ25hdHVyZQ==")

	w := h.send(headers, createdBody)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "verification failed", w.Body.String())
	require.Zero(t, h.repo.calls())
}

func TestUserCreatedInsertsRecord(t *testing.T) {
	h := newHarness(t, nil)

	w := h.sendSigned("msg_1", createdBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "received", w.Body.String())

	require.Len(t, h.repo.inserts, 1)
	got := h.repo.inserts[0]
	require.Equal(t, "u1", got.UserID)
	require.Equal(t, "a@x.com", got.Email)
	require.Equal(t, "A", *got.FirstName)
	require.Equal(t, "B", *got.LastName)
	require.Equal(t, "http://img", got.ImageURL)
	require.Equal(t, int64(1000*1000), got.CreatedAt.UnixMilli())
	require.Equal(t, int64(1000*1000), got.UpdatedAt.UnixMilli())
	require.Empty(t, got.FullName)
}

func TestUserUpdatedMatchesInsertedRecord(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusOK, h.sendSigned("msg_1", createdBody).Code)

	updated := `{"type":"user.updated","data":{"id":"u1","email_addresses":[{"email_address":"new@x.com"}],
"first_name":"Ada","last_name":null,"image_url":"http://img2","created_at":1000,"updated_at":5000}}`
	w := h.sendSigned("msg_2", updated)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "received", w.Body.String())

	require.Equal(t, []string{"u1"}, h.repo.updates)
	got, err := h.repo.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.Equal(t, "new@x.com", got.Email)
	require.Equal(t, "Ada", got.FullName)
	require.Nil(t, got.LastName)
	require.Equal(t, "http://img2", got.ImageURL)
	require.True(t, got.UpdatedAt.Equal(time.Unix(5000, 0)))
	require.True(t, got.CreatedAt.Equal(time.Unix(1000, 0)))
}

func TestUserDeletedRemovesRecord(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusOK, h.sendSigned("msg_1", createdBody).Code)

	w := h.sendSigned("msg_2", deletedBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "received", w.Body.String())
	require.Equal(t, []string{"u1"}, h.repo.deletes)

	_, err := h.repo.Get(context.Background(), "u1")
	require.ErrorIs(t, err, user.ErrNotFound)
}

func TestDeleteOfUnknownUserIsAccepted(t *testing.T) {
	h := newHarness(t, nil)

	w := h.sendSigned("msg_1", deletedBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, []string{"u1"}, h.repo.deletes)
}

func TestUnknownEventTypeIgnored(t *testing.T) {
	h := newHarness(t, nil)

	w := h.sendSigned("msg_1", `{"type":"org.created","data":{"id":"org_1","name":"Acme"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "received", w.Body.String())
	require.Zero(t, h.repo.calls())
}

func TestMalformedPayloadRejected(t *testing.T) {
	h := newHarness(t, nil)
	bodies := []string{
		`not json`,
		`{"data":{"id":"u1"}}`,
		`{"type":"user.created","data":{"id":"u1","email_addresses":[]}}`,
		`{"type":"user.updated","data":{"email_addresses":[{"email_address":"a@x.com"}]}}`,
		`{"type":"user.deleted","data":{"deleted":true}}`,
	}
	for i, body := range bodies {
		w := h.sendSigned("msg_"+string(rune('a'+i)), body)
		require.Equal(t, http.StatusBadRequest, w.Code, body)
		require.Equal(t, "invalid payload", w.Body.String(), body)
	}
	require.Zero(t, h.repo.calls())
}

func TestOversizeBodyRejected(t *testing.T) {
	h := newHarness(t, nil)
	body := `{"type":"user.created","pad":"` + strings.Repeat("x", maxBodyBytes) + `"}`

	w := h.sendSigned("msg_1", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, "invalid payload", w.Body.String())
	require.Zero(t, h.repo.calls())
}

func TestPersistenceErrorReturns500WithoutDetail(t *testing.T) {
	h := newHarness(t, delivery.NewMemoryLedger(time.Hour))
	h.repo.err = errors.New("pq: connection refused to 10.0.0.1")

	w := h.sendSigned("msg_1", createdBody)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal error", w.Body.String())
	require.False(t, bytes.Contains(w.Body.Bytes(), []byte("10.0.0.1")))

	// The claim is released, so the provider's retry is processed.
	h.repo.err = nil
	w = h.sendSigned("msg_1", createdBody)
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, h.repo.inserts, 2)
}

func TestDuplicateCreateIsPersistenceError(t *testing.T) {
	h := newHarness(t, nil)
	require.Equal(t, http.StatusOK, h.sendSigned("msg_1", createdBody).Code)

	w := h.sendSigned("msg_2", createdBody)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Equal(t, "internal error", w.Body.String())
}

func TestRedeliveryIsAppliedOnce(t *testing.T) {
	h := newHarness(t, delivery.NewMemoryLedger(time.Hour))

	for i := 0; i < 3; i++ {
		w := h.sendSigned("msg_1", createdBody)
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, "received", w.Body.String())
	}
	require.Len(t, h.repo.inserts, 1)
}

type failingLedger struct{}

func (failingLedger) Claim(context.Context, string) (bool, error) {
	return false, errors.New("redis unavailable")
}
func (failingLedger) Release(context.Context, string) error { return nil }

func TestLedgerErrorReturns500(t *testing.T) {
	h := newHarness(t, failingLedger{})

	w := h.sendSigned("msg_1", createdBody)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	require.Zero(t, h.repo.calls())
}

func TestMutationForIsExhaustive(t *testing.T) {
	tests := []struct {
		body   string
		action clerk.Action
	}{
		{createdBody, clerk.ActionCreate},
		{deletedBody, clerk.ActionDelete},
		{`{"type":"session.ended","data":null}`, clerk.ActionIgnore},
	}
	for _, tt := range tests {
		evt, err := clerk.ParseEvent([]byte(tt.body))
		require.NoError(t, err)
		m, err := mutationFor(evt)
		require.NoError(t, err)
		require.Equal(t, tt.action, m.action)
	}
}
