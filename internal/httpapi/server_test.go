package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbridge/relay/internal/async"
	"github.com/openbridge/relay/internal/core/domain"
	"github.com/openbridge/relay/internal/correlation"
	"github.com/openbridge/relay/internal/resolver"
	"github.com/openbridge/relay/internal/telegram"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls int
}

func (h *recordingHandler) Name() string { return "recording" }

func (h *recordingHandler) Handle(ctx context.Context, upd *telegram.Update) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	return nil
}

func (h *recordingHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

type noopMessenger struct{}

func (noopMessenger) SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error {
	return nil
}

func (noopMessenger) SendVoice(ctx context.Context, chatID int64, voice []byte, replyTo int64) error {
	return nil
}

type testEnv struct {
	server     *Server
	dispatcher *async.Dispatcher
	updates    *recordingHandler
	store      *correlation.Store
}

func newTestEnv(t *testing.T, telegramSecret, callbackSecret string) *testEnv {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := correlation.NewStoreFromClient(client, time.Hour)
	failures := async.NewFailureLog(10)
	dispatcher := async.NewDispatcher(time.Second, failures)
	updates := &recordingHandler{}

	server := NewServer(0, Deps{
		Dispatcher: dispatcher,
		Updates:    updates,
		Resolver:   resolver.New(store, noopMessenger{}, nil),
		Failures:   failures,
		Health:     store.Ping,
		DispatchOptions: async.Options{
			Policy: async.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffMultiple: 2},
		},
		TelegramSecret: telegramSecret,
		CallbackSecret: callbackSecret,
	})

	return &testEnv{server: server, dispatcher: dispatcher, updates: updates, store: store}
}

func (e *testEnv) drain(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, e.dispatcher.Shutdown(ctx))
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestWebhookAlwaysAcknowledges(t *testing.T) {
	env := newTestEnv(t, "", "")

	for _, body := range []string{
		`{"update_id": 1, "message": {"message_id": 2, "chat": {"id": 3}, "text": "hi"}}`,
		`{not json`,
		``,
	} {
		req := httptest.NewRequest("POST", "/webhook/telegram", strings.NewReader(body))
		rec := env.do(req)
		assert.Equal(t, http.StatusOK, rec.Code, "body %q", body)
	}

	env.drain(t)
	assert.Equal(t, 1, env.updates.callCount(), "only the parseable update is dispatched")
}

func TestWebhookSecretMismatch(t *testing.T) {
	env := newTestEnv(t, "hook-secret", "")

	req := httptest.NewRequest("POST", "/webhook/telegram", strings.NewReader(`{"update_id": 1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code)

	req = httptest.NewRequest("POST", "/webhook/telegram", strings.NewReader(`{"update_id": 1}`))
	req.Header.Set("X-Telegram-Bot-Api-Secret-Token", "hook-secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code)

	env.drain(t)
}

func TestCallbackRejectsMissingID(t *testing.T) {
	env := newTestEnv(t, "", "")

	req := httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(`{"success": true}`))
	rec := env.do(req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackUnknownAnswers200(t *testing.T) {
	env := newTestEnv(t, "", "")

	body := `{"request_id": "` + uuid.New().String() + `", "success": true}`
	rec := env.do(httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code, "unknown must not trigger a runner retry")
	assert.Contains(t, rec.Body.String(), "not_found")
}

func TestCallbackKnownCorrelation(t *testing.T) {
	env := newTestEnv(t, "", "")

	id := uuid.New().String()
	require.NoError(t, env.store.Save(context.Background(), domain.PendingCorrelation{
		RequestID: id,
		ChatID:    5,
		CreatedAt: time.Now().UTC(),
	}, 0))

	body := `{"request_id": "` + id + `", "success": true, "output": "done"}`
	rec := env.do(httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestCallbackAuth(t *testing.T) {
	env := newTestEnv(t, "", "cb-secret")

	body := `{"request_id": "` + uuid.New().String() + `", "success": true}`

	rec := env.do(httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "missing secret")

	req := httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(body))
	req.Header.Set("X-Callback-Secret", "wrong")
	assert.Equal(t, http.StatusUnauthorized, env.do(req).Code, "wrong secret")

	req = httptest.NewRequest("POST", "/callbacks/agent", strings.NewReader(body))
	req.Header.Set("X-Callback-Secret", "cb-secret")
	assert.Equal(t, http.StatusOK, env.do(req).Code, "header secret")

	req = httptest.NewRequest("POST", "/callbacks/agent?secret=cb-secret", strings.NewReader(body))
	assert.Equal(t, http.StatusOK, env.do(req).Code, "query secret")
}

func TestOpsFailuresEndpoint(t *testing.T) {
	env := newTestEnv(t, "", "cb-secret")

	rec := env.do(httptest.NewRequest("GET", "/ops/failures", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest("GET", "/ops/failures", nil)
	req.Header.Set("X-Callback-Secret", "cb-secret")
	rec = env.do(req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, "", "")

	rec := env.do(httptest.NewRequest("GET", "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
