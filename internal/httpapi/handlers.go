package httpapi

import (
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/openbridge/relay/internal/async"
	"github.com/openbridge/relay/internal/metrics"
	"github.com/openbridge/relay/internal/resolver"
	"github.com/openbridge/relay/internal/telegram"
)

// maxBodyBytes bounds how much of an inbound payload is read.
const maxBodyBytes = 1 << 20

type handlers struct {
	deps Deps
	log  *slog.Logger
}

func newHandlers(deps Deps) *handlers {
	log := slog.Default().With("component", "httpapi")
	if deps.CallbackSecret == "" {
		log.Warn("Callback secret is not configured; callback authentication is DISABLED")
	}
	return &handlers{deps: deps, log: log}
}

// handleWebhook acknowledges the chat platform immediately and hands
// the update to the dispatcher. It answers 200 for every parseable or
// unparseable body so the platform never retries.
func (h *handlers) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.deps.TelegramSecret != "" {
		got := r.Header.Get("X-Telegram-Bot-Api-Secret-Token")
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.deps.TelegramSecret)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.log.Warn("Failed to read webhook body", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	var upd telegram.Update
	if err := json.Unmarshal(body, &upd); err != nil {
		h.log.Warn("Ignoring unparseable webhook update", "error", err)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
		return
	}

	opts := h.deps.DispatchOptions
	opts.Context = map[string]string{"update_id": strconv.FormatInt(upd.UpdateID, 10)}
	if upd.Message != nil {
		opts.Context["chat_id"] = strconv.FormatInt(upd.Message.Chat.ID, 10)
	}

	async.Dispatch(h.deps.Dispatcher, h.deps.Updates, &upd, opts)
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// handleCallback resolves a runner callback. 400 is reserved for a
// missing or malformed request id; every other outcome answers 200 so
// the runner does not retry a callback that cannot succeed twice.
func (h *handlers) handleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.log.Warn("Failed to read callback body", "error", err)
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	outcome := h.deps.Resolver.Resolve(r.Context(), body)
	metrics.CallbacksTotal.WithLabelValues(string(outcome)).Inc()

	switch outcome {
	case resolver.OutcomeRejected:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing or invalid request id"})
	case resolver.OutcomeUnknown:
		writeJSON(w, http.StatusOK, map[string]string{"status": "not_found"})
	case resolver.OutcomeFailed:
		writeJSON(w, http.StatusOK, map[string]string{"status": "error"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (h *handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Health != nil {
		if err := h.deps.Health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) handleFailures(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, h.deps.Failures.Recent())
}

// authorized checks the shared secret from header or query. An empty
// configured secret bypasses the check.
func (h *handlers) authorized(r *http.Request) bool {
	secret := h.deps.CallbackSecret
	if secret == "" {
		return true
	}
	got := r.Header.Get("X-Callback-Secret")
	if got == "" {
		got = r.URL.Query().Get("secret")
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(secret)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Warn("Failed to encode response", "error", err)
	}
}
