package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openbridge/relay/internal/core/domain"
	"github.com/openbridge/relay/internal/correlation"
	"github.com/openbridge/relay/internal/metrics"
)

// Outcome is the terminal state of a callback resolution.
type Outcome string

const (
	// OutcomeProcessed means the result was delivered and the
	// correlation consumed.
	OutcomeProcessed Outcome = "processed"
	// OutcomeRejected means the request id was missing or malformed.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnknown means no correlation matched: late, duplicate or
	// forged callback. Benign.
	OutcomeUnknown Outcome = "unknown"
	// OutcomeFailed means processing errored after the correlation was
	// consumed; the destination was notified best-effort.
	OutcomeFailed Outcome = "failed"
)

// Store is the narrow correlation contract the resolver needs.
type Store interface {
	Take(ctx context.Context, requestID string) (*domain.PendingCorrelation, error)
	Delete(ctx context.Context, requestID string) error
}

// Messenger delivers replies to the originating chat.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
	SendVoice(ctx context.Context, chatID int64, voice []byte, replyTo int64) error
}

// Synthesizer turns reply text into voice audio. Optional.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Resolver correlates runner callbacks back to their originating chat.
type Resolver struct {
	store     Store
	messenger Messenger
	speech    Synthesizer
	log       *slog.Logger
}

// New creates a resolver. speech may be nil; voice replies then fall
// back to text.
func New(store Store, messenger Messenger, speech Synthesizer) *Resolver {
	return &Resolver{
		store:     store,
		messenger: messenger,
		speech:    speech,
		log:       slog.Default().With("component", "resolver"),
	}
}

// Resolve consumes a callback body and resumes the original chat
// context. It never panics or returns an error: every failure past the
// id check is converted into a best-effort user notification, because
// the runner retries on non-200 and retries cannot help once the
// correlation is consumed.
func (r *Resolver) Resolve(ctx context.Context, body []byte) Outcome {
	result, err := Normalize(body)
	if err != nil || strings.TrimSpace(result.RequestID) == "" {
		r.log.Warn("Rejected callback with missing or unparseable request id", "error", err)
		return OutcomeRejected
	}

	pc, err := r.store.Take(ctx, result.RequestID)
	if errors.Is(err, correlation.ErrInvalidRequestID) {
		r.log.Warn("Rejected callback with malformed request id", "request_id", result.RequestID)
		return OutcomeRejected
	}
	if err != nil {
		r.log.Error("Failed to load correlation", "request_id", result.RequestID, "error", err)
		return OutcomeFailed
	}
	if pc == nil {
		r.log.Warn("No correlation found for callback", "request_id", result.RequestID)
		return OutcomeUnknown
	}

	if err := r.deliver(ctx, pc, result); err != nil {
		r.log.Error("Failed to deliver callback result", "request_id", result.RequestID, "error", err)
		r.notifyFailure(ctx, pc)
		// The correlation was already consumed by Take; a duplicate
		// callback finds nothing and takes the unknown branch.
		if derr := r.store.Delete(ctx, result.RequestID); derr != nil {
			r.log.Warn("Best-effort correlation delete failed", "request_id", result.RequestID, "error", derr)
		}
		return OutcomeFailed
	}

	r.log.Info("Callback resolved",
		"request_id", result.RequestID,
		"chat_id", pc.ChatID,
		"success", result.Success,
	)
	return OutcomeProcessed
}

// deliver formats the result and sends it to the stored destination,
// honoring the voice modality when possible. Panics in collaborators
// are contained here.
func (r *Resolver) deliver(ctx context.Context, pc *domain.PendingCorrelation, result domain.CallbackResult) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("delivery panicked: %v", rec)
		}
	}()

	text := formatResult(result)

	if pc.VoiceReply && r.speech != nil {
		audio, serr := r.speech.Synthesize(ctx, text)
		if serr == nil {
			if verr := r.messenger.SendVoice(ctx, pc.ChatID, audio, pc.ReplyToMessageID); verr == nil {
				metrics.DeliveriesTotal.WithLabelValues("voice", "ok").Inc()
				return nil
			} else {
				r.log.Warn("Voice reply failed, falling back to text", "chat_id", pc.ChatID, "error", verr)
			}
		} else {
			r.log.Warn("Speech synthesis failed, falling back to text", "chat_id", pc.ChatID, "error", serr)
		}
		metrics.DeliveriesTotal.WithLabelValues("voice", "fallback").Inc()
	}

	if err := r.messenger.SendMessage(ctx, pc.ChatID, text, pc.ReplyToMessageID); err != nil {
		metrics.DeliveriesTotal.WithLabelValues("text", "error").Inc()
		return fmt.Errorf("send message: %w", err)
	}
	metrics.DeliveriesTotal.WithLabelValues("text", "ok").Inc()
	return nil
}

// notifyFailure tells the user something went wrong. Best-effort only.
func (r *Resolver) notifyFailure(ctx context.Context, pc *domain.PendingCorrelation) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Warn("Failure notification panicked", "chat_id", pc.ChatID, "panic", rec)
		}
	}()
	msg := "Sorry, something went wrong while processing your request."
	if err := r.messenger.SendMessage(ctx, pc.ChatID, msg, pc.ReplyToMessageID); err != nil {
		r.log.Warn("Failure notification not delivered", "chat_id", pc.ChatID, "error", err)
	}
}

// formatResult renders a short human-readable reply. Raw stack traces
// never reach the chat.
func formatResult(result domain.CallbackResult) string {
	var b strings.Builder

	if result.Success {
		if strings.TrimSpace(result.Output) != "" {
			b.WriteString(result.Output)
		} else {
			b.WriteString("Task completed.")
		}
	} else {
		b.WriteString("Task failed")
		if result.ExitCode != 0 {
			fmt.Fprintf(&b, " (exit code %d)", result.ExitCode)
		}
		if strings.TrimSpace(result.Error) != "" {
			b.WriteString(": ")
			b.WriteString(result.Error)
		} else {
			b.WriteString(".")
		}
	}

	if result.MaxIterations > 0 {
		fmt.Fprintf(&b, "\n\nIterations: %d/%d", result.Iterations, result.MaxIterations)
	}
	if result.BranchName != "" {
		fmt.Fprintf(&b, "\nBranch: %s", result.BranchName)
		if result.Repository != "" {
			fmt.Fprintf(&b, " (%s)", result.Repository)
		}
	}
	if result.Duration != "" {
		fmt.Fprintf(&b, "\nDuration: %s", result.Duration)
	}

	return b.String()
}
