package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openbridge/relay/internal/core/domain"
	"github.com/openbridge/relay/internal/telegram"
)

// Submitter hands a task to the remote runner.
type Submitter interface {
	Submit(ctx context.Context, task domain.AgentTask) error
}

// CorrelationStore is the narrow store contract the handler needs.
type CorrelationStore interface {
	Save(ctx context.Context, pc domain.PendingCorrelation, ttl time.Duration) error
	Delete(ctx context.Context, requestID string) error
}

// Messenger covers the direct-reply and acknowledgment calls.
type Messenger interface {
	SendMessage(ctx context.Context, chatID int64, text string, replyTo int64) error
	SendChatAction(ctx context.Context, chatID int64, action string) error
}

// UpdateHandler is the async unit of work behind the webhook endpoint:
// it stores a correlation for the eventual callback, then submits the
// task to the runner.
type UpdateHandler struct {
	store       CorrelationStore
	runner      Submitter
	messenger   Messenger
	callbackURL string
	ttl         time.Duration
	log         *slog.Logger
}

// NewUpdateHandler creates the inbound update handler.
func NewUpdateHandler(
	store CorrelationStore,
	runner Submitter,
	messenger Messenger,
	callbackURL string,
	ttl time.Duration,
) *UpdateHandler {
	return &UpdateHandler{
		store:       store,
		runner:      runner,
		messenger:   messenger,
		callbackURL: callbackURL,
		ttl:         ttl,
		log:         slog.Default().With("component", "bot"),
	}
}

func (h *UpdateHandler) Name() string { return "telegram-update" }

// Handle processes one update. The correlation is saved before the
// runner sees the task, so a callback can never race an unsaved entry.
func (h *UpdateHandler) Handle(ctx context.Context, upd *telegram.Update) error {
	if upd == nil || upd.Message == nil {
		// Edits, channel posts and other update kinds are not work.
		return nil
	}
	msg := upd.Message

	prompt := strings.TrimSpace(msg.Text)
	voice := msg.Voice != nil

	if strings.HasPrefix(prompt, "/") {
		return h.handleCommand(ctx, msg, prompt)
	}
	if prompt == "" {
		// Voice transcription is a collaborator this service does not
		// own; without text there is nothing to submit.
		reply := "Please send your request as text."
		if err := h.messenger.SendMessage(ctx, msg.Chat.ID, reply, msg.MessageID); err != nil {
			h.log.Warn("Failed to send empty-prompt hint", "chat_id", msg.Chat.ID, "error", err)
		}
		return nil
	}

	requestID := uuid.New().String()
	pc := domain.PendingCorrelation{
		RequestID:        requestID,
		ChatID:           msg.Chat.ID,
		ReplyToMessageID: msg.MessageID,
		VoiceReply:       voice,
		CreatedAt:        time.Now().UTC(),
	}
	if err := h.store.Save(ctx, pc, h.ttl); err != nil {
		return fmt.Errorf("save correlation: %w", err)
	}

	task := domain.AgentTask{
		RequestID:   requestID,
		Prompt:      prompt,
		ChatID:      msg.Chat.ID,
		CallbackURL: h.callbackURL,
	}
	if err := h.runner.Submit(ctx, task); err != nil {
		// Compensate so an abandoned entry does not wait out its TTL.
		if derr := h.store.Delete(ctx, requestID); derr != nil {
			h.log.Warn("Failed to delete correlation after submit failure", "request_id", requestID, "error", derr)
		}
		return fmt.Errorf("submit task: %w", err)
	}

	h.log.Info("Task submitted", "request_id", requestID, "chat_id", msg.Chat.ID, "voice", voice)

	if err := h.messenger.SendChatAction(ctx, msg.Chat.ID, "typing"); err != nil {
		h.log.Warn("Failed to send chat action", "chat_id", msg.Chat.ID, "error", err)
	}
	return nil
}

func (h *UpdateHandler) handleCommand(ctx context.Context, msg *telegram.Message, prompt string) error {
	cmd := strings.Fields(prompt)[0]
	// Group chats address commands as /cmd@botname.
	if i := strings.Index(cmd, "@"); i > 0 {
		cmd = cmd[:i]
	}

	var reply string
	switch cmd {
	case "/start":
		reply = "Hi! Send me a task and I will run it for you. " +
			"I will reply here as soon as it finishes."
	case "/help":
		reply = "Describe the task you want to run in a plain message. " +
			"Work happens in the background; results arrive in this chat."
	default:
		reply = fmt.Sprintf("Unknown command %s. Try /help.", cmd)
	}

	if err := h.messenger.SendMessage(ctx, msg.Chat.ID, reply, msg.MessageID); err != nil {
		return fmt.Errorf("send command reply: %w", err)
	}
	return nil
}
