package domain

import "time"

// PendingCorrelation links an outstanding request to its reply destination
type PendingCorrelation struct {
	RequestID        string    `json:"request_id"`
	ChatID           int64     `json:"chat_id"`
	ReplyToMessageID int64     `json:"reply_to_message_id,omitempty"`
	VoiceReply       bool      `json:"voice_reply"`
	CreatedAt        time.Time `json:"created_at"`
}
