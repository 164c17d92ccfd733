package domain

// AgentTask is a unit of work submitted to the remote runner
type AgentTask struct {
	RequestID   string `json:"request_id"`
	Prompt      string `json:"prompt"`
	ChatID      int64  `json:"chat_id"`
	CallbackURL string `json:"callback_url"`
}
