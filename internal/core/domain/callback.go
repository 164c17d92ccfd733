package domain

// CallbackResult is the canonical shape of a runner callback payload
type CallbackResult struct {
	Success       bool   `json:"success"`
	RequestID     string `json:"request_id"`
	Output        string `json:"output"`
	Error         string `json:"error,omitempty"`
	Iterations    int    `json:"iterations"`
	MaxIterations int    `json:"max_iterations"`
	ExitCode      int    `json:"exit_code"`
	Repository    string `json:"repository,omitempty"`
	BranchName    string `json:"branch_name,omitempty"`
	Duration      string `json:"duration,omitempty"`
	Timestamp     string `json:"timestamp,omitempty"`
}
