package resolver

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openbridge/relay/internal/core/domain"
)

// callbackPayload tolerates both the camelCase and snake_case field
// naming conventions the runner has been observed to use.
type callbackPayload struct {
	RequestID      string          `json:"requestId"`
	RequestIDSnake string          `json:"request_id"`
	Success        json.RawMessage `json:"success"`
	Output         string          `json:"output"`
	Error          string          `json:"error"`
	Iterations     *int            `json:"iterations"`
	IterationsUsed *int            `json:"iterations_used"`
	MaxIterations  *int            `json:"maxIterations"`
	MaxIterSnake   *int            `json:"max_iterations"`
	ExitCode       *int            `json:"exitCode"`
	ExitCodeSnake  *int            `json:"exit_code"`
	Repository     string          `json:"repository"`
	BranchName     string          `json:"branchName"`
	BranchSnake    string          `json:"branch_name"`
	Duration       string          `json:"duration"`
	Timestamp      string          `json:"timestamp"`
}

// Normalize parses a callback body into the canonical result shape.
// The dual-naming ambiguity stops here; nothing downstream sees it.
func Normalize(body []byte) (domain.CallbackResult, error) {
	var p callbackPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return domain.CallbackResult{}, fmt.Errorf("failed to parse callback payload: %w", err)
	}

	return domain.CallbackResult{
		Success:       truthy(p.Success),
		RequestID:     firstNonEmpty(p.RequestID, p.RequestIDSnake),
		Output:        p.Output,
		Error:         p.Error,
		Iterations:    firstInt(p.Iterations, p.IterationsUsed),
		MaxIterations: firstInt(p.MaxIterations, p.MaxIterSnake),
		ExitCode:      firstInt(p.ExitCode, p.ExitCodeSnake),
		Repository:    p.Repository,
		BranchName:    firstNonEmpty(p.BranchName, p.BranchSnake),
		Duration:      p.Duration,
		Timestamp:     p.Timestamp,
	}, nil
}

// truthy treats only true, "true", 1 and "1" as true. Absent values,
// null, "false" and 0 are all false.
func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "true", `"true"`, "1", `"1"`:
		return true
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}
