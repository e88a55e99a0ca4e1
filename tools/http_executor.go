package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kadirpekel/hectorflow/internal/httpclient"
)

// HTTPExecutor calls an Agent Executor service reachable over HTTP,
// posting one JSON body per tool call to {BaseURL}/execute.
type HTTPExecutor struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPExecutor builds an executor client with a bounded per-call
// timeout; the orchestrator applies its own llm/tool call timeout on
// top via ctx, so this is a floor, not the governing deadline.
func NewHTTPExecutor(baseURL string) *HTTPExecutor {
	return &HTTPExecutor{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 60 * time.Second},
	}
}

type executeRequest struct {
	AgentID          string                 `json:"agent_id"`
	ToolName         string                 `json:"tool_name"`
	Query            string                 `json:"query"`
	UserID           string                 `json:"user_id"`
	TenantID         string                 `json:"tenant_id"`
	Role             string                 `json:"role"`
	DepartmentID     string                 `json:"department_id,omitempty"`
	DetectedLanguage string                 `json:"detected_language,omitempty"`
	Provider         string                 `json:"provider,omitempty"`
}

type executeResponse struct {
	Content    string                   `json:"content"`
	Confidence float64                  `json:"confidence"`
	Sources    []map[string]interface{} `json:"sources,omitempty"`
	Metadata   map[string]interface{}   `json:"metadata,omitempty"`
}

func (e *HTTPExecutor) Execute(ctx context.Context, call Call) (*Result, error) {
	body, err := json.Marshal(executeRequest{
		AgentID:          call.AgentID,
		ToolName:         call.ToolName,
		Query:            call.Query,
		UserID:           call.User.UserID,
		TenantID:         call.User.TenantID,
		Role:             call.User.Role,
		DepartmentID:     call.User.DepartmentID,
		DetectedLanguage: call.DetectedLanguage,
		Provider:         call.Provider,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal tool call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.BaseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build tool call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool call %s/%s: %w", call.AgentID, call.ToolName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, &httpclient.RetryableError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("tool call %s/%s failed", call.AgentID, call.ToolName),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool call %s/%s: unexpected status %d", call.AgentID, call.ToolName, resp.StatusCode)
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tool call response: %w", err)
	}

	return &Result{
		Content:    out.Content,
		Confidence: out.Confidence,
		Sources:    out.Sources,
		Metadata:   out.Metadata,
	}, nil
}
