// Package notify delivers fired reminders to the agent platform.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

// AgentNotifier posts reminder messages to the agent platform's
// /agents/{agent_id}/messages endpoint with bearer authentication.
type AgentNotifier struct {
	baseURL string
	token   string
	client  *http.Client
}

func New(baseURL, token string) *AgentNotifier {
	return &AgentNotifier{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

func (n *AgentNotifier) Notify(ctx context.Context, agentID, text string) error {
	body, err := json.Marshal(map[string]string{"message": text})
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/agents/%s/messages", n.baseURL, url.PathEscape(agentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build notification request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("agent API returned %s", resp.Status)
	}
	return nil
}
