// Package ticketing keeps a remote ticket in step with each incident's
// lifecycle. The local incident record is authoritative; the remote ticket is
// best-effort and catches up on later cycles when the ticket system misbehaves.
package ticketing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TicketConnector is the remote ticket-system surface the synchronizer needs.
type TicketConnector interface {
	CreateIssue(ctx context.Context, summary, description, priority string) (string, error)
	AddComment(ctx context.Context, issueKey, comment string) error
	TransitionIssue(ctx context.Context, issueKey, transitionName string) error
}

type JiraConfig struct {
	BaseURL       string
	ProjectKey    string
	IssueType     string
	EmailAndToken string // "email:api-token" for basic auth
	Timeout       int    // seconds
}

// JiraConnector talks to the Jira Cloud REST API v3.
type JiraConnector struct {
	baseURL    string
	projectKey string
	issueType  string
	authHeader string
	client     *http.Client
}

func NewJiraConnector(cfg JiraConfig) *JiraConnector {
	if cfg.IssueType == "" {
		cfg.IssueType = "Task"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}

	credentials := base64.StdEncoding.EncodeToString([]byte(cfg.EmailAndToken))

	return &JiraConnector{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		projectKey: cfg.ProjectKey,
		issueType:  cfg.IssueType,
		authHeader: "Basic " + credentials,
		client:     &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

// adfDoc wraps plain text in the Atlassian Document Format Jira v3 requires
// for descriptions and comments.
func adfDoc(text string) map[string]interface{} {
	return map[string]interface{}{
		"type":    "doc",
		"version": 1,
		"content": []map[string]interface{}{
			{
				"type": "paragraph",
				"content": []map[string]interface{}{
					{"type": "text", "text": text},
				},
			},
		},
	}
}

func (c *JiraConnector) CreateIssue(ctx context.Context, summary, description, priority string) (string, error) {
	payload := map[string]interface{}{
		"fields": map[string]interface{}{
			"project":     map[string]string{"key": c.projectKey},
			"issuetype":   map[string]string{"name": c.issueType},
			"summary":     summary,
			"description": adfDoc(description),
			"priority":    map[string]string{"name": priority},
		},
	}

	body, err := c.post(ctx, c.baseURL+"/rest/api/3/issue", payload)

	if err != nil {
		return "", err
	}

	var created struct {
		Key string `json:"key"`
	}

	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("jira create response decode failed: %w", err)
	}

	if created.Key == "" {
		return "", fmt.Errorf("jira create response missing issue key")
	}

	return created.Key, nil
}

func (c *JiraConnector) AddComment(ctx context.Context, issueKey, comment string) error {
	payload := map[string]interface{}{
		"body": adfDoc(comment),
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/comment", c.baseURL, issueKey)

	_, err := c.post(ctx, url, payload)
	return err
}

func (c *JiraConnector) TransitionIssue(ctx context.Context, issueKey, transitionName string) error {
	transitionID, err := c.findTransitionID(ctx, issueKey, transitionName)

	if err != nil {
		return err
	}

	if transitionID == "" {
		return fmt.Errorf("transition %q not available on %s", transitionName, issueKey)
	}

	payload := map[string]interface{}{
		"transition": map[string]string{"id": transitionID},
	}

	url := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, issueKey)

	_, err = c.post(ctx, url, payload)
	return err
}

func (c *JiraConnector) findTransitionID(ctx context.Context, issueKey, transitionName string) (string, error) {
	url := fmt.Sprintf("%s/rest/api/3/issue/%s/transitions", c.baseURL, issueKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return "", err
	}

	req.Header.Add("Authorization", c.authHeader)
	req.Header.Add("Accept", "application/json")

	resp, err := c.client.Do(req)

	if err != nil {
		return "", fmt.Errorf("jira request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("jira returned status %d", resp.StatusCode)
	}

	var body struct {
		Transitions []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"transitions"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("jira transitions decode failed: %w", err)
	}

	for _, transition := range body.Transitions {
		if strings.EqualFold(transition.Name, transitionName) {
			return transition.ID, nil
		}
	}

	return "", nil
}

func (c *JiraConnector) post(ctx context.Context, url string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)

	if err != nil {
		return nil, fmt.Errorf("jira payload marshal failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))

	if err != nil {
		return nil, err
	}

	req.Header.Add("Authorization", c.authHeader)
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")

	resp, err := c.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("jira request failed: %w", err)
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	if err != nil {
		return nil, fmt.Errorf("jira response read failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("jira returned status %d: %s", resp.StatusCode, body)
	}

	return body, nil
}
