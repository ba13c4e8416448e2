package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type SlackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type SlackAttachment struct {
	Color     string       `json:"color"`
	Title     string       `json:"title"`
	Text      string       `json:"text"`
	Fields    []SlackField `json:"fields"`
	Footer    string       `json:"footer"`
	Timestamp int64        `json:"ts"`
}

type SlackWebhookRequest struct {
	Username    string            `json:"username"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Text        string            `json:"text"`
	Attachments []SlackAttachment `json:"attachments"`
}

const slackUsername = "Monarch Monitor"

// SlackNotifier posts incident lifecycle messages to a Slack incoming
// webhook.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SlackNotifier) Channel() string {
	return "slack"
}

func (s *SlackNotifier) Notify(ctx context.Context, event Event) error {
	var headline, emoji, color string

	switch event.Kind {
	case KindResolved:
		headline = ":white_check_mark: *INCIDENT RESOLVED*"
		emoji = ":white_check_mark:"
		color = "good"
	case KindEscalated:
		headline = ":warning: *INCIDENT ESCALATED*"
		emoji = ":warning:"
		color = "warning"
	default:
		headline = ":rotating_light: *INCIDENT DETECTED*"
		emoji = ":rotating_light:"
		color = "danger"
	}

	payload := SlackWebhookRequest{
		Username:  slackUsername,
		IconEmoji: emoji,
		Text:      headline,
		Attachments: []SlackAttachment{
			{
				Color: color,
				Title: event.Message(),
				Fields: []SlackField{
					{Title: "Application", Value: event.AppName, Short: true},
					{Title: "Status", Value: string(event.Current), Short: true},
					{Title: "Previous", Value: string(event.Previous), Short: true},
					{Title: "Incident", Value: fmt.Sprintf("#%d", event.IncidentID), Short: true},
				},
				Footer:    "Monarch Monitoring",
				Timestamp: event.At.Unix(),
			},
		},
	}

	return s.send(ctx, payload)
}

func (s *SlackNotifier) send(ctx context.Context, payload SlackWebhookRequest) error {
	body, err := json.Marshal(payload)

	if err != nil {
		return fmt.Errorf("failed to marshal Slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewBuffer(body))

	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)

	if err != nil {
		return fmt.Errorf("failed to send Slack webhook: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("Slack webhook returned status %d", resp.StatusCode)
	}

	return nil
}
