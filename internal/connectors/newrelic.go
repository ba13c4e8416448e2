package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// https://api.newrelic.com/docs/#/Applications
type NewRelicConfig struct {
	BaseURL string `json:"base_url"`
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"` // seconds, per request
}

// NewRelicConnector retrieves paginated application health data from the
// New Relic REST API.
type NewRelicConnector struct {
	name   string
	config NewRelicConfig
	client *http.Client
}

type newRelicApplication struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	HealthStatus string `json:"health_status"`
}

type newRelicResponse struct {
	Applications []newRelicApplication `json:"applications"`
}

// newRelicStatuses maps New Relic health_status values onto the raw statuses
// the reconciler understands. Anything else passes through and collapses to
// Unknown downstream.
var newRelicStatuses = map[string]string{
	"green":  "Operational",
	"yellow": "Degraded",
	"orange": "Degraded",
	"red":    "Down",
}

func NewNewRelicConnector(name string, cfg NewRelicConfig) *NewRelicConnector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.newrelic.com"
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}

	return &NewRelicConnector{
		name:   name,
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

func (c *NewRelicConnector) Name() string {
	return c.name
}

func (c *NewRelicConnector) FetchStatuses(ctx context.Context) ([]StatusRecord, error) {
	var records []StatusRecord

	for page := 1; ; page++ {
		apps, err := c.fetchPage(ctx, page)

		if err != nil {
			return nil, err
		}

		if len(apps) == 0 {
			break
		}

		for _, app := range apps {
			raw, ok := newRelicStatuses[app.HealthStatus]

			if !ok {
				raw = app.HealthStatus
			}

			records = append(records, StatusRecord{
				AppID:     strconv.Itoa(app.ID),
				AppName:   app.Name,
				RawStatus: raw,
			})
		}
	}

	return records, nil
}

func (c *NewRelicConnector) fetchPage(ctx context.Context, page int) ([]newRelicApplication, error) {
	url := fmt.Sprintf("%s/v2/applications.json?page=%d", c.config.BaseURL, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	req.Header.Add("Api-Key", c.config.APIKey)

	resp, err := c.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("newrelic request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("newrelic returned status %d", resp.StatusCode)
	}

	var body newRelicResponse

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("newrelic response decode failed: %w", err)
	}

	return body.Applications, nil
}
