package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

type NagiosConfig struct {
	BaseURL string `json:"base_url"` // e.g. "https://nagios.internal/nagios"
	APIKey  string `json:"api_key"`
	Timeout int    `json:"timeout"` // seconds
}

// NagiosConnector reads the host list from the Nagios JSON CGI. Host state
// codes: 1 pending, 2 up, 4 down, 8 unreachable.
type NagiosConnector struct {
	name   string
	config NagiosConfig
	client *http.Client
}

type nagiosHost struct {
	Name   string `json:"name"`
	Status int    `json:"status"`
}

type nagiosResponse struct {
	Data struct {
		HostList map[string]nagiosHost `json:"hostlist"`
	} `json:"data"`
}

var nagiosStatuses = map[int]string{
	2: "Operational",
	4: "Down",
	8: "Down",
}

func NewNagiosConnector(name string, cfg NagiosConfig) *NagiosConnector {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10
	}

	return &NagiosConnector{
		name:   name,
		config: cfg,
		client: &http.Client{Timeout: time.Duration(cfg.Timeout) * time.Second},
	}
}

func (c *NagiosConnector) Name() string {
	return c.name
}

func (c *NagiosConnector) FetchStatuses(ctx context.Context) ([]StatusRecord, error) {
	url := fmt.Sprintf("%s/cgi-bin/statusjson.cgi?query=hostlist&details=true", c.config.BaseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return nil, err
	}

	if c.config.APIKey != "" {
		req.Header.Add("X-Api-Key", c.config.APIKey)
	}

	resp, err := c.client.Do(req)

	if err != nil {
		return nil, fmt.Errorf("nagios request failed: %w", err)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nagios returned status %d", resp.StatusCode)
	}

	var body nagiosResponse

	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("nagios response decode failed: %w", err)
	}

	records := make([]StatusRecord, 0, len(body.Data.HostList))

	for hostName, host := range body.Data.HostList {
		name := host.Name

		if name == "" {
			name = hostName
		}

		raw, ok := nagiosStatuses[host.Status]

		if !ok {
			raw = "Unknown"
		}

		records = append(records, StatusRecord{
			AppID:     "nagios-" + name,
			AppName:   name,
			RawStatus: raw,
		})
	}

	return records, nil
}
