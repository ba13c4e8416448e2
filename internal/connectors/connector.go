// Package connectors polls external monitoring sources for the current health
// snapshot of the app fleet. Connectors only report what the source sees right
// now; deciding what a reading means is the reconciler's job.
package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/devonelson50/Monarch/internal/models"
)

// StatusRecord is one app's raw status as reported by a source this cycle.
type StatusRecord struct {
	AppID     string `json:"app_id"`
	AppName   string `json:"app_name"`
	RawStatus string `json:"raw_status"`
}

// Connector fetches the current status snapshot from one monitoring source.
type Connector interface {
	Name() string
	FetchStatuses(ctx context.Context) ([]StatusRecord, error)
}

// New builds a connector from a configured source row.
func New(source models.Source) (Connector, error) {
	switch source.Type {
	case "newrelic":
		var cfg NewRelicConfig

		if err := json.Unmarshal(source.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid newrelic config for source %s: %w", source.Name, err)
		}

		return NewNewRelicConnector(source.Name, cfg), nil
	case "nagios":
		var cfg NagiosConfig

		if err := json.Unmarshal(source.Config, &cfg); err != nil {
			return nil, fmt.Errorf("invalid nagios config for source %s: %w", source.Name, err)
		}

		return NewNagiosConnector(source.Name, cfg), nil
	case "simulator":
		var cfg SimulatorConfig

		if len(source.Config) > 0 {
			if err := json.Unmarshal(source.Config, &cfg); err != nil {
				return nil, fmt.Errorf("invalid simulator config for source %s: %w", source.Name, err)
			}
		}

		return NewSimulator(source.Name, cfg), nil
	default:
		return nil, fmt.Errorf("unsupported source type: %s", source.Type)
	}
}
