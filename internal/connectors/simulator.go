package connectors

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

type SimulatorConfig struct {
	Fleet []SimulatedApp `json:"fleet"` // optional; defaults to the built-in fleet
	Seed  int64          `json:"seed"`  // optional; 0 means unseeded
}

type SimulatedApp struct {
	AppID string `json:"app_id"`
	Name  string `json:"name"`
}

// Simulator fabricates a fleet of apps whose statuses drift at random,
// weighted heavily toward Operational. It stands in for a real source until
// live credentials are configured, and statuses can be pinned at runtime to
// drive an incident end to end.
type Simulator struct {
	name  string
	fleet []SimulatedApp

	mu        sync.Mutex
	rng       *rand.Rand
	overrides map[string]string // app ID -> pinned raw status
}

// defaultFleet mirrors the production inventory the worker was first pointed
// at.
var defaultFleet = []SimulatedApp{
	{"aabc123", "EC2-WEB-01"}, {"adef456", "EC2-WEB-02"}, {"aghi789", "LOAD-BAL"},
	{"ajkl012", "EC2-CDN-01"}, {"amno345", "ZTA-APP"}, {"apqr678", "SQL-PROD-01"},
	{"astu901", "SQL-PROD-02"}, {"avwx234", "SQL-TEST-01"}, {"ayza567", "SQL-TEST-02"},
	{"abcd890", "API-CONT"}, {"babc123", "DOCK-RUN-01"}, {"bdef456", "DOCK-RUN-02"},
	{"bghi789", "POS-01"}, {"bjkl012", "POS-02"}, {"bmno345", "POS-TEST"},
	{"bpqr678", "PSA-01"}, {"bstu901", "IS-DC1"}, {"bvwx234", "IS-DC2"},
	{"byza567", "IS-DC3"}, {"bbcd890", "WAN-UP-01"}, {"cabc123", "WAN-UP-02"},
	{"cdef456", "WAN-UP-03"}, {"cghi789", "NFS-01"}, {"cjkl012", "iSCSI-01"},
	{"cmno345", "DNS-01"}, {"cpqr678", "DNS-02"}, {"cstu901", "MONARCH"},
	{"cvwx234", "HV1"}, {"cyza567", "HV2"}, {"cbcd890", "HV3"},
	{"dabc123", "HV4"}, {"ddef456", "HV-LAB"}, {"dghi789", "CRM-01"},
	{"djkl012", "CRM-02"}, {"dmno345", "ATERA-01"}, {"dpqr678", "VPN-01"},
	{"dstu901", "VPN-02"}, {"dvwx234", "WSUS-01"}, {"dyza567", "WSUS-02"},
	{"dbcd890", "WINS-01"}, {"eabc123", "WINS-02"}, {"edef456", "EDR-01"},
	{"eghi789", "EDR-02"}, {"ejkl012", "EDR-TEST"}, {"emno345", "RMM-01"},
	{"epqr678", "RMM-02"}, {"estu901", "MDM-01"}, {"evwx234", "MDM-02"},
	{"eyza567", "RSNAP-01"}, {"ebcd890", "RSNAP-02"},
}

func NewSimulator(name string, cfg SimulatorConfig) *Simulator {
	fleet := cfg.Fleet

	if len(fleet) == 0 {
		fleet = defaultFleet
	}

	rng := rand.New(rand.NewSource(cfg.Seed))

	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	return &Simulator{
		name:      name,
		fleet:     fleet,
		rng:       rng,
		overrides: make(map[string]string),
	}
}

func (s *Simulator) Name() string {
	return s.name
}

func (s *Simulator) FetchStatuses(ctx context.Context) ([]StatusRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]StatusRecord, 0, len(s.fleet))

	for _, app := range s.fleet {
		status, pinned := s.overrides[app.AppID]

		if !pinned {
			status = s.pickStatus()
		}

		records = append(records, StatusRecord{
			AppID:     app.AppID,
			AppName:   app.Name,
			RawStatus: status,
		})
	}

	return records, nil
}

// SetStatus pins an app to a fixed status until cleared. Used by the ops
// endpoint to force incidents through their lifecycle.
func (s *Simulator) SetStatus(appID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, app := range s.fleet {
		if app.AppID == appID {
			s.overrides[appID] = status
			return nil
		}
	}

	return fmt.Errorf("unknown app: %s", appID)
}

// ClearStatus removes a pinned status so the app drifts at random again.
func (s *Simulator) ClearStatus(appID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.overrides, appID)
}

// pickStatus rolls a weighted status: mostly Operational, occasionally
// Degraded, rarely Down. Caller holds s.mu.
func (s *Simulator) pickStatus() string {
	roll := s.rng.Intn(100)

	if roll < 95 {
		return "Operational"
	}

	if roll < 98 {
		return "Degraded"
	}

	return "Down"
}
