package connectors

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/devonelson50/Monarch/internal/models"
)

func TestNewRelicConnector(t *testing.T) {
	t.Run("should fetch and map paginated applications", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "secret-key", r.Header.Get("Api-Key"))

			page := r.URL.Query().Get("page")

			switch page {
			case "1":
				fmt.Fprint(w, `{"applications":[
					{"id":101,"name":"EC2-WEB-01","health_status":"green"},
					{"id":102,"name":"SQL-PROD-01","health_status":"red"}
				]}`)
			case "2":
				fmt.Fprint(w, `{"applications":[
					{"id":103,"name":"LOAD-BAL","health_status":"yellow"},
					{"id":104,"name":"DNS-01","health_status":"gray"}
				]}`)
			default:
				fmt.Fprint(w, `{"applications":[]}`)
			}
		}))
		defer server.Close()

		connector := NewNewRelicConnector("newrelic", NewRelicConfig{
			BaseURL: server.URL,
			APIKey:  "secret-key",
		})

		records, err := connector.FetchStatuses(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 4)

		assert.Equal(t, StatusRecord{AppID: "101", AppName: "EC2-WEB-01", RawStatus: "Operational"}, records[0])
		assert.Equal(t, StatusRecord{AppID: "102", AppName: "SQL-PROD-01", RawStatus: "Down"}, records[1])
		assert.Equal(t, StatusRecord{AppID: "103", AppName: "LOAD-BAL", RawStatus: "Degraded"}, records[2])
		// Unmapped health statuses pass through raw and collapse to Unknown later.
		assert.Equal(t, "gray", records[3].RawStatus)
	})

	t.Run("should fail on non-200 responses", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer server.Close()

		connector := NewNewRelicConnector("newrelic", NewRelicConfig{BaseURL: server.URL})

		_, err := connector.FetchStatuses(context.Background())
		assert.Error(t, err)
	})
}

func TestNagiosConnector(t *testing.T) {
	t.Run("should map host states", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/cgi-bin/statusjson.cgi", r.URL.Path)
			fmt.Fprint(w, `{"data":{"hostlist":{
				"web01":{"name":"web01","status":2},
				"db01":{"name":"db01","status":4},
				"edge01":{"name":"edge01","status":8},
				"new01":{"name":"new01","status":1}
			}}}`)
		}))
		defer server.Close()

		connector := NewNagiosConnector("nagios", NagiosConfig{BaseURL: server.URL})

		records, err := connector.FetchStatuses(context.Background())
		require.NoError(t, err)
		require.Len(t, records, 4)

		byID := make(map[string]string)
		for _, rec := range records {
			byID[rec.AppID] = rec.RawStatus
		}

		assert.Equal(t, "Operational", byID["nagios-web01"])
		assert.Equal(t, "Down", byID["nagios-db01"])
		assert.Equal(t, "Down", byID["nagios-edge01"])
		assert.Equal(t, "Unknown", byID["nagios-new01"])
	})
}

func TestSimulator(t *testing.T) {
	t.Run("should report the whole fleet with valid statuses", func(t *testing.T) {
		sim := NewSimulator("simulator", SimulatorConfig{Seed: 1})

		records, err := sim.FetchStatuses(context.Background())
		require.NoError(t, err)
		assert.Len(t, records, len(defaultFleet))

		for _, rec := range records {
			assert.Contains(t, []string{"Operational", "Degraded", "Down"}, rec.RawStatus)
			assert.NotEmpty(t, rec.AppID)
			assert.NotEmpty(t, rec.AppName)
		}
	})

	t.Run("should honor pinned statuses until cleared", func(t *testing.T) {
		sim := NewSimulator("simulator", SimulatorConfig{
			Fleet: []SimulatedApp{{AppID: "a1", Name: "EC2-WEB-01"}},
			Seed:  1,
		})

		require.NoError(t, sim.SetStatus("a1", "Down"))

		for i := 0; i < 5; i++ {
			records, err := sim.FetchStatuses(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "Down", records[0].RawStatus)
		}

		sim.ClearStatus("a1")

		records, err := sim.FetchStatuses(context.Background())
		require.NoError(t, err)
		assert.Contains(t, []string{"Operational", "Degraded", "Down"}, records[0].RawStatus)
	})

	t.Run("should reject unknown apps", func(t *testing.T) {
		sim := NewSimulator("simulator", SimulatorConfig{
			Fleet: []SimulatedApp{{AppID: "a1", Name: "EC2-WEB-01"}},
		})

		assert.Error(t, sim.SetStatus("nope", "Down"))
	})
}

func TestNewFromSource(t *testing.T) {
	t.Run("should build a simulator from a source row", func(t *testing.T) {
		cfg, err := json.Marshal(SimulatorConfig{Seed: 7})
		require.NoError(t, err)

		connector, err := New(models.Source{Name: "sim", Type: "simulator", Config: cfg})
		require.NoError(t, err)
		assert.Equal(t, "sim", connector.Name())
	})

	t.Run("should reject unsupported types", func(t *testing.T) {
		_, err := New(models.Source{Name: "x", Type: "zabbix"})
		assert.Error(t, err)
	})
}
