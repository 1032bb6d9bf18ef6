// Package telemetryapi fetches current readings from the upstream
// inverter and battery-monitor HTTP APIs, translating each vendor's
// JSON shape into a telemetry.Record the pollers can append.
package telemetryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wildfireranch/commandcenter/internal/domain/telemetry"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

const defaultTimeout = 10 * time.Second

// reading is the common wire shape both the inverter and battery-monitor
// endpoints are expected to return; vendor-specific field names are
// adapted by each Client's baseURL/path, not by a different struct.
type reading struct {
	BatterySOC   float64 `json:"battery_soc"`
	BatteryPower float64 `json:"battery_power_w"`
	PVPower      float64 `json:"pv_power_w"`
	LoadPower    float64 `json:"load_power_w"`
	GridPower    float64 `json:"grid_power_w"`
}

// Client polls one upstream telemetry endpoint over HTTP.
type Client struct {
	source     string
	endpoint   string
	httpClient *http.Client
}

// NewClient builds a Client for the given source tag ("inverter",
// "battery") and endpoint URL.
func NewClient(source, endpoint string) *Client {
	return &Client{
		source:   source,
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
	}
}

// Fetch implements pollers.Fetcher.
func (c *Client) Fetch(ctx context.Context) (telemetry.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		return telemetry.Record{}, apperrors.Wrap("upstream_error", "build telemetry request", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return telemetry.Record{}, apperrors.Wrap("upstream_error", fmt.Sprintf("%s telemetry request failed", c.source), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return telemetry.Record{}, apperrors.Wrap("upstream_error", fmt.Sprintf("%s telemetry error: status=%d body=%s", c.source, resp.StatusCode, string(payload)), nil)
	}

	var raw reading
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return telemetry.Record{}, apperrors.Wrap("upstream_error", fmt.Sprintf("decode %s telemetry response", c.source), err)
	}

	record := telemetry.Record{
		Source:       c.source,
		Timestamp:    time.Now(),
		BatterySOC:   raw.BatterySOC,
		BatteryPower: raw.BatteryPower,
		PVPower:      raw.PVPower,
		LoadPower:    raw.LoadPower,
		GridPower:    raw.GridPower,
	}
	record.DeriveFlowFlags()
	return record, nil
}
