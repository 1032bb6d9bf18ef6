package telemetryapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wildfireranch/commandcenter/internal/infra/telemetryapi"
	apperrors "github.com/wildfireranch/commandcenter/pkg/errors"
)

func TestClient_FetchDecodesReading(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"battery_soc":62,"battery_power_w":500,"pv_power_w":3000,"load_power_w":1200,"grid_power_w":-400}`))
	}))
	defer server.Close()

	client := telemetryapi.NewClient("inverter", server.URL)
	record, err := client.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, "inverter", record.Source)
	require.Equal(t, 62.0, record.BatterySOC)
	require.True(t, record.Charging)
	require.True(t, record.Importing)
}

func TestClient_UpstreamErrorStatusIsWrapped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := telemetryapi.NewClient("battery", server.URL)
	_, err := client.Fetch(context.Background())
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "upstream_error"))
}
