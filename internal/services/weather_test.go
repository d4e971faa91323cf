package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

func newWeatherFixture(t *testing.T, handler http.HandlerFunc) *WeatherService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &WeatherService{
		apiClient: &http.Client{Timeout: 2 * time.Second},
		baseURL:   srv.URL,
		logger:    testLogger(),
	}
}

func TestGetConditions(t *testing.T) {
	svc := newWeatherFixture(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("latitude"))
		assert.NotEmpty(t, r.URL.Query().Get("longitude"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"current": {"temperature_2m": 21.5, "wind_speed_10m": 18.0, "wind_direction_10m": 270, "precipitation": 0, "weather_code": 2}}`))
	})

	conditions, err := svc.GetConditions(context.Background(), 40.4, -3.7)
	require.NoError(t, err)

	assert.InDelta(t, 21.5, conditions.TemperatureCelsius, 0.001)
	assert.InDelta(t, 18.0, conditions.WindSpeedKmh, 0.001)
	assert.InDelta(t, 270, conditions.WindDirectionDeg, 0.001)
	assert.Equal(t, "partly_cloudy", conditions.Conditions)
}

func TestGetConditionsUpstreamError(t *testing.T) {
	svc := newWeatherFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := svc.GetConditions(context.Background(), 40.4, -3.7)
	assert.True(t, errors.Is(err, utils.ErrExternalService))
}

func TestGetGolfImpact(t *testing.T) {
	svc := &WeatherService{logger: testLogger()}

	calm := &WeatherConditions{TemperatureCelsius: 20}
	assert.InDelta(t, 1.0, svc.GetGolfImpact(calm), 0.001)

	windy := &WeatherConditions{TemperatureCelsius: 20, WindSpeedKmh: 32}
	assert.InDelta(t, 1.06, svc.GetGolfImpact(windy), 0.001)

	wetAndCold := &WeatherConditions{TemperatureCelsius: 4, PrecipitationMm: 3}
	assert.InDelta(t, 1.05*1.03, svc.GetGolfImpact(wetAndCold), 0.001)

	storm := &WeatherConditions{TemperatureCelsius: 20, WindSpeedKmh: 45, PrecipitationMm: 1}
	assert.InDelta(t, 1.08*1.02, svc.GetGolfImpact(storm), 0.001)
}
