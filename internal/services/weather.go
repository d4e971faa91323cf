package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/fairwaylabs/caddie-backend/pkg/config"
	"github.com/fairwaylabs/caddie-backend/pkg/utils"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// WeatherConditions is the current weather at a course position
type WeatherConditions struct {
	TemperatureCelsius float64 `json:"temperature_celsius"`
	WindSpeedKmh       float64 `json:"wind_speed_kmh"`
	WindDirectionDeg   float64 `json:"wind_direction_deg"`
	PrecipitationMm    float64 `json:"precipitation_mm"`
	Conditions         string  `json:"conditions"`
}

type openMeteoResponse struct {
	Current struct {
		Temperature   float64 `json:"temperature_2m"`
		WindSpeed     float64 `json:"wind_speed_10m"`
		WindDirection float64 `json:"wind_direction_10m"`
		Precipitation float64 `json:"precipitation"`
		WeatherCode   int     `json:"weather_code"`
	} `json:"current"`
}

// WeatherService fetches current conditions for a position on the course
type WeatherService struct {
	cache     *CacheService
	apiClient *http.Client
	baseURL   string
	logger    *logrus.Entry
}

func NewWeatherService(cfg *config.Config, cache *CacheService, logger *logrus.Entry) *WeatherService {
	return &WeatherService{
		cache:     cache,
		apiClient: &http.Client{Timeout: cfg.ExternalAPITimeout},
		baseURL:   openMeteoURL,
		logger:    logger,
	}
}

// GetConditions returns the current weather at the position. Results are
// cached per rounded coordinate so a foursome on the same hole shares one
// upstream call.
func (s *WeatherService) GetConditions(ctx context.Context, lat, lon float64) (*WeatherConditions, error) {
	if s.cache != nil {
		var cached WeatherConditions
		if err := s.cache.Get(ctx, WeatherCacheKey(lat, lon), &cached); err == nil {
			return &cached, nil
		}
	}

	url := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&current=temperature_2m,wind_speed_10m,wind_direction_10m,precipitation,weather_code",
		s.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrExternalService, err)
	}

	resp, err := s.apiClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: weather lookup failed: %v", utils.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: weather API returned status %d", utils.ErrExternalService, resp.StatusCode)
	}

	var raw openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrExternalService, err)
	}

	conditions := &WeatherConditions{
		TemperatureCelsius: raw.Current.Temperature,
		WindSpeedKmh:       raw.Current.WindSpeed,
		WindDirectionDeg:   raw.Current.WindDirection,
		PrecipitationMm:    raw.Current.Precipitation,
		Conditions:         describeWeatherCode(raw.Current.WeatherCode),
	}

	if s.cache != nil {
		s.cache.Set(ctx, WeatherCacheKey(lat, lon), conditions, WeatherTTL)
	}
	return conditions, nil
}

// GetGolfImpact estimates how much conditions inflate effective difficulty.
// Wind dominates, rain and temperature extremes add smaller factors.
func (s *WeatherService) GetGolfImpact(conditions *WeatherConditions) float64 {
	impact := 1.0

	switch {
	case conditions.WindSpeedKmh > 40:
		impact *= 1.08
	case conditions.WindSpeedKmh > 30:
		impact *= 1.06
	case conditions.WindSpeedKmh > 22:
		impact *= 1.04
	case conditions.WindSpeedKmh > 15:
		impact *= 1.02
	}

	if conditions.PrecipitationMm > 2 {
		impact *= 1.05
	} else if conditions.PrecipitationMm > 0 {
		impact *= 1.02
	}

	if conditions.TemperatureCelsius < 7 || conditions.TemperatureCelsius > 35 {
		impact *= 1.03
	}

	return impact
}

// describeWeatherCode maps WMO weather codes to short condition labels
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "partly_cloudy"
	case code <= 48:
		return "fog"
	case code <= 57:
		return "drizzle"
	case code <= 67:
		return "rain"
	case code <= 77:
		return "snow"
	case code <= 82:
		return "rain_showers"
	case code <= 86:
		return "snow_showers"
	default:
		return "thunderstorm"
	}
}
