package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/database"
)

const (
	// WeatherToolName is the tool identifier declared to the model.
	WeatherToolName = "check_weather"

	defaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"
	defaultForecastBaseURL  = "https://api.open-meteo.com/v1"

	weatherUnavailable = "Weather is unavailable right now; answer without current conditions."
)

// WeatherTool looks up current conditions for a city via Open-Meteo.
type WeatherTool struct {
	geocodingBaseURL string
	forecastBaseURL  string
	httpClient       *http.Client
	profiles         database.ProfileStore
	logger           *zap.Logger
}

// NewWeatherTool creates the weather adapter. The profile store is used
// for the stored-city fallback when the model omits the city argument.
func NewWeatherTool(profiles database.ProfileStore, logger *zap.Logger) *WeatherTool {
	return &WeatherTool{
		geocodingBaseURL: defaultGeocodingBaseURL,
		forecastBaseURL:  defaultForecastBaseURL,
		httpClient:       &http.Client{Timeout: 10 * time.Second},
		profiles:         profiles,
		logger:           logger,
	}
}

// SetBaseURLs overrides the upstream endpoints. Used by tests.
func (t *WeatherTool) SetBaseURLs(geocoding, forecast string, client *http.Client) {
	t.geocodingBaseURL = geocoding
	t.forecastBaseURL = forecast
	if client != nil {
		t.httpClient = client
	}
}

// Name implements Tool.
func (t *WeatherTool) Name() string { return WeatherToolName }

// Definition implements Tool.
func (t *WeatherTool) Definition() openai.ChatCompletionToolUnionParam {
	return openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
		Name:        WeatherToolName,
		Description: openai.String("Check current weather conditions for a city."),
		Parameters: shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"city": map[string]any{
					"type":        "string",
					"description": "City name in English",
				},
			},
			"required": []string{"city"},
		},
	})
}

// Execute implements Tool. Upstream failures are reported inside the
// result text so the model can adapt its answer.
func (t *WeatherTool) Execute(ctx context.Context, chatID int64, args map[string]any) (string, error) {
	city, _ := args["city"].(string)
	if city == "" {
		city = t.storedCity(ctx, chatID)
	}
	if city == "" {
		return "No city given and none saved in the profile; ask the user for their city.", nil
	}

	location, err := t.geocode(ctx, city)
	if err != nil {
		t.logger.Warn("weather_geocoding_failed", zap.String("city", city), zap.Error(err))
		return weatherUnavailable, nil
	}
	if location == nil {
		return fmt.Sprintf("City %q was not found; ask the user to spell it in English.", city), nil
	}

	conditions, err := t.forecast(ctx, location.Latitude, location.Longitude)
	if err != nil {
		t.logger.Warn("weather_forecast_failed", zap.String("city", city), zap.Error(err))
		return weatherUnavailable, nil
	}

	return fmt.Sprintf("Weather in %s: %s, temp %.1fC, feels like %.1fC, wind %.1f km/h",
		location.Name, describeWeatherCode(conditions.WeatherCode),
		conditions.Temperature, conditions.ApparentTemperature, conditions.WindSpeed), nil
}

func (t *WeatherTool) storedCity(ctx context.Context, chatID int64) string {
	profile, err := t.profiles.Get(ctx, chatID)
	if err != nil {
		return ""
	}
	return profile.City()
}

type geoLocation struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (t *WeatherTool) geocode(ctx context.Context, city string) (*geoLocation, error) {
	params := url.Values{}
	params.Set("name", city)
	params.Set("count", "1")
	params.Set("language", "en")
	params.Set("format", "json")

	var payload struct {
		Results []geoLocation `json:"results"`
	}
	if err := t.getJSON(ctx, t.geocodingBaseURL+"/search?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	if len(payload.Results) == 0 {
		return nil, nil
	}
	return &payload.Results[0], nil
}

type currentConditions struct {
	Temperature         float64 `json:"temperature_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed           float64 `json:"wind_speed_10m"`
}

func (t *WeatherTool) forecast(ctx context.Context, lat, lon float64) (*currentConditions, error) {
	params := url.Values{}
	params.Set("latitude", fmt.Sprintf("%f", lat))
	params.Set("longitude", fmt.Sprintf("%f", lon))
	params.Set("current", "temperature_2m,apparent_temperature,weather_code,wind_speed_10m")

	var payload struct {
		Current currentConditions `json:"current"`
	}
	if err := t.getJSON(ctx, t.forecastBaseURL+"/forecast?"+params.Encode(), &payload); err != nil {
		return nil, err
	}
	return &payload.Current, nil
}

func (t *WeatherTool) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// describeWeatherCode maps WMO weather codes to a short description.
func describeWeatherCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code >= 85 && code <= 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	default:
		return "cloudy"
	}
}
