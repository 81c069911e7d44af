package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/activebuddy/activebuddy/internal/models"
)

func newWeatherFixture(t *testing.T, geocodeBody, forecastBody string, geocodeStatus, forecastStatus int) (*WeatherTool, *fakeProfileStore) {
	t.Helper()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(geocodeStatus)
		fmt.Fprint(w, geocodeBody)
	}))
	t.Cleanup(geo.Close)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(forecastStatus)
		fmt.Fprint(w, forecastBody)
	}))
	t.Cleanup(forecast.Close)

	store := newFakeProfileStore()
	tool := NewWeatherTool(store, zap.NewNop())
	tool.SetBaseURLs(geo.URL, forecast.URL, nil)
	return tool, store
}

const kyivGeocodeBody = `{"results":[{"name":"Kyiv","latitude":50.45,"longitude":30.52}]}`
const mildForecastBody = `{"current":{"temperature_2m":18.4,"apparent_temperature":17.1,"weather_code":61,"wind_speed_10m":12.5}}`

func TestWeatherTool_Execute(t *testing.T) {
	t.Parallel()

	tool, _ := newWeatherFixture(t, kyivGeocodeBody, mildForecastBody, http.StatusOK, http.StatusOK)

	result, err := tool.Execute(context.Background(), 1, map[string]any{"city": "Kyiv"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	for _, want := range []string{"Weather in Kyiv", "rain", "18.4C", "17.1C", "12.5 km/h"} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected result to contain %q, got: %s", want, result)
		}
	}
}

func TestWeatherTool_FallsBackToStoredCity(t *testing.T) {
	t.Parallel()

	tool, store := newWeatherFixture(t, kyivGeocodeBody, mildForecastBody, http.StatusOK, http.StatusOK)
	store.put(&models.Profile{ChatID: 7, Memory: models.Memory{"city": "Kyiv"}})

	result, err := tool.Execute(context.Background(), 7, map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "Weather in Kyiv") {
		t.Errorf("Expected stored-city lookup, got: %s", result)
	}
}

func TestWeatherTool_NoCityAnywhere(t *testing.T) {
	t.Parallel()

	tool, _ := newWeatherFixture(t, kyivGeocodeBody, mildForecastBody, http.StatusOK, http.StatusOK)

	result, err := tool.Execute(context.Background(), 404, map[string]any{})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "ask the user for their city") {
		t.Errorf("Expected ask-for-city guidance, got: %s", result)
	}
}

func TestWeatherTool_CityNotFound(t *testing.T) {
	t.Parallel()

	tool, _ := newWeatherFixture(t, `{"results":[]}`, mildForecastBody, http.StatusOK, http.StatusOK)

	result, err := tool.Execute(context.Background(), 1, map[string]any{"city": "Atlantis"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "was not found") {
		t.Errorf("Expected not-found result, got: %s", result)
	}
}

func TestWeatherTool_UpstreamFailureIsReportedNotRaised(t *testing.T) {
	t.Parallel()

	tool, _ := newWeatherFixture(t, kyivGeocodeBody, "", http.StatusOK, http.StatusBadGateway)

	result, err := tool.Execute(context.Background(), 1, map[string]any{"city": "Kyiv"})
	if err != nil {
		t.Fatalf("Expected failure to be encoded as result, got error: %v", err)
	}
	if !strings.Contains(result, "unavailable") {
		t.Errorf("Expected unavailable result, got: %s", result)
	}
}

func TestDescribeWeatherCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code int
		want string
	}{
		{0, "clear"},
		{2, "partly cloudy"},
		{45, "fog"},
		{63, "rain"},
		{73, "snow"},
		{81, "rain showers"},
		{95, "thunderstorm"},
		{40, "cloudy"},
	}

	for _, tt := range tests {
		if got := describeWeatherCode(tt.code); got != tt.want {
			t.Errorf("code %d: expected %s, got %s", tt.code, tt.want, got)
		}
	}
}
