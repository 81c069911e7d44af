package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultAPIBaseURL is the Strava v3 API base URL.
const DefaultAPIBaseURL = "https://www.strava.com/api/v3"

const (
	activityWindow   = 7 * 24 * time.Hour
	activityPageSize = 40
	summaryLimit     = 10
)

// Activity is the slice of the Strava activity payload the coach needs.
type Activity struct {
	Type             string  `json:"type"`
	StartDate        string  `json:"start_date"`
	StartDateLocal   string  `json:"start_date_local"`
	Distance         float64 `json:"distance"`    // meters
	MovingTime       int     `json:"moving_time"` // seconds
	AverageHeartrate float64 `json:"average_heartrate"`
}

// Client fetches recent activities from the Strava API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Strava API client. baseURL "" means the real API.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// RecentActivities fetches activities from the last 7 days, newest
// first.
func (c *Client) RecentActivities(ctx context.Context, accessToken string) ([]Activity, error) {
	after := time.Now().Add(-activityWindow).Unix()

	params := url.Values{}
	params.Set("after", strconv.FormatInt(after, 10))
	params.Set("per_page", strconv.Itoa(activityPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/athlete/activities?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build activities request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch activities: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			_ = closeErr
		}
	}()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrUnauthorized
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("strava returned status %d", resp.StatusCode)
	}

	var activities []Activity
	if err := json.NewDecoder(resp.Body).Decode(&activities); err != nil {
		return nil, fmt.Errorf("failed to decode activities: %w", err)
	}

	sort.Slice(activities, func(i, j int) bool {
		return activities[i].StartDate > activities[j].StartDate
	})
	return activities, nil
}

// ErrUnauthorized indicates the access token was rejected.
var ErrUnauthorized = fmt.Errorf("strava unauthorized")

// Summarize formats activities for the model: one line per activity,
// newest first, capped at ten entries.
func Summarize(activities []Activity) string {
	if len(activities) == 0 {
		return "Strava: no activities found in the last 7 days."
	}
	if len(activities) > summaryLimit {
		activities = activities[:summaryLimit]
	}

	var b strings.Builder
	b.WriteString("Recent activities (newest first):\n")
	for _, act := range activities {
		b.WriteString(formatActivity(act))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatActivity(act Activity) string {
	date := act.StartDateLocal
	if len(date) >= 16 {
		date = strings.Replace(date[:16], "T", " ", 1)
	}

	activityType := act.Type
	if activityType == "" {
		activityType = "Activity"
	}

	duration := formatDuration(act.MovingTime)
	var stats string
	if act.Distance > 0 {
		km := act.Distance / 1000
		stats = fmt.Sprintf("%.2fkm in %s", km, duration)
	} else {
		stats = "duration: " + duration
	}

	hr := "N/A"
	if act.AverageHeartrate > 0 {
		hr = fmt.Sprintf("%.0f", act.AverageHeartrate)
	}

	return fmt.Sprintf("Date: %s, Type: %s, %s, HR: %s", date, activityType, stats, hr)
}

func formatDuration(seconds int) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm", m)
}
