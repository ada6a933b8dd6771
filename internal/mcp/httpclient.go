package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
)

// errNotFound marks a 404 from the REST API; callers translate it into the
// storage sentinel of the resource they asked for.
var errNotFound = errors.New("not found")

// HTTPClient implements DataSource by calling the Liftlog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL. apiKey
// may be empty when the server sits behind Tailscale identity.
func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values, v any) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("httpclient: create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("httpclient: read body: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return fmt.Errorf("httpclient: %s: %w", path, errNotFound)
	default:
		return fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("httpclient: decode %s: %w", path, err)
	}
	return nil
}

func (c *HTTPClient) GetRoutine(ctx context.Context, _ int, routineID int64) (*models.Routine, error) {
	var r models.Routine
	err := c.get(ctx, "/api/v1/routines/"+strconv.FormatInt(routineID, 10), nil, &r)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("routine %d: %w", routineID, storage.ErrRoutineNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *HTTPClient) ListRoutines(ctx context.Context, _ int) ([]models.Routine, error) {
	var routines []models.Routine
	if err := c.get(ctx, "/api/v1/routines", nil, &routines); err != nil {
		return nil, err
	}
	return routines, nil
}

func (c *HTTPClient) LastPerformance(ctx context.Context, q models.HistoryQuery) (models.PerformanceHistory, error) {
	params := url.Values{}
	params.Set("scope", string(q.Scope))
	if q.Scope == models.ScopeRoutine {
		params.Set("routine_id", strconv.FormatInt(q.RoutineID, 10))
	}
	for _, id := range q.ExerciseIDs {
		params.Add("exercise_id", id)
	}

	var history models.PerformanceHistory
	if err := c.get(ctx, "/api/v1/history", params, &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (c *HTTPClient) QueryWorkoutLogs(ctx context.Context, start, end time.Time, _ int) ([]models.WorkoutLog, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	var logs []models.WorkoutLog
	if err := c.get(ctx, "/api/v1/logs", params, &logs); err != nil {
		return nil, err
	}
	return logs, nil
}

func (c *HTTPClient) GetWorkoutLog(ctx context.Context, logID int64, _ int) (*models.WorkoutLog, error) {
	var l models.WorkoutLog
	err := c.get(ctx, "/api/v1/logs/"+strconv.FormatInt(logID, 10), nil, &l)
	if errors.Is(err, errNotFound) {
		return nil, fmt.Errorf("log %d: %w", logID, storage.ErrWorkoutLogNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *HTTPClient) GetTrainingSummary(ctx context.Context, start, end time.Time, bucket string, _ int) ([]storage.TrainingSummaryPeriod, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if bucket != "" {
		params.Set("bucket", bucket)
	}

	var periods []storage.TrainingSummaryPeriod
	if err := c.get(ctx, "/api/v1/summary", params, &periods); err != nil {
		return nil, err
	}
	return periods, nil
}
