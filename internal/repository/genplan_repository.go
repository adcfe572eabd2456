package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/genplan/genplan-web/internal/models"
	appErrors "github.com/genplan/genplan-web/pkg/errors"
	"github.com/genplan/genplan-web/pkg/timetable"
)

const (
	pathTimetableView    = "/algorithm/timetable-view/"
	pathGenerateHybrid   = "/hybrid-router/generate-schedule-hybrid"
	pathCheckConflicts   = "/algorithm/check-conflicts"
	pathResolveConflicts = "/timetable/resolve-conflicts"

	maxUpstreamBody = 32 << 20
)

// UpstreamObserver records upstream call latency.
type UpstreamObserver interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
}

// GenPlanRepository talks to the GenPlan REST API, which owns every record the
// front-end displays.
type GenPlanRepository struct {
	baseURL    string
	httpClient *http.Client
	metrics    UpstreamObserver
	logger     *zap.Logger
}

// NewGenPlanRepository constructs the upstream client.
func NewGenPlanRepository(baseURL string, httpClient *http.Client, metrics UpstreamObserver, logger *zap.Logger) *GenPlanRepository {
	if httpClient == nil {
		httpClient = DefaultUpstreamHTTPClient(15 * time.Second)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenPlanRepository{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metrics,
		logger:     logger,
	}
}

// DefaultUpstreamHTTPClient returns an HTTP client with the given timeout.
func DefaultUpstreamHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// TimetableView fetches schedules, rooms and timeslots for the view. The
// snapshot fingerprint is derived from the raw response body.
func (r *GenPlanRepository) TimetableView(ctx context.Context, token string, query models.TimetableViewQuery) (*timetable.Snapshot, []string, error) {
	params := url.Values{}
	if query.Day != "" {
		params.Set("day", query.Day)
	}
	if query.Building != "" && !strings.EqualFold(query.Building, timetable.AllBuildings) {
		params.Set("building", query.Building)
	}
	if query.Search != "" {
		params.Set("search", query.Search)
	}

	body, err := r.do(ctx, http.MethodGet, pathTimetableView, token, params, nil)
	if err != nil {
		return nil, nil, err
	}

	var view models.TimetableView
	if err := json.Unmarshal(body, &view); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrBadGateway.Code, appErrors.ErrBadGateway.Status, "invalid timetable view payload")
	}
	snapshot := view.Snapshot(timetable.Fingerprint(body))
	return &snapshot, view.Filters.Buildings, nil
}

// GenerateSchedule triggers the hybrid generator. The call blocks until the
// upstream finishes, which can take minutes.
func (r *GenPlanRepository) GenerateSchedule(ctx context.Context, token string, payload interface{}) (json.RawMessage, error) {
	return r.post(ctx, pathGenerateHybrid, token, payload)
}

// CheckConflicts asks upstream to re-run conflict detection.
func (r *GenPlanRepository) CheckConflicts(ctx context.Context, token string, payload interface{}) (json.RawMessage, error) {
	return r.post(ctx, pathCheckConflicts, token, payload)
}

// ResolveConflicts asks upstream to resolve the given conflicts.
func (r *GenPlanRepository) ResolveConflicts(ctx context.Context, token string, payload interface{}) (json.RawMessage, error) {
	return r.post(ctx, pathResolveConflicts, token, payload)
}

// Ping reports whether the upstream answers HTTP at all. Auth failures still
// count as reachable.
func (r *GenPlanRepository) Ping(ctx context.Context) error {
	if r.baseURL == "" {
		return appErrors.Clone(appErrors.ErrUnavailable, "upstream base URL not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build upstream ping: %w", err)
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genplan api unreachable: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("genplan api responded with status %d", resp.StatusCode)
	}
	return nil
}

func (r *GenPlanRepository) post(ctx context.Context, path, token string, payload interface{}) (json.RawMessage, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", path, err)
	}
	body, err := r.do(ctx, http.MethodPost, path, token, nil, encoded)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(body) {
		return nil, appErrors.Clone(appErrors.ErrBadGateway, "upstream returned invalid JSON")
	}
	return json.RawMessage(body), nil
}

func (r *GenPlanRepository) do(ctx context.Context, method, path, token string, params url.Values, payload []byte) ([]byte, error) {
	if r.baseURL == "" {
		return nil, appErrors.Clone(appErrors.ErrUnavailable, "upstream base URL not configured")
	}
	endpoint := r.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.observe(path, 0, time.Since(start))
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		r.logger.Warn("upstream request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrBadGateway.Code, appErrors.ErrBadGateway.Status, "genplan api unreachable")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBody))
	r.observe(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadGateway.Code, appErrors.ErrBadGateway.Status, "failed to read upstream response")
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}
	return nil, mapUpstreamStatus(resp.StatusCode, body)
}

func (r *GenPlanRepository) observe(path string, status int, duration time.Duration) {
	if r.metrics != nil {
		r.metrics.ObserveUpstream(path, status, duration)
	}
}

type upstreamError struct {
	Detail  interface{} `json:"detail"`
	Message string      `json:"message"`
	Error   string      `json:"error"`
}

func mapUpstreamStatus(status int, body []byte) error {
	message := upstreamMessage(body)
	var base *appErrors.Error
	switch {
	case status == http.StatusUnauthorized:
		base = appErrors.ErrUnauthorized
	case status == http.StatusForbidden:
		base = appErrors.ErrForbidden
	case status == http.StatusNotFound:
		base = appErrors.ErrNotFound
	case status == http.StatusConflict:
		base = appErrors.ErrConflict
	case status >= 400 && status < 500:
		base = appErrors.ErrValidation
	default:
		base = appErrors.ErrBadGateway
		if message == "" {
			message = fmt.Sprintf("genplan api responded with status %d", status)
		}
	}
	return appErrors.Clone(base, message)
}

func upstreamMessage(body []byte) string {
	var payload upstreamError
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	switch detail := payload.Detail.(type) {
	case string:
		return detail
	case nil:
	default:
		if encoded, err := json.Marshal(detail); err == nil {
			return string(encoded)
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
