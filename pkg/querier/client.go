// Package querier pkg/querier/client.go queries the remote ping-result
// store for a unit's devices.
package querier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/carlmjohnson/requests"
	"github.com/google/go-querystring/query"
	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/oceanops/fleetwatch/pkg/config"
	"github.com/oceanops/fleetwatch/pkg/models"
)

const defaultRateLimit = 10 // queries per second when unconfigured

// HTTPClient issues InfluxQL-style range queries against the store's
// /query endpoint.
type HTTPClient struct {
	baseURL  string
	database string
	username string
	password string
	http     *http.Client
	limiter  *rate.Limiter
}

// queryParams carries the /query request parameters; credentials ride
// as u/p the way the 1.x store API expects.
type queryParams struct {
	Database string `url:"db"`
	Query    string `url:"q"`
	Epoch    string `url:"epoch"`
	Username string `url:"u,omitempty"`
	Password string `url:"p,omitempty"`
}

// NewHTTPClient builds a store client from the store configuration.
func NewHTTPClient(cfg *config.StoreConfig) *HTTPClient {
	limit := cfg.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = int(limit)
	}

	timeout := time.Duration(cfg.Timeout)
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &HTTPClient{
		baseURL:  cfg.BaseURL,
		database: cfg.Database,
		username: cfg.Username,
		password: cfg.Password,
		http:     &http.Client{Timeout: timeout},
		limiter:  rate.NewLimiter(rate.Limit(limit), burst),
	}
}

// Query fetches ping samples for every device of the unit over the
// trailing window. One store round-trip per component.
func (c *HTTPClient) Query(ctx context.Context, unit *models.Unit, window time.Duration) ([]models.ComponentSample, error) {
	var samples []models.ComponentSample

	queried := false

	for _, component := range models.Components() {
		addrs := unit.DeviceAddresses(component)
		if len(addrs) == 0 {
			continue
		}

		queried = true

		got, err := c.queryComponent(ctx, unit.ID, component, addrs, window)
		if err != nil {
			return nil, fmt.Errorf("unit %s component %s: %w", unit.ID, component, err)
		}

		samples = append(samples, got...)
	}

	if !queried {
		return nil, &QueryError{Err: fmt.Errorf("%w: %s", ErrNoDevices, unit.ID), Retryable: false}
	}

	return samples, nil
}

func (c *HTTPClient) queryComponent(
	ctx context.Context,
	unitID string,
	component models.Component,
	addrs []string,
	window time.Duration,
) ([]models.ComponentSample, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &QueryError{Err: fmt.Errorf("%w: %w", ErrRateLimit, err), Retryable: true}
	}

	params := queryParams{
		Database: c.database,
		Query:    buildPingQuery(addrs, window),
		Epoch:    "s",
		Username: c.username,
		Password: c.password,
	}

	vals, err := query.Values(params)
	if err != nil {
		return nil, &QueryError{Err: err, Retryable: false}
	}

	rb := requests.URL(c.baseURL).
		Path("/query").
		Client(c.http)

	for key, values := range vals {
		rb = rb.Param(key, values...)
	}

	var body string
	if err := rb.ToString(&body).Fetch(ctx); err != nil {
		return nil, classifyFetchError(err)
	}

	samples, err := parseSamples(body, unitID, component)
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"unit":      unitID,
		"component": component,
		"samples":   len(samples),
	}).Debug("Store query completed")

	return samples, nil
}

// buildPingQuery assembles the range query over the ping measurement
// for the given device addresses.
func buildPingQuery(addrs []string, window time.Duration) string {
	clauses := make([]string, 0, len(addrs))
	for _, addr := range addrs {
		clauses = append(clauses, fmt.Sprintf("url = '%s'", strings.ReplaceAll(addr, "'", "")))
	}

	return fmt.Sprintf(
		"SELECT time, url, result_code, percent_packet_loss FROM ping WHERE time > now() - %ds AND (%s)",
		int(window.Seconds()),
		strings.Join(clauses, " OR "),
	)
}

// parseSamples walks the store's JSON response. A ping counts as
// successful when the result code is zero and packet loss is below 100.
func parseSamples(body, unitID string, component models.Component) ([]models.ComponentSample, error) {
	result := gjson.Get(body, "results.0")
	if !result.Exists() {
		return nil, &QueryError{Err: ErrEmptyResponse, Retryable: true}
	}

	if errMsg := result.Get("error"); errMsg.Exists() {
		return nil, &QueryError{
			Err:       fmt.Errorf("store error: %s", errMsg.String()),
			Retryable: false,
		}
	}

	var samples []models.ComponentSample

	result.Get("series").ForEach(func(_, series gjson.Result) bool {
		cols := columnIndex(series.Get("columns"))

		series.Get("values").ForEach(func(_, row gjson.Result) bool {
			values := row.Array()
			if len(values) <= cols.packetLoss {
				return true
			}

			resultCode := values[cols.resultCode].Int()
			packetLoss := values[cols.packetLoss].Float()

			samples = append(samples, models.ComponentSample{
				UnitID:    unitID,
				Component: component,
				Address:   values[cols.url].String(),
				Timestamp: time.Unix(values[cols.time].Int(), 0).UTC(),
				Success:   resultCode == 0 && packetLoss < 100,
			})

			return true
		})

		return true
	})

	return samples, nil
}

type columns struct {
	time       int
	url        int
	resultCode int
	packetLoss int
}

func columnIndex(cols gjson.Result) columns {
	// Matches the SELECT order; fall back to positions if names differ.
	idx := columns{time: 0, url: 1, resultCode: 2, packetLoss: 3}

	cols.ForEach(func(i, col gjson.Result) bool {
		switch col.String() {
		case "time":
			idx.time = int(i.Int())
		case "url":
			idx.url = int(i.Int())
		case "result_code":
			idx.resultCode = int(i.Int())
		case "percent_packet_loss":
			idx.packetLoss = int(i.Int())
		}

		return true
	})

	return idx
}

// TestConnection probes the store's health endpoint.
func (c *HTTPClient) TestConnection(ctx context.Context) error {
	err := requests.URL(c.baseURL).
		Path("/ping").
		Client(c.http).
		CheckStatus(http.StatusNoContent, http.StatusOK).
		Fetch(ctx)
	if err != nil {
		return classifyFetchError(err)
	}

	return nil
}

func classifyFetchError(err error) error {
	// Auth and routing problems will not heal on retry.
	if requests.HasStatusErr(err, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound) {
		status := http.StatusUnauthorized

		switch {
		case requests.HasStatusErr(err, http.StatusForbidden):
			status = http.StatusForbidden
		case requests.HasStatusErr(err, http.StatusNotFound):
			status = http.StatusNotFound
		}

		return &QueryError{Err: err, Status: status, Retryable: false}
	}

	if errors.Is(err, requests.ErrTransport) {
		return &QueryError{Err: err, Retryable: true}
	}

	// Remaining validator failures are server-side (5xx, 429).
	return &QueryError{Err: err, Retryable: true}
}
