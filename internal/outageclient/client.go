// Package outageclient reads outage records from a remote PowerMonitor-compatible API
package outageclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jat99/PowerMonitor/internal/config"
	"github.com/jat99/PowerMonitor/internal/outage"
	"github.com/jat99/PowerMonitor/internal/utils"
	"go.uber.org/zap"
)

// legacyLayout is the timestamp form written by older servers, read in the client's location
const legacyLayout = "2006-01-02 15:04:05"

// maxResponseBytes bounds the response body read from the source
const maxResponseBytes = 8 << 20

const outageListSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "start_time", "status", "voltage_before"],
    "properties": {
      "id": {"type": ["string", "integer"]},
      "start_time": {"type": "string", "minLength": 1},
      "end_time": {"type": ["string", "null"]},
      "status": {"enum": ["Active", "Resolved"]},
      "voltage_before": {"type": "number"},
      "voltage_after": {"type": ["number", "null"]},
      "cause": {"type": ["string", "null"]}
    }
  }
}`

// Client fetches outages over HTTP and implements outage.Source
type Client struct {
	httpClient *http.Client
	baseURL    string
	location   *time.Location
	schema     *utils.JSONSchemaValidator
	logger     *utils.Logger
}

// NewClient creates a client for cfg.BaseURL. Legacy timestamps are read in loc.
func NewClient(cfg *config.SourceConfig, loc *time.Location, logger *utils.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("outage source base_url is required")
	}
	if loc == nil {
		loc = time.Local
	}

	schema := utils.NewJSONSchemaValidator()
	if err := schema.LoadSchema("outages", outageListSchema); err != nil {
		return nil, err
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout(),
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		location: loc,
		schema:   schema,
		logger:   logger.Named("outage_client"),
	}, nil
}

// wireOutage is an outage as served by the source
type wireOutage struct {
	ID            json.RawMessage `json:"id"`
	StartTime     string          `json:"start_time"`
	EndTime       *string         `json:"end_time"`
	Status        string          `json:"status"`
	VoltageBefore float64         `json:"voltage_before"`
	VoltageAfter  *float64        `json:"voltage_after"`
	Cause         *string         `json:"cause"`
}

// Fetch performs GET {base}/outages with the query's date parameters
func (c *Client) Fetch(ctx context.Context, q outage.Query) ([]outage.Record, error) {
	url := c.baseURL + "/outages"
	if values := q.Values(); len(values) > 0 {
		url += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &outage.SourceError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("Fetching outages", zap.String("url", url), zap.String("query", q.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &outage.SourceError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &outage.SourceError{URL: url, Err: fmt.Errorf("failed to read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("Outage source returned an error",
			zap.String("url", url),
			zap.Int("status", resp.StatusCode))
		return nil, &outage.SourceError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
			URL:        url,
		}
	}

	return c.decode(body)
}

func (c *Client) decode(body []byte) ([]outage.Record, error) {
	if err := c.schema.ValidateBytes("outages", body); err != nil {
		return nil, fmt.Errorf("%w: %v", outage.ErrMalformedRecord, err)
	}

	var wire []wireOutage
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", outage.ErrMalformedRecord, err)
	}

	records := make([]outage.Record, 0, len(wire))
	for i, w := range wire {
		rec, err := c.toRecord(w)
		if err != nil {
			return nil, fmt.Errorf("outage at index %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (c *Client) toRecord(w wireOutage) (outage.Record, error) {
	status, err := outage.ParseStatus(w.Status)
	if err != nil {
		return outage.Record{}, err
	}

	start, err := c.parseTime(w.StartTime)
	if err != nil {
		return outage.Record{}, err
	}

	id, err := decodeID(w.ID)
	if err != nil {
		return outage.Record{}, err
	}

	rec := outage.Record{
		ID:            id,
		StartTime:     start,
		Status:        status,
		VoltageBefore: w.VoltageBefore,
		VoltageAfter:  w.VoltageAfter,
		Cause:         w.Cause,
	}
	if w.EndTime != nil && *w.EndTime != "" {
		end, err := c.parseTime(*w.EndTime)
		if err != nil {
			return outage.Record{}, err
		}
		rec.EndTime = &end
	}
	return rec, nil
}

// decodeID reads an id sent either as a JSON string or as a number
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: id %s", outage.ErrMalformedRecord, raw)
	}
	return n.String(), nil
}

// parseTime accepts RFC 3339 or the legacy "YYYY-MM-DD HH:MM:SS" form
func (c *Client) parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(legacyLayout, value, c.location)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: timestamp %q", outage.ErrMalformedRecord, value)
	}
	return t, nil
}
