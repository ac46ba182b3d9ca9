package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/speedwagon-io/wastemon/internal/lib/logger/sl"
	"github.com/speedwagon-io/wastemon/internal/model"
)

const maxBodySize = 1 << 20

type ThingSpeakClient struct {
	log       *slog.Logger
	baseURL   string
	channelID string
	apiKey    string
	client    *http.Client
}

func NewThingSpeakClient(log *slog.Logger, baseURL, channelID, apiKey string, timeout time.Duration) *ThingSpeakClient {
	return &ThingSpeakClient{
		log:       log,
		baseURL:   strings.TrimRight(baseURL, "/"),
		channelID: channelID,
		apiKey:    apiKey,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *ThingSpeakClient) Name() string {
	return "thingspeak"
}

func (c *ThingSpeakClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *ThingSpeakClient) lastURL() string {
	u := fmt.Sprintf("%s/channels/%s/feeds/last.json", c.baseURL, url.PathEscape(c.channelID))
	if c.apiKey != "" {
		u += "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	}
	return u
}

func (c *ThingSpeakClient) FetchLast(ctx context.Context) (*Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.lastURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return c.decodeFeed(body)
}

// decodeFeed accepts only a JSON object: ThingSpeak answers a bare -1 for
// unknown or private channels. Numbers stay json.Number so one field that
// does not fit a float64 only invalidates its own slot.
func (c *ThingSpeakClient) decodeFeed(body []byte) (*Feed, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to unmarshal response: empty feed")
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal response: trailing data after feed")
	}

	feed := &Feed{Fields: raw}

	if v, ok := raw["entry_id"].(json.Number); ok {
		if id, err := v.Int64(); err == nil {
			feed.EntryID = id
		}
	}

	if v, ok := raw["created_at"].(string); ok && v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.log.Debug("failed to parse created_at", slog.String("value", v), sl.Err(err))
		} else {
			feed.CreatedAt = t.UTC()
		}
	}

	return feed, nil
}

// ParseValue accepts JSON numbers and numeric strings.
func ParseValue(v any) model.Reading {
	switch val := v.(type) {
	case float64:
		return model.NewReading(val)
	case float32:
		return model.NewReading(float64(val))
	case int:
		return model.NewReading(float64(val))
	case int64:
		return model.NewReading(float64(val))
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return model.NoData()
		}
		return model.NewReading(f)
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return model.NoData()
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return model.NoData()
		}
		return model.NewReading(f)
	default:
		return model.NoData()
	}
}
