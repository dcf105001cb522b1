package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type WeatherReading struct {
	Code        string  `json:"code"`
	City        string  `json:"city"`
	Temperature Measure `json:"temperature"`
	Humidity    Measure `json:"humidity"`
	Condition   string  `json:"condition"`
	Region      string  `json:"region,omitempty"`
}

type Earthquake struct {
	Date      string  `json:"date"`
	Hour      string  `json:"hour,omitempty"`
	Place     string  `json:"place"`
	Magnitude Measure `json:"magnitude"`
	Depth     Measure `json:"depth"`
	Latitude  Measure `json:"latitude"`
	Longitude Measure `json:"longitude"`
	Info      string  `json:"info,omitempty"`
}

type Holiday struct {
	Date        string `json:"date"`
	Title       string `json:"title"`
	Type        string `json:"type,omitempty"`
	Inalienable bool   `json:"inalienable"`
	Extra       string `json:"extra,omitempty"`
}

type IndicatorValue struct {
	Date  string  `json:"date"`
	Value Measure `json:"value"`
}

const dateLayout = "2006-01-02"

func (c *Client) Weather(ctx context.Context) ([]WeatherReading, error) {
	var out []WeatherReading
	if err := c.GetJSON(ctx, "/weather.json", &out); err != nil {
		return nil, err
	}
	for i := range out {
		if err := out[i].validate("weather"); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// WeatherByCode returns the readings for one station. The upstream answers
// with either a single object or a list.
func (c *Client) WeatherByCode(ctx context.Context, code string) ([]WeatherReading, error) {
	resource := "weather/" + code

	var raw json.RawMessage
	if err := c.GetJSON(ctx, "/weather/"+code+".json", &raw); err != nil {
		return nil, err
	}

	out, err := oneOrMany[WeatherReading](raw)
	if err != nil {
		return nil, schemaErr(resource, "decode data: %v", err)
	}
	for i := range out {
		if out[i].Code == "" {
			out[i].Code = code
		}
		if err := out[i].validate(resource); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *Client) RecentEarthquakes(ctx context.Context) ([]Earthquake, error) {
	var out []Earthquake
	if err := c.GetJSON(ctx, "/earthquakes/recent.json", &out); err != nil {
		return nil, err
	}
	for i, q := range out {
		if strings.TrimSpace(q.Place) == "" {
			return nil, schemaErr("earthquakes", "item %d: missing place", i)
		}
		if !q.Magnitude.Valid {
			return nil, schemaErr("earthquakes", "item %d: missing magnitude", i)
		}
	}
	return out, nil
}

func (c *Client) Holidays(ctx context.Context, year int) ([]Holiday, error) {
	resource := fmt.Sprintf("holidays/%d", year)

	var out []Holiday
	if err := c.GetJSON(ctx, fmt.Sprintf("/holidays/%d.json", year), &out); err != nil {
		return nil, err
	}
	for i, h := range out {
		if _, err := time.Parse(dateLayout, h.Date); err != nil {
			return nil, schemaErr(resource, "item %d: bad date %q", i, h.Date)
		}
		if strings.TrimSpace(h.Title) == "" {
			return nil, schemaErr(resource, "item %d: missing title", i)
		}
	}
	return out, nil
}

// Indicators returns the latest value for each indicator type the upstream
// publishes, keyed by type.
func (c *Client) Indicators(ctx context.Context) (map[string]IndicatorValue, error) {
	out := map[string]IndicatorValue{}
	if err := c.GetJSON(ctx, "/economy/indicators.json", &out); err != nil {
		return nil, err
	}
	for k, v := range out {
		if !v.Value.Valid {
			return nil, schemaErr("indicators", "%s: missing value", k)
		}
	}
	return out, nil
}

func (c *Client) Indicator(ctx context.Context, typ string) (IndicatorValue, error) {
	resource := "indicators/" + typ

	var out IndicatorValue
	if err := c.GetJSON(ctx, "/economy/indicator/"+typ+".json", &out); err != nil {
		return IndicatorValue{}, err
	}
	if !out.Value.Valid {
		return IndicatorValue{}, schemaErr(resource, "missing value")
	}
	return out, nil
}

// IndicatorHistory returns the values published for typ during year. The
// upstream wraps the list as {"values": [...]} or sends it bare.
func (c *Client) IndicatorHistory(ctx context.Context, typ string, year int) ([]IndicatorValue, error) {
	resource := fmt.Sprintf("indicators/%s/%d", typ, year)

	var raw json.RawMessage
	if err := c.GetJSON(ctx, fmt.Sprintf("/economy/indicator/%s/%d.json", typ, year), &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Values []IndicatorValue `json:"values"`
	}
	var out []IndicatorValue
	switch firstByte(raw) {
	case '{':
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, schemaErr(resource, "decode data: %v", err)
		}
		out = wrapped.Values
	case '[':
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, schemaErr(resource, "decode data: %v", err)
		}
	default:
		return nil, schemaErr(resource, "expected list or object")
	}

	for i, v := range out {
		if !v.Value.Valid {
			return nil, schemaErr(resource, "item %d: missing value", i)
		}
	}
	if out == nil {
		out = []IndicatorValue{}
	}
	return out, nil
}

func (w WeatherReading) validate(resource string) error {
	if strings.TrimSpace(w.Code) == "" {
		return schemaErr(resource, "reading without station code")
	}
	return nil
}

func oneOrMany[T any](raw json.RawMessage) ([]T, error) {
	switch firstByte(raw) {
	case '[':
		var out []T
		err := json.Unmarshal(raw, &out)
		return out, err
	case '{':
		var one T
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, err
		}
		return []T{one}, nil
	default:
		return nil, fmt.Errorf("expected object or list")
	}
}

func firstByte(raw json.RawMessage) byte {
	for _, b := range raw {
		switch b {
		case ' ', '\t', '\n', '\r':
			continue
		}
		return b
	}
	return 0
}
