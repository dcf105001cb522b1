package warmer

import (
	"context"
	"sync/atomic"

	"github.com/geocoder89/chileapi/internal/upstream"
)

type countingFeeds struct {
	calls atomic.Int64
}

func (f *countingFeeds) AllWeather(context.Context) ([]upstream.WeatherReading, error) {
	f.calls.Add(1)
	return nil, nil
}

func (f *countingFeeds) RecentEarthquakes(context.Context) ([]upstream.Earthquake, error) {
	f.calls.Add(1)
	return nil, nil
}

func (f *countingFeeds) Indicators(context.Context) (map[string]upstream.IndicatorValue, error) {
	f.calls.Add(1)
	return nil, nil
}

func (f *countingFeeds) CurrentYearHolidays(context.Context) ([]upstream.Holiday, error) {
	f.calls.Add(1)
	return nil, nil
}
