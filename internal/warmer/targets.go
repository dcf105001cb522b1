package warmer

import (
	"context"

	"github.com/geocoder89/chileapi/internal/upstream"
)

// Feeds is the subset of *feeds.Service the warmer keeps hot.
type Feeds interface {
	AllWeather(ctx context.Context) ([]upstream.WeatherReading, error)
	RecentEarthquakes(ctx context.Context) ([]upstream.Earthquake, error)
	Indicators(ctx context.Context) (map[string]upstream.IndicatorValue, error)
	CurrentYearHolidays(ctx context.Context) ([]upstream.Holiday, error)
}

// FeedTargets warms the keys behind the busiest routes. Each call goes
// through the cache engine, so a fresh entry costs one store read.
func FeedTargets(f Feeds) []Target {
	return []Target{
		{Name: "weather", Warm: discard(f.AllWeather)},
		{Name: "earthquakes", Warm: discard(f.RecentEarthquakes)},
		{Name: "indicators", Warm: discard(f.Indicators)},
		{Name: "holidays", Warm: discard(f.CurrentYearHolidays)},
	}
}

func discard[T any](fn func(ctx context.Context) (T, error)) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := fn(ctx)
		return err
	}
}
