package feeds

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/geocoder89/chileapi/internal/upstream"
)

type fakeUpstream struct {
	calls map[string]int

	weatherFn       func(ctx context.Context) ([]upstream.WeatherReading, error)
	weatherByCodeFn func(ctx context.Context, code string) ([]upstream.WeatherReading, error)
	quakesFn        func(ctx context.Context) ([]upstream.Earthquake, error)
	holidaysFn      func(ctx context.Context, year int) ([]upstream.Holiday, error)
	indicatorsFn    func(ctx context.Context) (map[string]upstream.IndicatorValue, error)
	indicatorFn     func(ctx context.Context, typ string) (upstream.IndicatorValue, error)
	historyFn       func(ctx context.Context, typ string, year int) ([]upstream.IndicatorValue, error)
}

func (f *fakeUpstream) hit(name string) {
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeUpstream) Weather(ctx context.Context) ([]upstream.WeatherReading, error) {
	f.hit("weather")
	return f.weatherFn(ctx)
}

func (f *fakeUpstream) WeatherByCode(ctx context.Context, code string) ([]upstream.WeatherReading, error) {
	f.hit("weatherByCode")
	return f.weatherByCodeFn(ctx, code)
}

func (f *fakeUpstream) RecentEarthquakes(ctx context.Context) ([]upstream.Earthquake, error) {
	f.hit("earthquakes")
	return f.quakesFn(ctx)
}

func (f *fakeUpstream) Holidays(ctx context.Context, year int) ([]upstream.Holiday, error) {
	f.hit("holidays")
	return f.holidaysFn(ctx, year)
}

func (f *fakeUpstream) Indicators(ctx context.Context) (map[string]upstream.IndicatorValue, error) {
	f.hit("indicators")
	return f.indicatorsFn(ctx)
}

func (f *fakeUpstream) Indicator(ctx context.Context, typ string) (upstream.IndicatorValue, error) {
	f.hit("indicator")
	return f.indicatorFn(ctx, typ)
}

func (f *fakeUpstream) IndicatorHistory(ctx context.Context, typ string, year int) ([]upstream.IndicatorValue, error) {
	f.hit("history")
	return f.historyFn(ctx, typ, year)
}

var fixedNow = time.Date(2026, 9, 17, 15, 0, 0, 0, time.UTC)

func newTestService(up Upstream) (*Service, *cache.Memory) {
	store := cache.NewMemory()
	engine := cache.NewEngine(store,
		cache.WithClock(func() time.Time { return fixedNow }),
		cache.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	return NewService(engine, up,
		WithClock(func() time.Time { return fixedNow }),
		WithLocation(time.UTC),
	), store
}

func TestAllWeather_AnnotatesRegionAndCaches(t *testing.T) {
	up := &fakeUpstream{
		weatherFn: func(context.Context) ([]upstream.WeatherReading, error) {
			return []upstream.WeatherReading{
				{Code: "SCQN", City: "Santiago Centro", Temperature: upstream.M(25)},
				{Code: "XXXX", City: "Nowhere"},
			}, nil
		},
	}
	svc, store := newTestService(up)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		got, err := svc.AllWeather(ctx)
		if err != nil {
			t.Fatalf("all weather: %v", err)
		}
		if got[0].Region != "Metropolitana" {
			t.Fatalf("region: %q", got[0].Region)
		}
		if got[1].Region != "Chile" {
			t.Fatalf("unknown station region: %q", got[1].Region)
		}
	}

	if up.calls["weather"] != 1 {
		t.Fatalf("upstream calls: %d", up.calls["weather"])
	}

	e, err := store.GetCacheEntry(ctx, "weather:all")
	if err != nil {
		t.Fatalf("entry: %v", err)
	}
	if e.DataType != DataTypeWeather || !e.ExpiresAt.Equal(fixedNow.Add(TTLWeather)) {
		t.Fatalf("entry: %+v", e)
	}
}

func TestWeatherByCode(t *testing.T) {
	up := &fakeUpstream{
		weatherByCodeFn: func(_ context.Context, code string) ([]upstream.WeatherReading, error) {
			switch code {
			case "SCEL":
				return []upstream.WeatherReading{{Code: "SCEL", Temperature: upstream.M(19)}}, nil
			case "SCVM":
				return nil, &upstream.UpstreamError{StatusCode: http.StatusNotFound, Message: "not found"}
			case "SCTE":
				return nil, &upstream.TimeoutError{After: time.Second}
			}
			return nil, nil
		},
		weatherFn: func(context.Context) ([]upstream.WeatherReading, error) {
			return []upstream.WeatherReading{{Code: "SCVM", City: "Viña del Mar"}}, nil
		},
	}
	svc, store := newTestService(up)
	ctx := context.Background()

	got, err := svc.WeatherByCode(ctx, "scel")
	if err != nil {
		t.Fatalf("scel: %v", err)
	}
	if got[0].Region != "Metropolitana" {
		t.Fatalf("region: %+v", got)
	}
	if _, err := store.GetCacheEntry(ctx, "weather:SCEL"); err != nil {
		t.Fatalf("expected upper-case key: %v", err)
	}

	got, err = svc.WeatherByCode(ctx, "SCVM")
	if err != nil || len(got) != 1 || got[0].City != "Viña del Mar" {
		t.Fatalf("fallback: %+v, %v", got, err)
	}

	if _, err := svc.WeatherByCode(ctx, "SCAR"); !errors.Is(err, ErrStationNotFound) {
		t.Fatalf("expected ErrStationNotFound, got %v", err)
	}
	if _, err := store.GetCacheEntry(ctx, "weather:SCAR"); !errors.Is(err, cache.ErrEntryNotFound) {
		t.Fatalf("not-found must not be cached")
	}

	var te *upstream.TimeoutError
	if _, err := svc.WeatherByCode(ctx, "SCTE"); !errors.As(err, &te) {
		t.Fatalf("expected TimeoutError, got %v", err)
	}

	for _, bad := range []string{"", "SCE", "SCELX", "SC-L"} {
		if _, err := svc.WeatherByCode(ctx, bad); !errors.Is(err, ErrInvalidStation) {
			t.Fatalf("%q: expected ErrInvalidStation, got %v", bad, err)
		}
	}
}

func TestWeatherStations_DedupesAndSorts(t *testing.T) {
	up := &fakeUpstream{
		weatherFn: func(context.Context) ([]upstream.WeatherReading, error) {
			return []upstream.WeatherReading{
				{Code: "SCQN", City: "Santiago Centro"},
				{Code: "scel"},
				{Code: "SCQN", City: "dup"},
			}, nil
		},
	}
	svc, _ := newTestService(up)

	got, err := svc.WeatherStations(context.Background())
	if err != nil {
		t.Fatalf("stations: %v", err)
	}
	if len(got) != 2 || got[0].Code != "SCEL" || got[1].Code != "SCQN" {
		t.Fatalf("got %+v", got)
	}
	if got[0].City != "Santiago (Aeropuerto)" || got[1].City != "Santiago Centro" {
		t.Fatalf("cities: %+v", got)
	}
}

func holidays2026(context.Context, int) ([]upstream.Holiday, error) {
	return []upstream.Holiday{
		{Date: "2026-12-25", Title: "Navidad", Inalienable: true},
		{Date: "2026-01-01", Title: "Año Nuevo", Inalienable: true},
		{Date: "2026-09-18", Title: "Independencia Nacional", Inalienable: true},
		{Date: "2026-09-19", Title: "Día de las Glorias del Ejército", Inalienable: true},
		{Date: "2026-10-12", Title: "Encuentro de Dos Mundos"},
		{Date: "2026-10-31", Title: "Día de las Iglesias Evangélicas"},
		{Date: "2026-11-01", Title: "Día de Todos los Santos"},
		{Date: "2026-12-08", Title: "Inmaculada Concepción"},
	}, nil
}

func TestHolidays_DerivedQueriesShareOneFetch(t *testing.T) {
	up := &fakeUpstream{holidaysFn: holidays2026}
	svc, _ := newTestService(up)
	ctx := context.Background()

	upcoming, err := svc.UpcomingHolidays(ctx, 0)
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if len(upcoming) != DefaultUpcoming || upcoming[0].Date != "2026-09-18" || upcoming[4].Date != "2026-11-01" {
		t.Fatalf("upcoming: %+v", upcoming)
	}

	check, err := svc.IsHoliday(ctx, time.Date(2026, 9, 18, 0, 0, 0, 0, time.UTC))
	if err != nil || !check.IsHoliday || check.Holiday.Title != "Independencia Nacional" {
		t.Fatalf("is holiday: %+v, %v", check, err)
	}

	today, err := svc.Today(ctx)
	if err != nil || today.IsHoliday || today.Date != "2026-09-17" {
		t.Fatalf("today: %+v, %v", today, err)
	}

	all, err := svc.CurrentYearHolidays(ctx)
	if err != nil || all[0].Date != "2026-01-01" {
		t.Fatalf("sorted: %+v, %v", all, err)
	}

	if up.calls["holidays"] != 1 {
		t.Fatalf("holidays fetched %d times", up.calls["holidays"])
	}
}

func TestHolidays_FetchErrorPassesThrough(t *testing.T) {
	cause := &upstream.UpstreamError{StatusCode: 500, Message: "boom"}
	up := &fakeUpstream{holidaysFn: func(context.Context, int) ([]upstream.Holiday, error) { return nil, cause }}
	svc, store := newTestService(up)

	_, err := svc.Holidays(context.Background(), 2030)
	if !errors.Is(err, cause) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failure must not be cached")
	}
}

func TestIndicators(t *testing.T) {
	up := &fakeUpstream{
		indicatorsFn: func(context.Context) (map[string]upstream.IndicatorValue, error) {
			return map[string]upstream.IndicatorValue{"dolar": {Date: "2026-09-17", Value: upstream.M(930.1)}}, nil
		},
		indicatorFn: func(_ context.Context, typ string) (upstream.IndicatorValue, error) {
			return upstream.IndicatorValue{Date: "2026-09-17", Value: upstream.M(39000)}, nil
		},
		historyFn: func(_ context.Context, typ string, year int) ([]upstream.IndicatorValue, error) {
			return []upstream.IndicatorValue{{Date: "2024-01-01", Value: upstream.M(64666)}}, nil
		},
	}
	svc, store := newTestService(up)
	ctx := context.Background()

	all, err := svc.Indicators(ctx)
	if err != nil || all["dolar"].Value != upstream.M(930.1) {
		t.Fatalf("all: %+v, %v", all, err)
	}

	uf, err := svc.Indicator(ctx, "UF")
	if err != nil || uf.Value != upstream.M(39000) {
		t.Fatalf("uf: %+v, %v", uf, err)
	}
	if _, err := store.GetCacheEntry(ctx, "indicators:uf"); err != nil {
		t.Fatalf("key: %v", err)
	}

	hist, err := svc.IndicatorHistory(ctx, "utm", 2024)
	if err != nil || len(hist) != 1 {
		t.Fatalf("history: %+v, %v", hist, err)
	}
	if _, err := store.GetCacheEntry(ctx, "indicators:utm:2024"); err != nil {
		t.Fatalf("history key: %v", err)
	}

	if _, err := svc.Indicator(ctx, "bitcoin"); !errors.Is(err, ErrInvalidType) {
		t.Fatalf("expected ErrInvalidType, got %v", err)
	}
	if up.calls["indicator"] != 1 {
		t.Fatalf("invalid type must not reach upstream")
	}
}
