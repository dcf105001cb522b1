package feeds

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/geocoder89/chileapi/internal/cache"
	"github.com/geocoder89/chileapi/internal/domain/indicator"
	"github.com/geocoder89/chileapi/internal/domain/station"
	"github.com/geocoder89/chileapi/internal/upstream"
)

const (
	TTLWeather         = 5 * time.Minute
	TTLWeatherStations = 30 * time.Minute
	TTLEarthquakes     = 2 * time.Minute
	TTLHolidays        = 24 * time.Hour
	TTLIndicators      = time.Hour

	DataTypeWeather     = "weather"
	DataTypeEarthquakes = "earthquakes"
	DataTypeHolidays    = "holidays"
	DataTypeIndicators  = "indicators"

	DefaultUpcoming = 5

	dateLayout = "2006-01-02"
)

var (
	ErrStationNotFound = errors.New("station not found")
	ErrInvalidStation  = errors.New("invalid station code")
	ErrInvalidType     = errors.New("invalid indicator type")
)

// Upstream is the subset of *upstream.Client used here.
type Upstream interface {
	Weather(ctx context.Context) ([]upstream.WeatherReading, error)
	WeatherByCode(ctx context.Context, code string) ([]upstream.WeatherReading, error)
	RecentEarthquakes(ctx context.Context) ([]upstream.Earthquake, error)
	Holidays(ctx context.Context, year int) ([]upstream.Holiday, error)
	Indicators(ctx context.Context) (map[string]upstream.IndicatorValue, error)
	Indicator(ctx context.Context, typ string) (upstream.IndicatorValue, error)
	IndicatorHistory(ctx context.Context, typ string, year int) ([]upstream.IndicatorValue, error)
}

type Service struct {
	engine *cache.Engine
	client Upstream
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(engine *cache.Engine, client Upstream, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		client: client,
		now:    time.Now,
		loc:    santiago(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type StationInfo struct {
	Code   string `json:"code"`
	City   string `json:"city"`
	Region string `json:"region"`
}

type HolidayCheck struct {
	Date      string            `json:"date"`
	IsHoliday bool              `json:"isHoliday"`
	Holiday   *upstream.Holiday `json:"holiday,omitempty"`
}

func (s *Service) AllWeather(ctx context.Context) ([]upstream.WeatherReading, error) {
	req := cache.Request{Key: "weather:all", DataType: DataTypeWeather, TTL: TTLWeather}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) ([]upstream.WeatherReading, error) {
		readings, err := s.client.Weather(ctx)
		if err != nil {
			return nil, err
		}
		return annotate(readings), nil
	})
}

// WeatherByCode returns the readings for one station. When the per-station
// endpoint has nothing, the full listing is searched before giving up.
func (s *Service) WeatherByCode(ctx context.Context, code string) ([]upstream.WeatherReading, error) {
	if !station.IsValidCode(code) {
		return nil, ErrInvalidStation
	}
	code = station.Normalize(code)
	req := cache.Request{Key: "weather:" + code, DataType: DataTypeWeather, TTL: TTLWeather}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) ([]upstream.WeatherReading, error) {
		readings, err := s.client.WeatherByCode(ctx, code)
		if err != nil && !isNotFound(err) {
			return nil, err
		}
		if len(readings) > 0 {
			return annotate(readings), nil
		}

		all, err := s.AllWeather(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range all {
			if r.Code == code {
				return []upstream.WeatherReading{r}, nil
			}
		}
		return nil, ErrStationNotFound
	})
}

// WeatherStations lists the stations currently reporting, with regions
// from the local catalogue.
func (s *Service) WeatherStations(ctx context.Context) ([]StationInfo, error) {
	req := cache.Request{Key: "weather:stations", DataType: DataTypeWeather, TTL: TTLWeatherStations}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) ([]StationInfo, error) {
		readings, err := s.client.Weather(ctx)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool, len(readings))
		out := make([]StationInfo, 0, len(readings))
		for _, r := range readings {
			code := station.Normalize(r.Code)
			if seen[code] {
				continue
			}
			seen[code] = true

			city := r.City
			if st, ok := station.Lookup(code); ok && city == "" {
				city = st.City
			}
			out = append(out, StationInfo{Code: code, City: city, Region: station.RegionFor(code)})
		}

		sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
		return out, nil
	})
}

// Stations is the static catalogue; it never calls upstream.
func (s *Service) Stations() []station.Station {
	return station.All()
}

func (s *Service) RecentEarthquakes(ctx context.Context) ([]upstream.Earthquake, error) {
	req := cache.Request{Key: "earthquakes:recent", DataType: DataTypeEarthquakes, TTL: TTLEarthquakes}

	return cache.Get(ctx, s.engine, req, s.client.RecentEarthquakes)
}

func (s *Service) Holidays(ctx context.Context, year int) ([]upstream.Holiday, error) {
	req := cache.Request{Key: "holidays:" + strconv.Itoa(year), DataType: DataTypeHolidays, TTL: TTLHolidays}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) ([]upstream.Holiday, error) {
		hs, err := s.client.Holidays(ctx, year)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(hs, func(i, j int) bool { return hs[i].Date < hs[j].Date })
		return hs, nil
	})
}

func (s *Service) CurrentYearHolidays(ctx context.Context) ([]upstream.Holiday, error) {
	return s.Holidays(ctx, s.today().Year())
}

// IsHoliday answers from the cached holiday list of the date's year.
func (s *Service) IsHoliday(ctx context.Context, date time.Time) (HolidayCheck, error) {
	day := date.Format(dateLayout)

	hs, err := s.Holidays(ctx, date.Year())
	if err != nil {
		return HolidayCheck{}, err
	}

	check := HolidayCheck{Date: day}
	for i := range hs {
		if hs[i].Date == day {
			h := hs[i]
			check.IsHoliday = true
			check.Holiday = &h
			break
		}
	}
	return check, nil
}

func (s *Service) Today(ctx context.Context) (HolidayCheck, error) {
	return s.IsHoliday(ctx, s.today())
}

// UpcomingHolidays returns up to n holidays of the current year falling on
// or after today.
func (s *Service) UpcomingHolidays(ctx context.Context, n int) ([]upstream.Holiday, error) {
	if n <= 0 {
		n = DefaultUpcoming
	}

	hs, err := s.CurrentYearHolidays(ctx)
	if err != nil {
		return nil, err
	}

	today := s.today().Format(dateLayout)
	out := make([]upstream.Holiday, 0, n)
	for _, h := range hs {
		if h.Date >= today {
			out = append(out, h)
			if len(out) == n {
				break
			}
		}
	}
	return out, nil
}

func (s *Service) Indicators(ctx context.Context) (map[string]upstream.IndicatorValue, error) {
	req := cache.Request{Key: "indicators:all", DataType: DataTypeIndicators, TTL: TTLIndicators}

	return cache.Get(ctx, s.engine, req, s.client.Indicators)
}

func (s *Service) Indicator(ctx context.Context, typ string) (upstream.IndicatorValue, error) {
	typ = indicator.Normalize(typ)
	if !indicator.IsValid(typ) {
		return upstream.IndicatorValue{}, ErrInvalidType
	}
	req := cache.Request{Key: "indicators:" + typ, DataType: DataTypeIndicators, TTL: TTLIndicators}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) (upstream.IndicatorValue, error) {
		return s.client.Indicator(ctx, typ)
	})
}

func (s *Service) IndicatorHistory(ctx context.Context, typ string, year int) ([]upstream.IndicatorValue, error) {
	typ = indicator.Normalize(typ)
	if !indicator.IsValid(typ) {
		return nil, ErrInvalidType
	}
	req := cache.Request{
		Key:      fmt.Sprintf("indicators:%s:%d", typ, year),
		DataType: DataTypeIndicators,
		TTL:      TTLIndicators,
	}

	return cache.Get(ctx, s.engine, req, func(ctx context.Context) ([]upstream.IndicatorValue, error) {
		return s.client.IndicatorHistory(ctx, typ, year)
	})
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

func annotate(readings []upstream.WeatherReading) []upstream.WeatherReading {
	out := make([]upstream.WeatherReading, len(readings))
	for i, r := range readings {
		r.Code = station.Normalize(r.Code)
		r.Region = station.RegionFor(r.Code)
		out[i] = r
	}
	return out
}

func isNotFound(err error) bool {
	var ue *upstream.UpstreamError
	return errors.As(err, &ue) && ue.NotFound()
}

func santiago() *time.Location {
	loc, err := time.LoadLocation("America/Santiago")
	if err != nil {
		return time.UTC
	}
	return loc
}
