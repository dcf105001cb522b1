package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/geocoder89/chileapi/internal/domain/station"
	"github.com/geocoder89/chileapi/internal/feeds"
	"github.com/geocoder89/chileapi/internal/upstream"
	"github.com/gin-gonic/gin"
)

// Feeds is satisfied by *feeds.Service.
type Feeds interface {
	Stations() []station.Station
	AllWeather(ctx context.Context) ([]upstream.WeatherReading, error)
	WeatherByCode(ctx context.Context, code string) ([]upstream.WeatherReading, error)
	WeatherStations(ctx context.Context) ([]feeds.StationInfo, error)
	RecentEarthquakes(ctx context.Context) ([]upstream.Earthquake, error)
	Holidays(ctx context.Context, year int) ([]upstream.Holiday, error)
	CurrentYearHolidays(ctx context.Context) ([]upstream.Holiday, error)
	IsHoliday(ctx context.Context, date time.Time) (feeds.HolidayCheck, error)
	Today(ctx context.Context) (feeds.HolidayCheck, error)
	UpcomingHolidays(ctx context.Context, n int) ([]upstream.Holiday, error)
	Indicators(ctx context.Context) (map[string]upstream.IndicatorValue, error)
	Indicator(ctx context.Context, typ string) (upstream.IndicatorValue, error)
	IndicatorHistory(ctx context.Context, typ string, year int) ([]upstream.IndicatorValue, error)
}

type FeedsHandler struct {
	feeds Feeds
	log   *slog.Logger
}

func NewFeedsHandler(f Feeds, log *slog.Logger) *FeedsHandler {
	return &FeedsHandler{feeds: f, log: log}
}

type stationURI struct {
	Code string `uri:"code" binding:"required,len=4,alphanum"`
}

type yearURI struct {
	Year int `uri:"year" binding:"required,gte=2000,lte=2100"`
}

type dateURI struct {
	Date string `uri:"date" binding:"required,datetime=2006-01-02"`
}

type indicatorURI struct {
	Type string `uri:"type" binding:"required,max=16"`
}

type indicatorYearURI struct {
	Type string `uri:"type" binding:"required,max=16"`
	Year int    `uri:"year" binding:"required,gte=2000,lte=2100"`
}

func (h *FeedsHandler) Stations(ctx *gin.Context) {
	RespondCached(ctx, h.feeds.Stations(), 24*time.Hour)
}

func (h *FeedsHandler) AllWeather(ctx *gin.Context) {
	data, err := h.feeds.AllWeather(ctx.Request.Context())
	h.reply(ctx, data, feeds.TTLWeather, err)
}

func (h *FeedsHandler) WeatherStations(ctx *gin.Context) {
	data, err := h.feeds.WeatherStations(ctx.Request.Context())
	h.reply(ctx, data, feeds.TTLWeatherStations, err)
}

func (h *FeedsHandler) WeatherByCode(ctx *gin.Context) {
	var uri stationURI
	if !BindURI(ctx, &uri) {
		return
	}

	data, err := h.feeds.WeatherByCode(ctx.Request.Context(), uri.Code)
	h.reply(ctx, data, feeds.TTLWeather, err)
}

func (h *FeedsHandler) RecentEarthquakes(ctx *gin.Context) {
	data, err := h.feeds.RecentEarthquakes(ctx.Request.Context())
	h.reply(ctx, data, feeds.TTLEarthquakes, err)
}

func (h *FeedsHandler) Holidays(ctx *gin.Context) {
	data, err := h.feeds.CurrentYearHolidays(ctx.Request.Context())
	h.reply(ctx, data, feeds.TTLHolidays, err)
}

func (h *FeedsHandler) HolidaysByYear(ctx *gin.Context) {
	var uri yearURI
	if !BindURI(ctx, &uri) {
		return
	}

	data, err := h.feeds.Holidays(ctx.Request.Context(), uri.Year)
	h.reply(ctx, data, feeds.TTLHolidays, err)
}

func (h *FeedsHandler) HolidayToday(ctx *gin.Context) {
	data, err := h.feeds.Today(ctx.Request.Context())
	h.reply(ctx, data, time.Hour, err)
}

func (h *FeedsHandler) UpcomingHolidays(ctx *gin.Context) {
	data, err := h.feeds.UpcomingHolidays(ctx.Request.Context(), feeds.DefaultUpcoming)
	h.reply(ctx, data, time.Hour, err)
}

func (h *FeedsHandler) IsHoliday(ctx *gin.Context) {
	var uri dateURI
	if !BindURI(ctx, &uri) {
		return
	}

	date, err := time.Parse("2006-01-02", uri.Date)
	if err != nil || date.Year() < 2000 || date.Year() > 2100 {
		RespondBadRequest(ctx, "Invalid path parameter", gin.H{"fields": []FieldError{{
			Field: "date", Rule: "range", Message: "must be a date between 2000 and 2100",
		}}})
		return
	}

	data, err := h.feeds.IsHoliday(ctx.Request.Context(), date)
	h.reply(ctx, data, feeds.TTLHolidays, err)
}

func (h *FeedsHandler) Indicators(ctx *gin.Context) {
	data, err := h.feeds.Indicators(ctx.Request.Context())
	h.reply(ctx, data, feeds.TTLIndicators, err)
}

func (h *FeedsHandler) Indicator(ctx *gin.Context) {
	var uri indicatorURI
	if !BindURI(ctx, &uri) {
		return
	}

	data, err := h.feeds.Indicator(ctx.Request.Context(), uri.Type)
	h.reply(ctx, data, feeds.TTLIndicators, err)
}

func (h *FeedsHandler) IndicatorHistory(ctx *gin.Context) {
	var uri indicatorYearURI
	if !BindURI(ctx, &uri) {
		return
	}

	data, err := h.feeds.IndicatorHistory(ctx.Request.Context(), uri.Type, uri.Year)
	h.reply(ctx, data, feeds.TTLIndicators, err)
}

func (h *FeedsHandler) reply(ctx *gin.Context, data any, maxAge time.Duration, err error) {
	if err != nil {
		RespondServiceError(ctx, h.log, err)
		return
	}
	RespondCached(ctx, data, maxAge)
}
