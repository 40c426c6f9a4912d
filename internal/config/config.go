// Package config содержит логику чтения конфигурации сервиса доступа к столовой.
package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/mmeshcher/messhall-system/internal/model"
	"github.com/mmeshcher/messhall-system/internal/schedule"
)

// Config содержит параметры конфигурации сервиса доступа к столовой.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	QRSecret    string `env:"QR_SECRET"`
	AdminToken  string `env:"ADMIN_TOKEN"`
	Timezone    string `env:"TIMEZONE"`
	CutoffTime  string `env:"CUTOFF_TIME"`

	BreakfastWindow string `env:"BREAKFAST_WINDOW"`
	LunchWindow     string `env:"LUNCH_WINDOW"`
	DinnerWindow    string `env:"DINNER_WINDOW"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envQRSecret := cfg.QRSecret
	envAdminToken := cfg.AdminToken

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.QRSecret, "s", "", "secret key for QR credential signing")
	flag.StringVar(&cfg.AdminToken, "t", "", "static admin API token")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envQRSecret != "" {
		cfg.QRSecret = envQRSecret
	}
	if envAdminToken != "" {
		cfg.AdminToken = envAdminToken
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Asia/Kolkata"
	}
	if cfg.CutoffTime == "" {
		cfg.CutoffTime = "23:00"
	}
	if cfg.BreakfastWindow == "" {
		cfg.BreakfastWindow = "07:30-09:30"
	}
	if cfg.LunchWindow == "" {
		cfg.LunchWindow = "12:00-14:30"
	}
	if cfg.DinnerWindow == "" {
		cfg.DinnerWindow = "19:00-21:30"
	}

	return cfg, nil
}

// Location возвращает часовой пояс столовой.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Cutoff возвращает время дедлайна подачи отказов от питания.
func (c *Config) Cutoff() (schedule.TimeOfDay, error) {
	return schedule.ParseTimeOfDay(c.CutoffTime)
}

// MealWindows возвращает интервалы приёмов пищи.
func (c *Config) MealWindows() (map[model.Meal]schedule.Window, error) {
	windows := make(map[model.Meal]schedule.Window, 3)

	for meal, raw := range map[model.Meal]string{
		model.MealBreakfast: c.BreakfastWindow,
		model.MealLunch:     c.LunchWindow,
		model.MealDinner:    c.DinnerWindow,
	} {
		w, err := parseWindow(raw)
		if err != nil {
			return nil, fmt.Errorf("parse %s window: %w", meal, err)
		}
		windows[meal] = w
	}

	return windows, nil
}

func parseWindow(raw string) (schedule.Window, error) {
	parts := strings.Split(raw, "-")
	if len(parts) != 2 {
		return schedule.Window{}, fmt.Errorf("window %q must be in HH:MM-HH:MM format", raw)
	}

	start, err := schedule.ParseTimeOfDay(parts[0])
	if err != nil {
		return schedule.Window{}, err
	}
	end, err := schedule.ParseTimeOfDay(parts[1])
	if err != nil {
		return schedule.Window{}, err
	}

	if end.Minutes() <= start.Minutes() {
		return schedule.Window{}, fmt.Errorf("window %q must end after it starts", raw)
	}

	return schedule.Window{Start: start, End: end}, nil
}
