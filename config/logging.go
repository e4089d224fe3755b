package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	ErrUnknownLevel  = errors.New("unknown log level")
	ErrUnknownFormat = errors.New("unknown log format")
)

type LoggingConfig struct {
	// Level is one of debug, info, warn or error
	Level  string `json:"level"`
	Format string `json:"format"`
}

func NewDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "info", Format: FormatText}
}

func (c LoggingConfig) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("%q, %w", c.Format, ErrUnknownFormat)
	}
}

func (c LoggingConfig) level() (slog.Level, error) {
	var lvl slog.Level
	if c.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Level)); err != nil {
		return lvl, fmt.Errorf("%q, %w", c.Level, ErrUnknownLevel)
	}
	return lvl, nil
}

// Logger builds the logger writing to w in the configured format
func (c LoggingConfig) Logger(w io.Writer) (*slog.Logger, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	lvl, _ := c.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.ToLower(c.Format) == FormatJSON {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
