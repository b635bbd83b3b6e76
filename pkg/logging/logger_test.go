package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name     string
		level    LogLevel
		logAt    func(logger zerolog.Logger, msg string)
		testMsg  string
		expected bool
	}{
		{
			name:     "info logged at info level",
			level:    LevelInfo,
			logAt:    func(l zerolog.Logger, m string) { l.Info().Msg(m) },
			testMsg:  "test info message",
			expected: true,
		},
		{
			name:     "debug suppressed at info level",
			level:    LevelInfo,
			logAt:    func(l zerolog.Logger, m string) { l.Debug().Msg(m) },
			testMsg:  "hidden debug message",
			expected: false,
		},
		{
			name:     "debug logged at debug level",
			level:    LevelDebug,
			logAt:    func(l zerolog.Logger, m string) { l.Debug().Msg(m) },
			testMsg:  "test debug message",
			expected: true,
		},
		{
			name:     "warn logged at warn level",
			level:    LevelWarn,
			logAt:    func(l zerolog.Logger, m string) { l.Warn().Msg(m) },
			testMsg:  "test warn message",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := Setup(Config{Level: tt.level, Output: &buf})

			tt.logAt(logger, tt.testMsg)

			got := strings.Contains(buf.String(), tt.testMsg)
			if got != tt.expected {
				t.Errorf("message present = %v, want %v (output: %q)", got, tt.expected, buf.String())
			}
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   LogLevel
		want zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"bogus", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger_ComponentField(t *testing.T) {
	var buf bytes.Buffer
	Setup(Config{Level: LevelDebug, Output: &buf})

	logger := NewLogger("cache")
	logger.Info().Msg("component test")

	if !strings.Contains(buf.String(), `"component":"cache"`) {
		t.Errorf("component field missing from output: %q", buf.String())
	}
}
