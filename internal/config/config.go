// ABOUTME: Runtime configuration loaded from environment variables
// ABOUTME: Command-line flags in cmd/audition override these defaults
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration
type Config struct {
	// Server
	Port int
	Name string
	MDNS bool

	// Playback
	TickInterval time.Duration

	// Export
	ExportDir string

	// Speech generation
	SynthURL   string
	SynthModel string
	Voice      string
	APIKey     string
}

// Load reads configuration from environment variables with sane defaults
func Load() Config {
	return Config{
		Port: envInt("AUDITION_PORT", 8930),
		Name: envStr("AUDITION_NAME", defaultName()),
		MDNS: envBool("AUDITION_MDNS", true),

		TickInterval: time.Duration(envInt("AUDITION_TICK_MS", 16)) * time.Millisecond,

		ExportDir: envStr("AUDITION_EXPORT_DIR", "exports"),

		SynthURL:   envStr("AUDITION_SYNTH_URL", "https://generativelanguage.googleapis.com/v1beta"),
		SynthModel: envStr("AUDITION_SYNTH_MODEL", "gemini-2.5-flash-preview-tts"),
		Voice:      envStr("AUDITION_VOICE", "Kore"),
		APIKey:     envStr("GEMINI_API_KEY", ""),
	}
}

func defaultName() string {
	hostname, err := os.Hostname()
	if err != nil {
		return "Audition Studio"
	}
	return hostname + "-audition"
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
