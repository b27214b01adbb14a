// Package env reads process settings from the environment, optionally
// seeded from a .env file.
package env

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnv loads .env (or the given files) without overriding variables that
// are already set.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		slog.Debug("no .env file found, using the process environment", "error", err)
	}
}

// String returns the value of key, or def when it is unset or blank.
func String(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

// Require returns the value of key or an error naming it.
func Require(key string) (string, error) {
	v := String(key, "")
	if v == "" {
		return "", fmt.Errorf("environment variable %s not set", key)
	}
	return v, nil
}

func Int(key string, def int) (int, error) {
	v := String(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, fmt.Errorf("environment variable %s: %q is not an integer", key, v)
	}
	return n, nil
}

func Float(key string) (float64, bool, error) {
	v := String(key, "")
	if v == "" {
		return 0, false, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, false, fmt.Errorf("environment variable %s: %q is not a number", key, v)
	}
	return f, true, nil
}

func Bool(key string, def bool) (bool, error) {
	v := String(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("environment variable %s: %q is not a boolean", key, v)
	}
	return b, nil
}

// Duration accepts Go durations ("8s") and bare integers as seconds.
func Duration(key string, def time.Duration) (time.Duration, error) {
	v := String(key, "")
	if v == "" {
		return def, nil
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, fmt.Errorf("environment variable %s: %q is not a duration", key, v)
	}
	return d, nil
}

// List splits a comma separated value, dropping empty elements.
func List(key string) []string {
	var out []string
	for _, part := range strings.Split(String(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
