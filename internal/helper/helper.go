package helper

import (
	"os"
	"strconv"
	"strings"
	"time"
)

func LookupEnvOrString(key string, defaultVal string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return defaultVal
}

func LookupEnvOrBool(key string, defaultVal bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		v, err := strconv.ParseBool(val)
		if err != nil {
			return defaultVal
		}
		return v
	}
	return defaultVal
}

func LookupEnvOrDuration(key string, defaultVal time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		v, err := time.ParseDuration(val)
		if err != nil {
			return defaultVal
		}
		return v
	}
	return defaultVal
}

// SanitizeString strips line breaks so user supplied values can not forge log lines
func SanitizeString(in string) string {
	escaped := strings.ReplaceAll(in, "\n", "")
	escaped = strings.ReplaceAll(escaped, "\r", "")
	return escaped
}

// SetIfNotEmpty stores value under key unless value is empty.
func SetIfNotEmpty(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}
