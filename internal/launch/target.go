package launch

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/dshills/tasklaunch/internal/config"
)

// Target is a validated launch URL.
type Target struct {
	// URL is the URL as configured.
	URL string
	// Host is the host name or address, without brackets.
	Host string
	// Port is the explicit port, or 80 for http and 443 for https.
	Port int
}

// ParseTarget validates raw as a non-empty absolute http or https URL.
// Errors are *ConfigurationError.
func ParseTarget(raw string) (Target, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Target{}, &ConfigurationError{Key: config.KeyURL, Reason: "no URL configured"}
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, &ConfigurationError{Key: config.KeyURL, Value: raw, Reason: "not a valid URL"}
	}
	if !u.IsAbs() {
		return Target{}, &ConfigurationError{Key: config.KeyURL, Value: raw, Reason: "URL must be absolute"}
	}

	var defaultPort int
	switch strings.ToLower(u.Scheme) {
	case "http":
		defaultPort = 80
	case "https":
		defaultPort = 443
	default:
		return Target{}, &ConfigurationError{Key: config.KeyURL, Value: raw, Reason: "scheme must be http or https"}
	}

	host := u.Hostname()
	if host == "" {
		return Target{}, &ConfigurationError{Key: config.KeyURL, Value: raw, Reason: "URL has no host"}
	}

	port := defaultPort
	if p := u.Port(); p != "" {
		n, err := strconv.Atoi(p)
		if err != nil || n < 1 || n > 65535 {
			return Target{}, &ConfigurationError{Key: config.KeyURL, Value: raw, Reason: "invalid port"}
		}
		port = n
	}

	return Target{URL: raw, Host: host, Port: port}, nil
}

// ShouldLaunch applies the launch behavior to a scope's occurrence count.
// OneTime launches only for the first start in a scope, including a scope
// seeded from an already-running task.
func ShouldLaunch(b config.Behavior, occurrences int) bool {
	switch b {
	case config.BehaviorEverytime:
		return true
	case config.BehaviorOneTime:
		return occurrences < 2
	default:
		return false
	}
}
