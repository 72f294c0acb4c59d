package utils

import (
	"fmt"
	"net"
	"net/url"
	"time"
)

const authorizerDialTimeout = 1500 * time.Millisecond

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// PingService dials the host behind a service URL to verify reachability
func PingService(serviceURL string, timeout time.Duration) error {
	parsed, err := url.Parse(serviceURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	port := parsed.Port()
	if port == "" {
		if p, ok := defaultPorts[parsed.Scheme]; ok {
			port = p
		} else {
			port = "80"
		}
	}
	address := net.JoinHostPort(parsed.Hostname(), port)

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", address, err)
	}
	return conn.Close()
}

// PingAuthorizer checks if the Authorizer service is reachable
func PingAuthorizer(authzURL string) error {
	return PingService(authzURL, authorizerDialTimeout)
}
