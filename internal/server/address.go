package server

import (
	"fmt"
	"net"
	"strings"
)

// DefaultAddress keeps the API on loopback unless remote listeners are allowed.
const DefaultAddress = "127.0.0.1:8080"

// ValidateAddress rejects non-loopback listeners unless allowRemote is set.
func ValidateAddress(addr string, allowRemote bool) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		trimmed = DefaultAddress
	}

	host, _, err := net.SplitHostPort(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid server address %q: %w", trimmed, err)
	}

	if allowRemote || strings.EqualFold(host, "localhost") {
		return trimmed, nil
	}

	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return "", fmt.Errorf("server address %q is not loopback; set server.allow_remote to permit remote listeners", trimmed)
	}
	return trimmed, nil
}
