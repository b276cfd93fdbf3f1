package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultGeoEndpoint = "http://ip-api.com/json/"

	LocationLocal   = "Local"
	LocationUnknown = "Unknown"
)

// Locator turns client IP addresses into a "City, Country" label for
// device-session listings.
type Locator struct {
	endpoint string
	client   *http.Client
}

func NewLocator(endpoint string, client *http.Client) *Locator {
	if endpoint == "" {
		endpoint = DefaultGeoEndpoint
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &Locator{endpoint: endpoint, client: client}
}

func (l *Locator) GetIPLocation(ctx context.Context, ipAddress string) string {
	ip := net.ParseIP(strings.TrimSpace(ipAddress))
	if ip == nil {
		return LocationUnknown
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast() {
		return LocationLocal
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.endpoint+ip.String(), nil)
	if err != nil {
		return LocationUnknown
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return LocationUnknown
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return LocationUnknown
	}

	var result struct {
		Country string `json:"country"`
		City    string `json:"city"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return LocationUnknown
	}

	if result.City != "" && result.Country != "" {
		return fmt.Sprintf("%s, %s", result.City, result.Country)
	}

	return LocationUnknown
}
