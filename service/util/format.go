package util

import (
	"fmt"
	"strings"
	"time"
)

// NormalizeURL adds http:// to addresses saved without a scheme, the way
// they are usually typed into the dashboard ("bookstack.example.com").
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}
	return "http://" + raw
}

// DisplayURL strips the scheme and a trailing slash for display.
func DisplayURL(raw string) string {
	s := strings.TrimSpace(raw)
	if i := strings.Index(s, "://"); i != -1 {
		s = s[i+3:]
	}
	return strings.TrimSuffix(s, "/")
}

func FormatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	parts := []string{}
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	if seconds > 0 || len(parts) == 0 {
		parts = append(parts, fmt.Sprintf("%ds", seconds))
	}

	return strings.Join(parts, " ")
}
