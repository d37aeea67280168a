package util

import (
	"crypto/subtle"
	"encoding/base64"
	"net"
	"net/http"
	"strings"
)

const APIKeyHeader = "X-API-Key"

// VerifyAPIKey reports whether the request carries apiKey. An empty apiKey
// never matches.
func VerifyAPIKey(r *http.Request, apiKey string) bool {
	if apiKey == "" {
		return false
	}

	secret, ok := requestSecret(r)
	if !ok {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(secret), []byte(apiKey)) == 1
}

// requestSecret reads the key from X-API-Key, a Bearer token, or the password
// of Basic auth (any username), in that order.
func requestSecret(r *http.Request) (string, bool) {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key, true
	}

	scheme, value, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found {
		return "", false
	}

	switch scheme {
	case "Bearer":
		return value, value != ""
	case "Basic":
		decoded, err := base64.StdEncoding.DecodeString(value)
		if err != nil {
			return "", false
		}
		_, password, ok := strings.Cut(string(decoded), ":")
		return password, ok
	default:
		return "", false
	}
}

func GetClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		return r.RemoteAddr
	}
	return host
}

// GetLANIP returns the first IPv4 address of an interface that is up and not
// loopback, or "" when there is none.
func GetLANIP() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipNet, ok := addr.(*net.IPNet); ok {
				if ip := ipNet.IP.To4(); ip != nil {
					return ip.String()
				}
			}
		}
	}

	return ""
}
