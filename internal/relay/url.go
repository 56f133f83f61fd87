package relay

import (
	"net/url"
	"strings"

	"moff.io/walletkit/pkg/errors"
)

// GetWebSocketUrl turns a relay address into the websocket URL carrying the
// project id. http(s) schemes are mapped to ws(s).
func GetWebSocketUrl(relayURL, projectID, userAgent string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", errors.Wrap(err, "parse relay url")
	}
	switch strings.ToLower(u.Scheme) {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", errors.Errorf("unsupported relay url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", errors.Errorf("relay url %q has no host", relayURL)
	}
	q := u.Query()
	q.Set("projectId", projectID)
	if userAgent != "" {
		q.Set("ua", userAgent)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
