package walletkit

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"moff.io/walletkit/pkg/errors"
)

var ErrInvalidURI = errors.New("invalid pairing uri")

// URI is a parsed pairing invitation:
//
//	wc:<topic>@<version>?relay-protocol=irn&symKey=<hex>[&expiryTimestamp=<unix>]
type URI struct {
	Topic         string
	Version       int
	RelayProtocol string
	SymKey        string
	Expiry        time.Time
}

func ParseURI(raw string) (*URI, error) {
	if !strings.HasPrefix(raw, "wc:") {
		return nil, errors.Wrapf(ErrInvalidURI, "missing wc: scheme in %q", raw)
	}
	rest := strings.TrimPrefix(raw, "wc:")
	path, rawQuery := rest, ""
	if i := strings.IndexByte(rest, '?'); i >= 0 {
		path, rawQuery = rest[:i], rest[i+1:]
	}
	at := strings.LastIndexByte(path, '@')
	if at <= 0 {
		return nil, errors.Wrapf(ErrInvalidURI, "missing topic or version in %q", raw)
	}
	version, err := strconv.Atoi(path[at+1:])
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "bad version in %q", raw)
	}
	q, err := url.ParseQuery(rawQuery)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidURI, "bad query in %q", raw)
	}
	u := &URI{
		Topic:         path[:at],
		Version:       version,
		RelayProtocol: q.Get("relay-protocol"),
		SymKey:        q.Get("symKey"),
	}
	if u.RelayProtocol == "" {
		u.RelayProtocol = "irn"
	}
	if exp := q.Get("expiryTimestamp"); exp != "" {
		sec, err := strconv.ParseInt(exp, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidURI, "bad expiry in %q", raw)
		}
		u.Expiry = time.Unix(sec, 0)
	}
	return u, nil
}

// Expired reports whether the invitation expired before now. URIs without an
// expiry never expire.
func (u *URI) Expired(now time.Time) bool {
	return !u.Expiry.IsZero() && now.After(u.Expiry)
}
