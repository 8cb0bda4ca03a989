package registry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidURI is returned when a stream URI has no scheme or host.
var ErrInvalidURI = errors.New("invalid stream uri")

var defaultPorts = map[string]string{
	"http":  "80",
	"https": "443",
}

// NormalizeURI validates the scheme and authority of raw and removes a
// redundant default port. Path, query and fragment bytes are never
// interpreted. Bracketed IPv6 hosts are returned verbatim. The reported flag
// is true for IPv6 hosts.
func NormalizeURI(raw string) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	head, rest, ok := splitAuthority(raw)
	if !ok {
		return "", false, fmt.Errorf("%w: %q lacks scheme or host", ErrInvalidURI, raw)
	}
	u, err := url.Parse(head)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrInvalidURI, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", false, fmt.Errorf("%w: %q lacks scheme or host", ErrInvalidURI, raw)
	}
	if isBracketed(u.Host) {
		return raw, true, nil
	}
	port := u.Port()
	if port == "" || defaultPorts[strings.ToLower(u.Scheme)] != port {
		return raw, false, nil
	}
	return strings.TrimSuffix(head, ":"+port) + rest, false, nil
}

// IsIPv6 reports whether uri addresses a bracketed IPv6 host. Unparseable
// input is treated as IPv4.
func IsIPv6(uri string) bool {
	head, _, ok := splitAuthority(strings.TrimSpace(uri))
	if !ok {
		return false
	}
	u, err := url.Parse(head)
	if err != nil {
		return false
	}
	return isBracketed(u.Host)
}

// splitAuthority cuts raw after "scheme://authority".
func splitAuthority(raw string) (head, rest string, ok bool) {
	sep := strings.Index(raw, "://")
	if sep <= 0 {
		return "", "", false
	}
	start := sep + len("://")
	end := len(raw)
	if i := strings.IndexAny(raw[start:], "/?#"); i >= 0 {
		end = start + i
	}
	return raw[:end], raw[end:], true
}

func isBracketed(host string) bool {
	return strings.HasPrefix(host, "[")
}
