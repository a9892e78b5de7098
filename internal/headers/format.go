package headers

import (
	"net"
	"time"
)

// DateLayout is the IMF-fixdate form required for the Date header.
const DateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"

// isoLayout is the access log timestamp form.
const isoLayout = "2006-01-02T15:04:05Z"

// HTTPDate formats t for a Date header.
func HTTPDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// ISOTime formats t as a UTC ISO-8601 timestamp with second precision.
func ISOTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ClientAddr renders the host part of a remote address. Addresses that
// carry no port are returned as-is.
func ClientAddr(addr net.Addr) string {
	if addr == nil {
		return "-"
	}
	s := addr.String()
	host, _, err := net.SplitHostPort(s)
	if err != nil {
		return s
	}
	return host
}
