// Package netutil holds small address helpers shared by the resolver and
// the session-table scan.
package netutil

import (
	"fmt"
	"net"
	"strings"
)

// ExpandIPv6 canonicalizes an IPv6 address into its fully expanded textual
// form: eight zero-padded 4-hex-digit groups, colon separated. This is the
// form kernel tables print, so it is safe for exact-match lookups.
// Returns "" for anything that is not a plain IPv6 address; a lookup keyed
// on "" simply never matches.
func ExpandIPv6(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.To4() != nil {
		return ""
	}
	b := ip.To16()
	groups := make([]string, 8)
	for i := 0; i < 8; i++ {
		groups[i] = fmt.Sprintf("%02x%02x", b[2*i], b[2*i+1])
	}
	return strings.Join(groups, ":")
}
