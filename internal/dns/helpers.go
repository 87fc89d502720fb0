package dns

import (
	"strings"
)

// RelativeName converts an absolute owner name into a name relative to zone.
// The zone suffix matches case-insensitively; the remainder keeps its case.
// e.g. ("app.example.com.", "example.com.") → ("app", true)
// e.g. ("Www.EXAMPLE.com.", "example.com.") → ("Www", true)
// e.g. ("example.com.", "example.com.") → ("", true)
// Names outside the zone return false.
func RelativeName(fqdn, zone string) (string, bool) {
	name := strings.TrimSuffix(fqdn, ".")
	zone = strings.TrimSuffix(zone, ".")
	if strings.EqualFold(name, zone) {
		return "", true
	}
	if zone == "" {
		return name, true
	}
	suffix := "." + zone
	if len(name) <= len(suffix) || !strings.EqualFold(name[len(name)-len(suffix):], suffix) {
		return "", false
	}
	return name[:len(name)-len(suffix)], true
}

// AbsoluteName joins a relative record name with its zone.
// e.g. ("app", "example.com.") → "app.example.com."
func AbsoluteName(name, zone string) string {
	if !strings.HasSuffix(zone, ".") {
		zone += "."
	}
	if name == "" {
		return zone
	}
	return name + "." + zone
}
