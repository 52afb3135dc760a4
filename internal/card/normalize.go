package card

import "strings"

// NormalizeEndpoint applies the only transform the registry performs on
// endpoint URLs: stripping a single trailing slash. It is not a full URL
// canonicalizer. A nil or empty input yields nil.
func NormalizeEndpoint(url *string) *string {
	if url == nil || *url == "" {
		return nil
	}
	v := *url
	if strings.HasSuffix(v, "/") {
		v = strings.TrimSuffix(v, "/")
	}
	if v == "" {
		return nil
	}
	return &v
}

// NormalizeEndpointString is the non-pointer convenience form used when
// the caller already knows the string is non-empty-or-absent is not a
// concern (e.g. comparing two endpoints that are both known present).
func NormalizeEndpointString(url string) string {
	if n := NormalizeEndpoint(&url); n != nil {
		return *n
	}
	return ""
}
