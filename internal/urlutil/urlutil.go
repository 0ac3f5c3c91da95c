package urlutil

import (
	"errors"
	"net/url"
	"path"
	"sort"
	"strings"
)

// trackingParams are query keys that vary between two listings of the same
// posting and carry no identity.
var trackingParams = map[string]struct{}{
	"gclid":      {},
	"fbclid":     {},
	"ref":        {},
	"refid":      {},
	"source":     {},
	"trk":        {},
	"trkinfo":    {},
	"trackingid": {},
	"position":   {},
	"pagenum":    {},
	"lipi":       {},
}

// Normalize returns the identity form of a job URL: lowercase host, no
// fragment, cleaned path, tracking parameters removed and the rest sorted.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("empty url")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" {
		u.Scheme = "https"
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)
	u.Path = normalizePath(u.Path)
	u.RawPath = ""
	u.RawQuery = normalizeQuery(u.RawQuery)
	return u.String(), nil
}

// Resolve makes href absolute against base. Absolute hrefs come back as is.
func Resolve(base, href string) (string, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", err
	}
	if ref.IsAbs() {
		return ref.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

func Host(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

func normalizePath(p string) string {
	if p == "" {
		return "/"
	}
	clean := path.Clean(p)
	if clean == "." {
		return "/"
	}
	return clean
}

func normalizeQuery(raw string) string {
	if raw == "" {
		return ""
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	for key := range values {
		lk := strings.ToLower(key)
		if _, ok := trackingParams[lk]; ok || strings.HasPrefix(lk, "utm_") {
			delete(values, key)
		}
	}
	if len(values) == 0 {
		return ""
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	normalized := url.Values{}
	for _, k := range keys {
		normalized[k] = values[k]
	}
	return normalized.Encode()
}
