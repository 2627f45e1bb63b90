package domain

import "net/url"

var safeSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"blob":  true,
}

// IsSafeURL reports whether raw is an absolute URL with an http, https or
// blob scheme. Relative references and unparseable strings are rejected.
func IsSafeURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	if !safeSchemes[u.Scheme] {
		return false
	}
	// http(s) needs a host; blob URLs carry an opaque part.
	if u.Scheme == "blob" {
		return u.Opaque != "" || u.Host != "" || u.Path != ""
	}
	return u.Host != ""
}

// ResolveURL resolves raw against base (backend links such as
// /knowledge/file/{id} are relative) and returns it only if the result
// is safe.
func ResolveURL(base, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	if !ref.IsAbs() && base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		ref = b.ResolveReference(ref)
	}
	resolved := ref.String()
	if !IsSafeURL(resolved) {
		return "", false
	}
	return resolved, true
}
