package enumerator

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// skippedExt lists link targets that are never pages.
var skippedExt = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true, ".ico": true,
	".css": true, ".js": true, ".mjs": true, ".map": true, ".json": true, ".xml": true, ".txt": true,
	".pdf": true, ".zip": true, ".woff": true, ".woff2": true, ".ttf": true, ".mp4": true, ".webm": true,
}

// normalize drops the fragment, lower-cases scheme and host, strips default
// ports and trailing slashes.
func normalize(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host, _, _ = strings.Cut(u.Host, ":")
	}

	u.Path = strings.TrimRight(u.Path, "/")
}

func parseRoot(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("couldn't parse url %s: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return nil, fmt.Errorf("not an absolute http(s) url: %s", raw)
	}
	normalize(u)
	return u, nil
}

// sameOrigin reports whether u is served by the same scheme and host as root.
func sameOrigin(root, u *url.URL) bool {
	return root.Scheme == u.Scheme && root.Host == u.Host
}

// resolve turns an href found on page base into a normalized absolute URL.
// It returns nil for links that cannot lead to a page.
func resolve(base *url.URL, href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return nil
	}
	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	u := base.ResolveReference(ref)
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil
	}
	if skippedExt[strings.ToLower(path.Ext(u.Path))] {
		return nil
	}
	normalize(u)
	return u
}

// routeOf renders u as a route relative to root: path plus query, "/" for
// the root itself.
func routeOf(root, u *url.URL) string {
	p := strings.TrimPrefix(u.Path, root.Path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if u.RawQuery != "" {
		p += "?" + u.RawQuery
	}
	return p
}
