package capture

import "strings"

// Slug turns a route or name into a file-name-safe token: path separators
// and any other unsafe characters become dashes, runs of dashes collapse and
// leading/trailing dashes are dropped. The root route yields "".
func Slug(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		safe := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '.'
		if safe {
			b.WriteRune(r)
			lastDash = false
			continue
		}
		if !lastDash {
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimRight(b.String(), "-")
}

// ScreenshotName is current-main.png for the root route and
// current-<slug>.png otherwise.
func ScreenshotName(route string) string {
	slug := Slug(route)
	if slug == "" {
		slug = "main"
	}
	return "current-" + slug + ".png"
}

// ReferenceName is reference-<name>.png.
func ReferenceName(name string) string {
	slug := Slug(name)
	if slug == "" {
		slug = "unnamed"
	}
	return "reference-" + slug + ".png"
}

// ReportName is wcag-report.json for the root route and
// wcag-report-<slug>.json otherwise.
func ReportName(route string) string {
	slug := Slug(route)
	if slug == "" {
		return "wcag-report.json"
	}
	return "wcag-report-" + slug + ".json"
}
