package model

// Mode discriminates the three kinds of capture run.
type Mode string

const (
	ModeLocal     Mode = "local"
	ModeReference Mode = "reference"
	ModeWCAG      Mode = "wcag"
)

// RouteTarget is one page to visit: either a route of the local project
// (Route set) or an external reference site (URL and Name set).
type RouteTarget struct {
	Route string
	URL   string
	Name  string
}

// LocalRoute builds a target for a path on the project under development.
func LocalRoute(route string) RouteTarget {
	return RouteTarget{Route: route}
}

// Reference builds a target for an external design reference.
func Reference(url, name string) RouteTarget {
	return RouteTarget{URL: url, Name: name}
}

// IsReference reports whether the target points at an external site.
func (t RouteTarget) IsReference() bool {
	return t.Route == "" && t.URL != ""
}

// CaptureResult is the outcome of processing one target. Results are built
// once and appended; nothing mutates them afterwards.
type CaptureResult struct {
	Route    string `json:"route,omitempty"`
	URL      string `json:"url,omitempty"`
	Name     string `json:"name,omitempty"`
	Filename string `json:"filename"`
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
}

// NewCaptureResult records the outcome for target. A nil err means success.
func NewCaptureResult(target RouteTarget, filename string, err error) CaptureResult {
	res := CaptureResult{
		Route:    target.Route,
		URL:      target.URL,
		Name:     target.Name,
		Filename: filename,
		Success:  err == nil,
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
