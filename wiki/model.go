package wiki

import "errors"

const (
	// DefaultCeiling is the read ceiling, in calls per minute, used when the
	// API has not advertised one.
	DefaultCeiling = 200
	// DefaultPeriod is the moving average age, in minutes, of the source's gate.
	DefaultPeriod = 6
	// DefaultEndpoint is the English Wikipedia action API.
	DefaultEndpoint = "https://en.wikipedia.org/w/api.php"

	// GateName labels the source's gate in logs and metrics.
	GateName = "wiki"
)

var (
	// ErrPageMissing is returned by Summary when no page has the title.
	ErrPageMissing = errors.New("page missing")
	ErrEmptyQuery  = errors.New("query must not be empty")
)

// summaryResponse is the shape of a prop=extracts query in the default
// (version 1) JSON format. Pages are keyed by page id, "-1" for a page
// that does not exist.
type summaryResponse struct {
	Query struct {
		Pages map[string]page `json:"pages"`
	} `json:"query"`
}

type page struct {
	Title   string  `json:"title"`
	Extract *string `json:"extract"`
	Missing *string `json:"missing"`
	Invalid *string `json:"invalid"`
}
