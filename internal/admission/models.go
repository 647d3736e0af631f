package admission

// FetchResult is the outcome of fetching one URL, as handed over by the fetch layer.
type FetchResult struct {
	Status   int    // HTTP status code (0 when the request never completed)
	URL      string // URL that was requested
	FinalURL string // URL after following redirects (empty if unknown)
	Body     []byte // Raw response body; nil means absent
	Error    string // Fetch error description, if any
}

// PageURL returns the URL the body was actually served from.
func (r FetchResult) PageURL() string {
	if r.FinalURL != "" {
		return r.FinalURL
	}
	return r.URL
}

// Verdict is the terminal state of an admission.
type Verdict int

const (
	Rejected Verdict = iota
	Admitted
)

func (v Verdict) String() string {
	if v == Admitted {
		return "admitted"
	}
	return "rejected"
}

// Reason classifies why a page was rejected.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonBadStatus      Reason = "bad_status"
	ReasonOutOfScope     Reason = "out_of_scope"
	ReasonNoContent      Reason = "no_content"
	ReasonExactDuplicate Reason = "exact_duplicate"
	ReasonNearDuplicate  Reason = "near_duplicate"
)

// Decision is the result of running a fetched page through the admission pipeline.
type Decision struct {
	Verdict     Verdict
	Reason      Reason
	URL         string   // Normalized page URL
	Links       []string // Normalized, in-scope links to enqueue (empty unless admitted)
	Checksum    Checksum
	Fingerprint Fingerprint
	WordCount   int
}

// IsAdmitted reports whether the page was admitted.
func (d Decision) IsAdmitted() bool {
	return d.Verdict == Admitted
}

// Counters summarizes admission outcomes for a crawl.
type Counters struct {
	Admitted       int `json:"admitted"`
	BadStatus      int `json:"bad_status"`
	OutOfScope     int `json:"out_of_scope"`
	NoContent      int `json:"no_content"`
	ExactDuplicate int `json:"exact_duplicate"`
	NearDuplicate  int `json:"near_duplicate"`
}

// Total returns the number of pages that went through admission.
func (c Counters) Total() int {
	return c.Admitted + c.BadStatus + c.OutOfScope + c.NoContent + c.ExactDuplicate + c.NearDuplicate
}
