package sources

import (
	"sort"

	"github.com/caretrack/licensure/internal/domain/model"
)

// Kind selects the adapter family used to query a source.
type Kind string

const (
	// KindAPI queries a JSON lookup API.
	KindAPI Kind = "api"
	// KindScrape fetches and parses the board's public lookup page.
	KindScrape Kind = "scrape"
)

// Spec is the static configuration for one jurisdiction's source.
//
// API sources extract fields from the JSON response with JMESPath expressions;
// scrape sources match label/value pairs in the rendered page. Either way the
// raw status vocabulary stays adapter-specific and is mapped downstream.
type Spec struct {
	SourceID     string
	Jurisdiction string
	Kind         Kind
	Endpoint     string

	// API extraction paths (JMESPath).
	StatusPath       string
	ExpirationPath   string
	NamePath         string
	UnencumberedPath string
	NotFoundPath     string

	// Scrape label matching.
	StatusLabel     string
	ExpirationLabel string
	NameLabel       string
	NotFoundText    string

	// DateLayout parses expiration dates; defaults to 2006-01-02.
	DateLayout string

	// Concurrency caps simultaneous lookups against this source when the site
	// is known to be rate-sensitive. Zero inherits the run-wide limit.
	Concurrency int
}

// Capability is the registry's answer for a jurisdiction.
type Capability struct {
	Automated bool
	Spec      *Spec
}

// Registry is the static mapping from jurisdiction code to verification
// strategy. Lookups are deterministic and side-effect free; an unknown
// jurisdiction is not an error, it is the expected trigger for the manual
// fallback path.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds the registry over the built-in source table.
func NewRegistry() *Registry {
	return NewRegistryWithSpecs(builtinSpecs())
}

// NewRegistryWithSpecs builds a registry from an explicit spec list. Later
// entries for the same jurisdiction win.
func NewRegistryWithSpecs(specs []Spec) *Registry {
	m := make(map[string]Spec, len(specs))
	for _, s := range specs {
		m[model.NormalizeJurisdiction(s.Jurisdiction)] = s
	}
	return &Registry{specs: m}
}

// CapabilityFor reports whether automated lookup is available for a
// jurisdiction and, when it is, the source configuration to use.
func (r *Registry) CapabilityFor(jurisdiction string) Capability {
	spec, ok := r.specs[model.NormalizeJurisdiction(jurisdiction)]
	if !ok {
		return Capability{Automated: false}
	}
	return Capability{Automated: true, Spec: &spec}
}

// ListAutomated returns the sorted set of jurisdiction codes with automated
// lookup available. Used for the capability report endpoint.
func (r *Registry) ListAutomated() []string {
	out := make([]string, 0, len(r.specs))
	for code := range r.specs {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// builtinSpecs is the static source table. Most state boards have no public
// lookup API and stay on the manual path; the entries here are the boards with
// a stable machine-readable surface.
func builtinSpecs() []Spec {
	return []Spec{
		{
			SourceID:       "al-board-of-nursing",
			Jurisdiction:   "AL",
			Kind:           KindAPI,
			Endpoint:       "https://abn.alabama.gov/api/licenses/search",
			StatusPath:     "licenses[0].status",
			ExpirationPath: "licenses[0].expirationDate",
			NamePath:       "licenses[0].licenseeName",
			NotFoundPath:   "length(licenses) == `0`",
		},
		{
			SourceID:         "ca-brn",
			Jurisdiction:     "CA",
			Kind:             KindAPI,
			Endpoint:         "https://search.dca.ca.gov/api/license",
			StatusPath:       "result.primaryStatus",
			ExpirationPath:   "result.expirationDate",
			NamePath:         "result.name",
			UnencumberedPath: "result.hasDiscipline == `false`",
			DateLayout:       "January 2, 2006",
		},
		{
			SourceID:       "fl-mqa",
			Jurisdiction:   "FL",
			Kind:           KindAPI,
			Endpoint:       "https://mqa-internet.doh.state.fl.us/api/lookup",
			StatusPath:     "data.licenseStatus",
			ExpirationPath: "data.expires",
			NamePath:       "data.fullName",
			NotFoundPath:   "data == null",
		},
		{
			SourceID:       "tx-bon",
			Jurisdiction:   "TX",
			Kind:           KindAPI,
			Endpoint:       "https://www.bon.texas.gov/api/verification",
			StatusPath:     "license.status",
			ExpirationPath: "license.expirationDate",
			NamePath:       "license.name",
		},
		{
			SourceID:        "ny-op",
			Jurisdiction:    "NY",
			Kind:            KindScrape,
			Endpoint:        "https://www.op.nysed.gov/verification-search",
			StatusLabel:     "Status",
			ExpirationLabel: "Registered through",
			NameLabel:       "Name",
			NotFoundText:    "no records found",
			DateLayout:      "01/02/2006",
			Concurrency:     2,
		},
		{
			SourceID:        "oh-board-of-nursing",
			Jurisdiction:    "OH",
			Kind:            KindScrape,
			Endpoint:        "https://elicense.ohio.gov/lookup",
			StatusLabel:     "License Status",
			ExpirationLabel: "Expiration Date",
			NameLabel:       "Licensee",
			NotFoundText:    "no matching license",
			DateLayout:      "01/02/2006",
		},
		{
			SourceID:        "pa-bon",
			Jurisdiction:    "PA",
			Kind:            KindScrape,
			Endpoint:        "https://www.pals.pa.gov/verify",
			StatusLabel:     "License Status",
			ExpirationLabel: "Expiry Date",
			NameLabel:       "Person Name",
			NotFoundText:    "did not return any results",
			DateLayout:      "1/2/2006",
			Concurrency:     2,
		},
		{
			SourceID:       "wa-doh",
			Jurisdiction:   "WA",
			Kind:           KindAPI,
			Endpoint:       "https://fortress.wa.gov/doh/providercredentialsearch/api",
			StatusPath:     "credentials[0].status",
			ExpirationPath: "credentials[0].expirationDate",
			NamePath:       "credentials[0].providerName",
			NotFoundPath:   "length(credentials) == `0`",
		},
	}
}
