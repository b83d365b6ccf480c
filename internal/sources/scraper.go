package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// scrapeVerifier fetches a board's public lookup page and reads label/value
// pairs out of the rendered markup. It understands the two layouts boards
// actually use: two-cell table rows and definition lists.
type scrapeVerifier struct {
	spec Spec
	http *http.Client
}

func newScrapeVerifier(spec Spec, client *http.Client) *scrapeVerifier {
	return &scrapeVerifier{spec: spec, http: client}
}

// SourceID identifies the authoritative source this adapter queries.
func (v *scrapeVerifier) SourceID() string { return v.spec.SourceID }

// Lookup fetches and parses the lookup page for one license.
func (v *scrapeVerifier) Lookup(ctx context.Context, identity Identity) (*LookupResult, error) {
	req, err := v.buildRequest(ctx, identity)
	if err != nil {
		return nil, ParseError("build lookup request", err)
	}

	resp, err := v.http.Do(req)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	body, readErr := readBoundedBody(resp.Body)
	if readErr != nil {
		return nil, TransientError("read lookup page", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, TransientError("source rate limited the lookup", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, TransientError("source unavailable", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, ParseError("unexpected response status", fmt.Errorf("status %d", resp.StatusCode))
	}

	if v.spec.NotFoundText != "" &&
		strings.Contains(strings.ToLower(string(body)), strings.ToLower(v.spec.NotFoundText)) {
		return nil, NotFoundError("source has no record of license " + identity.Number)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, ParseError("parse lookup page", err)
	}

	fields := collectLabeledValues(doc)
	status, ok := fields[normalizeLabel(v.spec.StatusLabel)]
	if !ok {
		return nil, ParseError("extract status", fmt.Errorf("label %q not found in page", v.spec.StatusLabel))
	}

	result := &LookupResult{RawStatus: status, RawPayload: scrapePayload(fields)}

	if v.spec.ExpirationLabel != "" {
		if expStr, found := fields[normalizeLabel(v.spec.ExpirationLabel)]; found && expStr != "" {
			if exp, parseErr := parseSourceDate(v.spec.DateLayout, expStr); parseErr == nil {
				result.Expiration = &exp
			}
		}
	}
	if v.spec.NameLabel != "" {
		result.LicenseeName = fields[normalizeLabel(v.spec.NameLabel)]
	}
	return result, nil
}

func (v *scrapeVerifier) buildRequest(ctx context.Context, identity Identity) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.spec.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("number", identity.Number)
	if identity.LastName != "" {
		q.Set("last_name", identity.LastName)
	}
	req.URL.RawQuery = q.Encode()
	return req, nil
}

// collectLabeledValues walks the document and gathers label → value pairs from
// two-cell table rows and from <dt>/<dd> sequences. Labels are normalized so
// spec matching tolerates case and trailing-colon differences.
func collectLabeledValues(doc *html.Node) map[string]string {
	fields := make(map[string]string)

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "tr":
				if label, value, ok := twoCellRow(n); ok {
					fields[normalizeLabel(label)] = value
				}
			case "dt":
				if dd := nextElementSibling(n); dd != nil && dd.Data == "dd" {
					fields[normalizeLabel(nodeText(n))] = nodeText(dd)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return fields
}

func twoCellRow(tr *html.Node) (label, value string, ok bool) {
	var cells []string
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && (c.Data == "td" || c.Data == "th") {
			cells = append(cells, nodeText(c))
		}
	}
	if len(cells) != 2 {
		return "", "", false
	}
	return cells[0], cells[1], true
}

func nextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.TrimSuffix(strings.TrimSpace(label), ":"))
}

// scrapePayload preserves the extracted fields as the audit payload. The raw
// page is too large and too volatile to be worth keeping.
func scrapePayload(fields map[string]string) json.RawMessage {
	b, err := json.Marshal(fields)
	if err != nil {
		return nil
	}
	return b
}
