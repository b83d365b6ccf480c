package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"
)

const maxLookupResponseBytes = 256 * 1024 // source payloads are audit data, keep them bounded

// apiVerifier queries a board's JSON lookup API and extracts fields with the
// spec's JMESPath expressions.
type apiVerifier struct {
	spec Spec
	http *http.Client
}

func newAPIVerifier(spec Spec, client *http.Client) *apiVerifier {
	return &apiVerifier{spec: spec, http: client}
}

// SourceID identifies the authoritative source this adapter queries.
func (v *apiVerifier) SourceID() string { return v.spec.SourceID }

// Lookup performs one API lookup. Network and timeout problems classify as
// transient; unexpected payload shapes classify as parse errors.
func (v *apiVerifier) Lookup(ctx context.Context, identity Identity) (*LookupResult, error) {
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
		return nil, TransientError("read lookup response", readErr)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, NotFoundError("source returned 404 for license " + identity.Number)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, TransientError("source rate limited the lookup", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, TransientError("source unavailable", fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, ParseError("unexpected response status", fmt.Errorf("status %d", resp.StatusCode))
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, ParseError("decode lookup response", err)
	}

	if v.spec.NotFoundPath != "" {
		if hit, evalErr := jmespath.Search(v.spec.NotFoundPath, payload); evalErr == nil {
			if b, ok := hit.(bool); ok && b {
				return nil, NotFoundError("source has no record of license " + identity.Number)
			}
		}
	}

	return v.extract(payload, body)
}

func (v *apiVerifier) buildRequest(ctx context.Context, identity Identity) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.spec.Endpoint, nil)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("license_number", identity.Number)
	if identity.LastName != "" {
		q.Set("last_name", identity.LastName)
	}
	if identity.CredentialType != "" {
		q.Set("credential_type", string(identity.CredentialType))
	}
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (v *apiVerifier) extract(payload any, raw []byte) (*LookupResult, error) {
	status, err := searchString(v.spec.StatusPath, payload)
	if err != nil {
		return nil, ParseError("extract status at "+v.spec.StatusPath, err)
	}

	result := &LookupResult{RawStatus: status, RawPayload: raw}

	if v.spec.ExpirationPath != "" {
		expStr, expErr := searchString(v.spec.ExpirationPath, payload)
		if expErr == nil && expStr != "" {
			if exp, parseErr := parseSourceDate(v.spec.DateLayout, expStr); parseErr == nil {
				result.Expiration = &exp
			}
		}
	}
	if v.spec.NamePath != "" {
		if name, nameErr := searchString(v.spec.NamePath, payload); nameErr == nil {
			result.LicenseeName = name
		}
	}
	if v.spec.UnencumberedPath != "" {
		if hit, evalErr := jmespath.Search(v.spec.UnencumberedPath, payload); evalErr == nil {
			if b, ok := hit.(bool); ok {
				result.Unencumbered = &b
			}
		}
	}
	return result, nil
}

// searchString evaluates a JMESPath expression and coerces the hit to a string.
// A missing value is not an error; a non-string hit is.
func searchString(expr string, payload any) (string, error) {
	if expr == "" {
		return "", nil
	}
	hit, err := jmespath.Search(expr, payload)
	if err != nil {
		return "", err
	}
	switch val := hit.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	default:
		return "", fmt.Errorf("expected string at %s, got %T", expr, hit)
	}
}

// parseSourceDate parses a source-reported date in the Spec's layout,
// defaulting to ISO 8601 dates. Expirations are dates, not instants, so the
// result is pinned to UTC midnight.
func parseSourceDate(layout, value string) (time.Time, error) {
	if layout == "" {
		layout = "2006-01-02"
	}
	t, err := time.Parse(layout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
}

// classifyTransportError maps HTTP client errors onto the failure taxonomy.
func classifyTransportError(err error) *LookupError {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return TransientError("lookup timed out", err)
	case errors.Is(err, context.Canceled):
		return TransientError("lookup canceled", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return TransientError("lookup timed out", err)
	default:
		return TransientError("lookup request failed", err)
	}
}

func readBoundedBody(body io.ReadCloser) ([]byte, error) {
	defer func() {
		_ = body.Close()
	}()
	return io.ReadAll(io.LimitReader(body, maxLookupResponseBytes))
}
