package schema

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vektah/gqlparser/v2/ast"
)

// DefaultServeURL is the base URL of the schema and serving endpoints.
const DefaultServeURL = "https://serve.onegraph.com"

const maxErrorBody = 512

// HTTPProvider fetches the schema from the schema service:
//
//	GET {ServeURL}/schema?app_id=<app>&enabled_services=<a,b>
//
// The service may answer with SDL or with an introspection result.
type HTTPProvider struct {
	ServeURL string
	Token    string
	Client   *http.Client
}

func NewHTTPProvider(serveURL, token string) *HTTPProvider {
	return &HTTPProvider{
		ServeURL: serveURL,
		Token:    token,
		Client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (p *HTTPProvider) endpoint(appID string, services []string) string {
	base := p.ServeURL
	if base == "" {
		base = DefaultServeURL
	}
	query := url.Values{}
	query.Set("app_id", appID)
	if len(services) > 0 {
		query.Set("enabled_services", strings.Join(services, ","))
	}
	return strings.TrimRight(base, "/") + "/schema?" + query.Encode()
}

func (p *HTTPProvider) FetchSchema(ctx context.Context, appID string, services []string) (*ast.Schema, error) {
	endpoint := p.endpoint(appID, services)
	fail := func(err error) (*ast.Schema, error) {
		return nil, &SchemaFetchError{AppID: appID, Source: endpoint, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/graphql, application/json")
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(fmt.Errorf("failed to read response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fail(ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fail(fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body)))
	}

	sdl := string(body)
	if looksLikeJSON(body) {
		sdl, err = IntrospectionToSDL(body)
		if err != nil {
			return fail(err)
		}
	}

	schema, err := Load("schema.graphql", sdl)
	if err != nil {
		return fail(err)
	}
	return schema, nil
}

func looksLikeJSON(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}
