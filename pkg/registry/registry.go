// Package registry talks to the application registration service: it makes
// sure an application exists for a site and lists the upstream services the
// application has enabled.
package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultURL is the GraphQL endpoint of the registration service.
const DefaultURL = "https://serve.onegraph.com/graphql"

const upsertAppForSiteMutation = `mutation UpsertAppForSite($siteId: String!) {
  oneGraph {
    upsertAppForNetlifySite(input: {netlifySiteId: $siteId}) {
      org {
        id
        name
      }
      app {
        id
        name
      }
    }
  }
}`

const appSchemaQuery = `query AppSchemaQuery($appId: String!) {
  oneGraph {
    app(id: $appId) {
      graphQLSchema {
        services {
          friendlyServiceName
          service
          slug
        }
      }
    }
  }
}`

// App is the application record registered for a site.
type App struct {
	ID      string
	Name    string
	OrgID   string
	OrgName string
}

// Service is an upstream service enabled on an application.
type Service struct {
	FriendlyServiceName string `json:"friendlyServiceName"`
	Service             string `json:"service"`
	Slug                string `json:"slug"`
}

// RequestError is returned when a registration request fails, either at the
// transport level or with GraphQL errors in the response.
type RequestError struct {
	Operation string
	Status    int
	Messages  []string
	Err       error
}

func (e *RequestError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s request failed: %v", e.Operation, e.Err)
	case len(e.Messages) > 0:
		return fmt.Sprintf("%s request failed: %s", e.Operation, strings.Join(e.Messages, "; "))
	default:
		return fmt.Sprintf("%s request failed with status %d", e.Operation, e.Status)
	}
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Client sends registration requests with a bearer token.
type Client struct {
	URL        string
	Token      string
	HTTPClient *http.Client
}

func NewClient(url, token string) *Client {
	return &Client{
		URL:        url,
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// UpsertAppForSite makes sure an application exists for siteID and returns it.
func (c *Client) UpsertAppForSite(ctx context.Context, siteID string) (*App, error) {
	var data struct {
		OneGraph struct {
			UpsertAppForNetlifySite struct {
				Org struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"org"`
				App struct {
					ID   string `json:"id"`
					Name string `json:"name"`
				} `json:"app"`
			} `json:"upsertAppForNetlifySite"`
		} `json:"oneGraph"`
	}

	err := c.do(ctx, "UpsertAppForSite", upsertAppForSiteMutation, map[string]any{"siteId": siteID}, &data)
	if err != nil {
		return nil, err
	}

	result := data.OneGraph.UpsertAppForNetlifySite
	return &App{
		ID:      result.App.ID,
		Name:    result.App.Name,
		OrgID:   result.Org.ID,
		OrgName: result.Org.Name,
	}, nil
}

// EnabledServices lists the services enabled on appID. An application
// without a schema has no services.
func (c *Client) EnabledServices(ctx context.Context, appID string) ([]Service, error) {
	var data struct {
		OneGraph struct {
			App *struct {
				GraphQLSchema *struct {
					Services []Service `json:"services"`
				} `json:"graphQLSchema"`
			} `json:"app"`
		} `json:"oneGraph"`
	}

	err := c.do(ctx, "AppSchemaQuery", appSchemaQuery, map[string]any{"appId": appID}, &data)
	if err != nil {
		return nil, err
	}

	app := data.OneGraph.App
	if app == nil || app.GraphQLSchema == nil {
		return nil, nil
	}
	return app.GraphQLSchema.Services, nil
}

// ServiceNames returns the Service field of each service.
func ServiceNames(services []Service) []string {
	names := make([]string, 0, len(services))
	for _, s := range services {
		names = append(names, s.Service)
	}
	return names
}

func (c *Client) do(ctx context.Context, operationName, query string, variables map[string]any, out any) error {
	fail := func(status int, err error) error {
		return &RequestError{Operation: operationName, Status: status, Err: err}
	}

	body, err := json.Marshal(graphQLRequest{
		Query:         query,
		OperationName: operationName,
		Variables:     variables,
	})
	if err != nil {
		return fail(0, err)
	}

	url := c.URL
	if url == "" {
		url = DefaultURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fail(0, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fail(0, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fail(resp.StatusCode, err)
	}

	var parsed graphQLResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return &RequestError{Operation: operationName, Status: resp.StatusCode}
		}
		return fail(resp.StatusCode, fmt.Errorf("malformed response: %w", err))
	}

	if len(parsed.Errors) > 0 {
		reqErr := &RequestError{Operation: operationName, Status: resp.StatusCode}
		for _, e := range parsed.Errors {
			reqErr.Messages = append(reqErr.Messages, e.Message)
		}
		return reqErr
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Operation: operationName, Status: resp.StatusCode}
	}
	if len(parsed.Data) == 0 || string(parsed.Data) == "null" {
		return fail(resp.StatusCode, fmt.Errorf("response has no data"))
	}

	if err := json.Unmarshal(parsed.Data, out); err != nil {
		return fail(resp.StatusCode, fmt.Errorf("malformed response data: %w", err))
	}
	return nil
}
