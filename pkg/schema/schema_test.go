package schema

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"
)

const testSDL = `
type User {
  id: ID!
  name: String
}

type Query {
  user(id: ID!): User
}
`

const testIntrospection = `{
  "data": {
    "__schema": {
      "queryType": {"name": "Root"},
      "mutationType": null,
      "subscriptionType": null,
      "types": [
        {"kind": "SCALAR", "name": "String", "description": null},
        {"kind": "SCALAR", "name": "ID", "description": null},
        {"kind": "SCALAR", "name": "DateTime", "description": "An ISO-8601 timestamp"},
        {"kind": "OBJECT", "name": "__Schema", "fields": []},
        {
          "kind": "ENUM", "name": "Role",
          "enumValues": [
            {"name": "ADMIN", "isDeprecated": false},
            {"name": "GUEST", "isDeprecated": true, "deprecationReason": "use VIEWER"},
            {"name": "VIEWER", "isDeprecated": false}
          ]
        },
        {
          "kind": "INTERFACE", "name": "Node",
          "fields": [
            {"name": "id", "args": [], "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}, "isDeprecated": false}
          ],
          "possibleTypes": [{"kind": "OBJECT", "name": "User"}]
        },
        {
          "kind": "OBJECT", "name": "User",
          "interfaces": [{"kind": "INTERFACE", "name": "Node"}],
          "fields": [
            {"name": "id", "args": [], "type": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "ID"}}, "isDeprecated": false},
            {"name": "name", "args": [], "type": {"kind": "SCALAR", "name": "String"}, "isDeprecated": false},
            {"name": "role", "args": [], "type": {"kind": "ENUM", "name": "Role"}, "isDeprecated": false},
            {"name": "createdAt", "args": [], "type": {"kind": "SCALAR", "name": "DateTime"}, "isDeprecated": true, "deprecationReason": "gone"}
          ]
        },
        {
          "kind": "INPUT_OBJECT", "name": "UserFilter",
          "inputFields": [
            {"name": "role", "type": {"kind": "ENUM", "name": "Role"}, "defaultValue": "VIEWER"},
            {"name": "names", "type": {"kind": "LIST", "ofType": {"kind": "NON_NULL", "ofType": {"kind": "SCALAR", "name": "String"}}}, "defaultValue": null}
          ]
        },
        {
          "kind": "UNION", "name": "SearchResult",
          "possibleTypes": [{"kind": "OBJECT", "name": "User"}]
        },
        {
          "kind": "OBJECT", "name": "Root",
          "fields": [
            {
              "name": "users",
              "args": [
                {"name": "filter", "type": {"kind": "INPUT_OBJECT", "name": "UserFilter"}, "defaultValue": null},
                {"name": "first", "type": {"kind": "SCALAR", "name": "Int"}, "defaultValue": "10"}
              ],
              "type": {"kind": "NON_NULL", "ofType": {"kind": "LIST", "ofType": {"kind": "NON_NULL", "ofType": {"kind": "OBJECT", "name": "User"}}}},
              "isDeprecated": false
            },
            {"name": "search", "args": [], "type": {"kind": "LIST", "ofType": {"kind": "UNION", "name": "SearchResult"}}, "isDeprecated": false}
          ]
        }
      ],
      "directives": [
        {"name": "include", "locations": ["FIELD"], "args": []},
        {"name": "cached", "description": "Cache the field", "locations": ["FIELD", "QUERY"], "args": [{"name": "ttl", "type": {"kind": "SCALAR", "name": "Int"}, "defaultValue": "60"}]}
      ]
    }
  }
}`

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(testSDL), 0644))

	schema, err := FileProvider{Path: path}.FetchSchema(context.Background(), "app", nil)
	require.NoError(t, err)
	require.NotNil(t, schema.Types["User"])
	assert.Equal(t, "Query", schema.Query.Name)
}

func TestFileProvider_Missing(t *testing.T) {
	_, err := FileProvider{Path: filepath.Join(t.TempDir(), "nope.graphql")}.FetchSchema(context.Background(), "app", nil)

	var fetchErr *SchemaFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "schema file does not exist")
}

func TestFileProvider_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte("type Query { user: Missing }"), 0644))

	_, err := FileProvider{Path: path}.FetchSchema(context.Background(), "app", nil)
	var fetchErr *SchemaFetchError
	require.True(t, errors.As(err, &fetchErr))
}

func TestHTTPProvider_SDL(t *testing.T) {
	var gotAuth, gotApp, gotServices, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotApp = r.URL.Query().Get("app_id")
		gotServices = r.URL.Query().Get("enabled_services")
		_, _ = w.Write([]byte(testSDL))
	}))
	defer server.Close()

	provider := NewHTTPProvider(server.URL+"/", "secret")
	schema, err := provider.FetchSchema(context.Background(), "app-123", []string{"github", "stripe"})
	require.NoError(t, err)

	assert.Equal(t, "/schema", gotPath)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "app-123", gotApp)
	assert.Equal(t, "github,stripe", gotServices)
	assert.NotNil(t, schema.Types["User"])
}

func TestHTTPProvider_NoTokenNoHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		assert.False(t, r.URL.Query().Has("enabled_services"))
		_, _ = w.Write([]byte(testSDL))
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "").FetchSchema(context.Background(), "app", nil)
	require.NoError(t, err)
}

func TestHTTPProvider_Introspection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testIntrospection))
	}))
	defer server.Close()

	schema, err := NewHTTPProvider(server.URL, "").FetchSchema(context.Background(), "app", nil)
	require.NoError(t, err)

	require.NotNil(t, schema.Query)
	assert.Equal(t, "Root", schema.Query.Name)
	assert.Nil(t, schema.Mutation)

	user := schema.Types["User"]
	require.NotNil(t, user)
	assert.Equal(t, ast.Object, user.Kind)
	assert.Equal(t, []string{"Node"}, user.Interfaces)
	require.NotNil(t, user.Fields.ForName("createdAt"))
	assert.NotNil(t, user.Fields.ForName("createdAt").Directives.ForName("deprecated"))

	role := schema.Types["Role"]
	require.NotNil(t, role)
	assert.Len(t, role.EnumValues, 3)

	filter := schema.Types["UserFilter"]
	require.NotNil(t, filter)
	assert.Equal(t, ast.InputObject, filter.Kind)
	require.NotNil(t, filter.Fields.ForName("role").DefaultValue)
	assert.Equal(t, "VIEWER", filter.Fields.ForName("role").DefaultValue.Raw)

	users := schema.Query.Fields.ForName("users")
	require.NotNil(t, users)
	assert.Equal(t, "[User!]!", users.Type.String())
	assert.Equal(t, "10", users.Arguments.ForName("first").DefaultValue.Raw)

	assert.Equal(t, ast.Union, schema.Types["SearchResult"].Kind)
	assert.Equal(t, "An ISO-8601 timestamp", schema.Types["DateTime"].Description)
	assert.NotNil(t, schema.Directives["cached"])
}

func TestHTTPProvider_Unauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "bad").FetchSchema(context.Background(), "app", nil)

	var fetchErr *SchemaFetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "app", fetchErr.AppID)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestHTTPProvider_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "").FetchSchema(context.Background(), "app", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 502")
	assert.Contains(t, err.Error(), "boom")
}

func TestHTTPProvider_MalformedSchema(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("type Query {"))
	}))
	defer server.Close()

	_, err := NewHTTPProvider(server.URL, "").FetchSchema(context.Background(), "app", nil)
	var fetchErr *SchemaFetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestHTTPProvider_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewHTTPProvider(url, "").FetchSchema(context.Background(), "app", nil)
	var fetchErr *SchemaFetchError
	assert.True(t, errors.As(err, &fetchErr))
}

func TestIntrospectionToSDL_Errors(t *testing.T) {
	_, err := IntrospectionToSDL([]byte(`{"errors":[{"message":"app not found"}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app not found")

	_, err = IntrospectionToSDL([]byte(`{"data":{}}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing __schema")

	_, err = IntrospectionToSDL([]byte(`{not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed introspection response")
}

func TestIntrospectionToSDL_BareSchema(t *testing.T) {
	sdl, err := IntrospectionToSDL([]byte(`{"__schema":{"queryType":{"name":"Query"},"types":[
		{"kind":"OBJECT","name":"Query","fields":[{"name":"ok","args":[],"type":{"kind":"SCALAR","name":"Boolean"}}]}
	]}}`))
	require.NoError(t, err)

	schema, err := Load("schema.graphql", sdl)
	require.NoError(t, err)
	assert.NotNil(t, schema.Query.Fields.ForName("ok"))
}
