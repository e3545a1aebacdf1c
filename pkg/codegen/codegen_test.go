package codegen_test

import (
	"errors"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/schema"
	"github.com/samwightt/gqlfunc/pkg/signature"
)

const testSDL = `
type Query {
	user(id: ID!): User
	users(filter: UserFilter, role: Role): [User!]!
	node(id: ID!): Node
	search(term: String!): [SearchResult!]!
	usersByID(ids: [ID!]!, exclude: [ID!], groups: [[Int]]): [User!]!
	usersIn(set: IDSet!): [User!]!
}

type Mutation {
	setName(id: ID!, name: String!): User
}

interface Node {
	id: ID!
}

"A person with an account."
type User implements Node {
	id: ID!
	name: String
	role: Role!
	createdAt: DateTime
	friends: [User!]
}

type Post implements Node {
	id: ID!
	title: String!
}

union SearchResult = User | Post

enum Role {
	ADMIN
	IN_PROGRESS
}

input UserFilter {
	role: Role
	nameContains: String
	limit: Int!
}

input IDSet {
	ids: [ID!]
}

scalar DateTime
`

const testEndpoint = "https://serve.onegraph.com/graphql?app_id=app-123"

func testSchema(t *testing.T) *ast.Schema {
	t.Helper()
	s, err := schema.Load("schema.graphql", testSDL)
	require.NoError(t, err)
	return s
}

func descriptors(t *testing.T, text string) []signature.FunctionDescriptor {
	t.Helper()
	doc, err := operations.Parse("operations.graphql", text)
	require.NoError(t, err)
	fns, err := signature.Extract(doc)
	require.NoError(t, err)
	return fns
}

func render(t *testing.T, e *codegen.Emitter, text string) (string, []codegen.Warning) {
	t.Helper()
	source, warnings, err := e.Render(testSchema(t), text, descriptors(t, text))
	require.NoError(t, err)

	_, err = parser.ParseFile(token.NewFileSet(), "netligraph.go", source, parser.AllErrors)
	require.NoError(t, err, "generated source must parse:\n%s", source)
	return string(source), warnings
}

// squash collapses runs of whitespace so assertions ignore gofmt alignment.
func squash(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func newEmitter() *codegen.Emitter {
	return &codegen.Emitter{Endpoint: testEndpoint}
}

func assertGolden(t *testing.T, name, source string) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(source))
}

func TestRender_Placeholder(t *testing.T) {
	source, warnings := render(t, newEmitter(), operations.Placeholder)
	assert.Empty(t, warnings)
	assertGolden(t, "placeholder", source)
}

func TestRender_GetUserGolden(t *testing.T) {
	source, warnings := render(t, newEmitter(), `query GetUser($id: ID!) {
  user(id: $id) {
    name
  }
}`)
	assert.Empty(t, warnings)
	assertGolden(t, "get_user", source)
}

func TestRender_InterfaceFragmentGolden(t *testing.T) {
	source, warnings := render(t, newEmitter(), `query NodeDetails($id: ID!) {
  node(id: $id) {
    __typename
    id
    ... on User {
      name
      role
    }
  }
}`)
	assert.Empty(t, warnings)
	assertGolden(t, "interface_fragment", source)
}

func TestRender_GetUser(t *testing.T) {
	source, warnings := render(t, newEmitter(), `query GetUser($id: ID!) { user(id: $id) { name } }`)
	assert.Empty(t, warnings)

	flat := squash(source)
	assert.Contains(t, flat, "func GetUser(ctx context.Context, client Executor, vars GetUserVariables) (*GetUserResult, error)")
	assert.Contains(t, flat, "type GetUserVariables struct { ID string `json:\"id\"` }")
	assert.Contains(t, flat, "type GetUserResult struct { User *GetUserResultUser `json:\"user\"` }")
	assert.Contains(t, flat, "type GetUserResultUser struct { Name *string `json:\"name\"` }")
	assert.Contains(t, flat, `client.Execute(ctx, Endpoint, OperationsDoc, "GetUser", vars)`)
	assert.Contains(t, source, "const OperationsDoc = `query GetUser($id: ID!) { user(id: $id) { name } }`")
}

func TestRender_SchemaTypes(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Users($filter: UserFilter, $role: Role) {
			users(filter: $filter, role: $role) { id role createdAt }
		}
	`)
	flat := squash(source)

	assert.Contains(t, flat, "type DateTime = json.RawMessage")
	assert.Contains(t, flat, "type Role string")
	assert.Contains(t, flat, `RoleAdmin Role = "ADMIN"`)
	assert.Contains(t, flat, `RoleInProgress Role = "IN_PROGRESS"`)
	assert.Contains(t, flat, "type UserFilter struct { Role *Role `json:\"role,omitempty\"` NameContains *string `json:\"nameContains,omitempty\"` Limit int `json:\"limit\"` }")
	assert.Contains(t, flat, "type UsersVariables struct { Filter *UserFilter `json:\"filter,omitempty\"` Role *Role `json:\"role,omitempty\"` }")
	assert.Contains(t, flat, "Users []UsersResultUsers `json:\"users\"`")
	assert.Contains(t, flat, "type UsersResultUsers struct { ID string `json:\"id\"` Role Role `json:\"role\"` CreatedAt *DateTime `json:\"createdAt\"` }")

	// Declarations are sorted: scalars, then enums, then inputs.
	assert.Less(t, strings.Index(source, "type DateTime"), strings.Index(source, "type Role"))
	assert.Less(t, strings.Index(source, "type Role"), strings.Index(source, "type UserFilter"))
}

func TestRender_UnusedSchemaTypesAreLeftOut(t *testing.T) {
	source, _ := render(t, newEmitter(), `query GetUser($id: ID!) { user(id: $id) { name } }`)
	assert.NotContains(t, source, "type Role")
	assert.NotContains(t, source, "type UserFilter")
	assert.NotContains(t, source, "type DateTime")
}

func TestRender_ScalarMapping(t *testing.T) {
	e := newEmitter()
	e.Scalars = map[string]string{"DateTime": "string"}
	source, _ := render(t, e, `query GetUser($id: ID!) { user(id: $id) { createdAt } }`)
	assert.Contains(t, squash(source), "type DateTime = string")
}

func TestRender_Fragments(t *testing.T) {
	source, warnings := render(t, newEmitter(), `
		query Search($term: String!) {
			search(term: $term) {
				__typename
				... on User { id ...UserName }
				... on Post { title }
			}
		}

		fragment UserName on User { name }
	`)
	assert.Empty(t, warnings)

	flat := squash(source)
	assert.Contains(t, flat, "type SearchResultSearch struct { Typename string `json:\"__typename\"` ID *string `json:\"id\"` Name *string `json:\"name\"` Title *string `json:\"title\"` }")
}

func TestRender_InterfaceFragmentOnObjectIsNotNarrowed(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Me { user(id: "1") { ...NodeID } }
		fragment NodeID on Node { id }
	`)
	assert.Contains(t, squash(source), "type MeResultUser struct { ID string `json:\"id\"` }")
}

func TestRender_Aliases(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Pair {
			first: user(id: "1") { name }
			second: user(id: "2") { name }
		}
	`)
	flat := squash(source)
	assert.Contains(t, flat, "First *PairResultFirst `json:\"first\"`")
	assert.Contains(t, flat, "Second *PairResultSecond `json:\"second\"`")
}

func TestRender_SkipMakesFieldOptional(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Roles($brief: Boolean!) { users { id role @skip(if: $brief) } }
	`)
	assert.Contains(t, squash(source), "Role *Role `json:\"role\"`")
}

func TestRender_Mutation(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		mutation Rename($id: ID!, $name: String!) { setName(id: $id, name: $name) { id name } }
	`)
	flat := squash(source)
	assert.Contains(t, flat, "// RenameResult is the response of the Rename mutation.")
	assert.Contains(t, flat, "SetName *RenameResultSetName `json:\"setName\"`")
}

func TestRender_DocumentOrder(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Zeta { __typename }
		query Alpha { __typename }
	`)
	assert.Less(t, strings.Index(source, "func Zeta("), strings.Index(source, "func Alpha("))
}

func TestRender_Idempotent(t *testing.T) {
	text := `
		query Users($filter: UserFilter) { users(filter: $filter) { id name friends { id } } }
		query GetUser($id: ID!) { user(id: $id) { role createdAt } }
	`
	first, _ := render(t, newEmitter(), text)
	second, _ := render(t, newEmitter(), text)
	assert.Equal(t, first, second)
}

func TestRender_GeneratedNameCollision(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Get { __typename }
		query GetResult { __typename }
	`)
	assert.Contains(t, source, "func Get(ctx context.Context, client Executor) (*GetResult2, error)")
	assert.Contains(t, source, "func GetResult(ctx context.Context, client Executor) (*GetResultResult, error)")
}

func TestRender_OperationNamedLikeFixedDeclaration(t *testing.T) {
	source, _ := render(t, newEmitter(), `query Executor { __typename }`)
	flat := squash(source)
	assert.Contains(t, flat, "type Executor2 interface")
	assert.Contains(t, flat, "func Executor(ctx context.Context, client Executor2) (*ExecutorResult, error)")
	assert.Contains(t, flat, `client.Execute(ctx, Endpoint, OperationsDoc, "Executor", nil)`)
}

func TestRender_OperationsNamedLikeEveryFixedDeclaration(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query Endpoint { __typename }
		query executor { __typename }
		query OperationsDoc { __typename }
	`)
	flat := squash(source)
	assert.Contains(t, flat, "const OperationsDoc2 = `")
	assert.Contains(t, flat, `const Endpoint2 = "https://serve.onegraph.com/graphql?app_id=app-123"`)
	assert.Contains(t, flat, "type Executor2 interface")
	for _, name := range []string{"Endpoint", "Executor", "OperationsDoc"} {
		assert.Contains(t, flat, "func "+name+"(ctx context.Context, client Executor2) (*"+name+"Result, error)")
	}
	assert.Contains(t, flat, `client.Execute(ctx, Endpoint2, OperationsDoc2, "executor", nil)`)
}

func TestRender_OptionalListsKeepEmptyValues(t *testing.T) {
	source, _ := render(t, newEmitter(), `
		query ByID($ids: [ID!]!, $exclude: [ID!], $groups: [[Int]]) { usersByID(ids: $ids, exclude: $exclude, groups: $groups) { id } }
		query In($set: IDSet!) { usersIn(set: $set) { id } }
	`)
	flat := squash(source)
	assert.Contains(t, flat, "Ids []string `json:\"ids\"`")
	assert.Contains(t, flat, "Exclude *[]string `json:\"exclude,omitempty\"`")
	assert.Contains(t, flat, "Groups *[][]*int `json:\"groups,omitempty\"`")
	assert.Contains(t, flat, "type IDSet struct { Ids *[]string `json:\"ids,omitempty\"` }")
}

func TestRender_Backtick(t *testing.T) {
	text := "# uses `backticks`\nquery Tick { __typename }"
	source, _ := render(t, newEmitter(), text)
	assert.Contains(t, source, `const OperationsDoc = "# uses `+"`backticks`"+`\nquery Tick { __typename }"`)
}

func TestRender_InvalidPackage(t *testing.T) {
	e := newEmitter()
	e.Package = "func"
	_, _, err := e.Render(testSchema(t), operations.Placeholder, descriptors(t, operations.Placeholder))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid package name")
}

func TestRender_CustomPackage(t *testing.T) {
	e := newEmitter()
	e.Package = "graph"
	source, _ := render(t, e, operations.Placeholder)
	assert.Contains(t, source, "package graph\n")
}

const unknownField = `query Bad { user(id: "1") { nope } }`

func TestRender_StrictFailsOnUnknownField(t *testing.T) {
	e := newEmitter()
	e.Validation = codegen.StrictnessStrict
	_, problems, err := e.Render(testSchema(t), unknownField, descriptors(t, unknownField))

	var validationErr *codegen.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.NotEmpty(t, validationErr.Problems)
	assert.Equal(t, problems, validationErr.Problems)
	assert.Contains(t, validationErr.Problems[0].Message, "nope")
	assert.Equal(t, 1, validationErr.Problems[0].Line)
}

func TestRender_WarnReportsUnknownField(t *testing.T) {
	source, warnings := render(t, newEmitter(), unknownField)
	require.NotEmpty(t, warnings)
	assert.Contains(t, warnings[0].Message, "nope")
	assert.Contains(t, squash(source), "Nope json.RawMessage `json:\"nope\"`")
}

func TestRender_OffEmitsUnknownFieldAsRaw(t *testing.T) {
	e := newEmitter()
	e.Validation = codegen.StrictnessOff
	source, warnings := render(t, e, unknownField)

	require.Len(t, warnings, 1)
	assert.Equal(t, "UnknownField", warnings[0].Rule)
	assert.Contains(t, squash(source), "Nope json.RawMessage `json:\"nope\"`")
}

func TestParseStrictness(t *testing.T) {
	for input, want := range map[string]codegen.Strictness{
		"":       codegen.StrictnessWarn,
		"warn":   codegen.StrictnessWarn,
		"OFF":    codegen.StrictnessOff,
		"strict": codegen.StrictnessStrict,
	} {
		got, err := codegen.ParseStrictness(input)
		require.NoError(t, err, input)
		assert.Equal(t, want, got, input)
	}

	_, err := codegen.ParseStrictness("loud")
	require.Error(t, err)
}

func TestEmit_WritesArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netlify", "functions", "netligraph", "netligraph.go")
	text := `query GetUser($id: ID!) { user(id: $id) { name } }`

	artifact, _, err := newEmitter().Emit(path, testSchema(t), text, descriptors(t, text))
	require.NoError(t, err)
	assert.Equal(t, path, artifact.Path)
	assert.Equal(t, []string{"GetUser"}, artifact.Functions)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, artifact.Source, written)
}

func TestEmit_ReplacesPreviousArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "netligraph.go")
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o644))

	_, _, err := newEmitter().Emit(path, testSchema(t), operations.Placeholder, descriptors(t, operations.Placeholder))
	require.NoError(t, err)

	written, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(written), "func PlaceholderQuery(")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files may be left behind")
}

func TestEmit_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netligraph.go")
	text := `query Users($role: Role) { users(role: $role) { id role } }`

	_, _, err := newEmitter().Emit(path, testSchema(t), text, descriptors(t, text))
	require.NoError(t, err)
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	_, _, err = newEmitter().Emit(path, testSchema(t), text, descriptors(t, text))
	require.NoError(t, err)
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEmit_WriteError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "netlify")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0o644))
	path := filepath.Join(blocker, "netligraph.go")

	artifact, _, err := newEmitter().Emit(path, testSchema(t), operations.Placeholder, descriptors(t, operations.Placeholder))
	assert.Nil(t, artifact)

	var writeErr *codegen.WriteError
	require.True(t, errors.As(err, &writeErr))
	assert.Equal(t, path, writeErr.Path)

	content, err := os.ReadFile(blocker)
	require.NoError(t, err)
	assert.Equal(t, "not a directory", string(content))
}

func TestEmit_StrictLeavesNoArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netligraph.go")
	e := newEmitter()
	e.Validation = codegen.StrictnessStrict

	_, _, err := e.Emit(path, testSchema(t), unknownField, descriptors(t, unknownField))
	require.Error(t, err)
	assert.NoFileExists(t, path)
}

func TestRender_UnsupportedScalarMapping(t *testing.T) {
	e := newEmitter()
	e.Scalars = map[string]string{"DateTime": "time.Time"}
	_, _, err := e.Render(testSchema(t), operations.Placeholder, descriptors(t, operations.Placeholder))
	assert.ErrorContains(t, err, "unsupported Go type")
}
