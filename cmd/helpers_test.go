package cmd_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samwightt/gqlfunc/cmd"
	"github.com/stretchr/testify/require"
)

const testSchema = `
type User {
  id: ID!
  name: String!
  email: String!
  posts(first: Int = 10, after: String): [Post!]!
}

type Post {
  id: ID!
  title: String!
  author: User!
}

type Query {
  user(id: ID!): User
  users(limit: Int, offset: Int): [User!]!
  post(id: ID!): Post
}

type Mutation {
  createUser(name: String!, email: String!): User!
  updateUser(id: ID!, name: String, email: String): User
  deleteUser(id: ID!): Boolean!
}
`

const defaultOperations = "netlify/netligraph/operations.graphql"
const defaultOutput = "netlify/functions/netligraph/netligraph.go"

func isValidationError(err error) bool {
	return err != nil && errors.Is(err, cmd.ErrValidationFailed)
}

// setupProject moves into a fresh directory holding schema.graphql and, when
// operations is not empty, the default operations file.
func setupProject(t *testing.T, operations string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	for _, key := range []string{"SITE_ID", "NETLIFY_API_TOKEN", "GQLFUNC_APP_ID", "GQLFUNC_SITE_ID", "GQLFUNC_SCHEMA_FILE"} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}

	require.NoError(t, os.WriteFile("schema.graphql", []byte(testSchema), 0o644))
	if operations != "" {
		writeFile(t, defaultOperations, operations)
	}
	return dir
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
