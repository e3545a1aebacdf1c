package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/samwightt/gqlfunc/pkg/logging"
	"github.com/samwightt/gqlfunc/pkg/operations"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, DefaultOperationsPath, cfg.OperationsPath)
	assert.Equal(t, DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, "netligraph", cfg.Package)
	assert.Equal(t, "https://serve.onegraph.com", cfg.ServeURL)
	assert.Equal(t, "https://serve.onegraph.com/graphql", cfg.RegistryURL)
	assert.Empty(t, cfg.Services)

	policy, err := cfg.EmptyPolicy()
	require.NoError(t, err)
	assert.Equal(t, operations.EmptyPlaceholder, policy)

	strictness, err := cfg.Strictness()
	require.NoError(t, err)
	assert.Equal(t, codegen.StrictnessWarn, strictness)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := `
app_id: app-1
services:
  - github
  - stripe
package: graph
validation: strict
scalars:
  DateTime: string
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gqlfunc.yaml"), []byte(content), 0o644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "app-1", cfg.AppID)
	assert.Equal(t, []string{"github", "stripe"}, cfg.Services)
	assert.Equal(t, "graph", cfg.Package)
	assert.Equal(t, "strict", cfg.Validation)
	assert.Equal(t, "string", cfg.Scalars["datetime"], "viper lowercases map keys")
}

func TestLoad_ExplicitFileMissing(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestLoad_Environment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SITE_ID", "site-9")
	t.Setenv("NETLIFY_API_TOKEN", "secret")
	t.Setenv("GQLFUNC_SERVICES", "github,npm")
	t.Setenv("GQLFUNC_OUTPUT_PATH", "out/gen.go")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "site-9", cfg.SiteID)
	assert.Equal(t, "site-9", cfg.AppID, "app id falls back to the site id")
	assert.Equal(t, "secret", cfg.AuthToken)
	assert.Equal(t, []string{"github", "npm"}, cfg.Services)
	assert.Equal(t, "out/gen.go", cfg.OutputPath)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("SITE_ID", "site-9")
	t.Setenv("GQLFUNC_SITE_ID", "site-1")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, "site-1", cfg.SiteID)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.ErrorContains(t, cfg.Validate(), "no application")

	cfg.SchemaFile = "schema.graphql"
	assert.NoError(t, cfg.Validate())

	cfg.EmptyOperations = "sometimes"
	assert.ErrorContains(t, cfg.Validate(), "invalid empty operations policy")

	cfg = Default()
	cfg.AppID = "app"
	cfg.Validation = "loose"
	assert.ErrorContains(t, cfg.Validate(), "invalid validation level")
}

func TestEndpoint(t *testing.T) {
	cfg := Default()
	cfg.AppID = "a b&c"
	assert.Equal(t, "https://serve.onegraph.com/graphql?app_id=a+b%26c", cfg.Endpoint())
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("GQLFUNC_TEST_ONLY=from-file\nGQLFUNC_TEST_KEPT=from-file\n"), 0o644))
	t.Setenv("GQLFUNC_TEST_KEPT", "from-process")
	t.Setenv("GQLFUNC_TEST_ONLY", "")
	os.Unsetenv("GQLFUNC_TEST_ONLY")

	LoadEnv(logging.Discard())

	assert.Equal(t, "from-file", os.Getenv("GQLFUNC_TEST_ONLY"))
	assert.Equal(t, "from-process", os.Getenv("GQLFUNC_TEST_KEPT"))
}

func TestLoadEnv_NoFiles(t *testing.T) {
	t.Chdir(t.TempDir())
	assert.NotPanics(t, func() { LoadEnv(logging.Discard()) })
}
