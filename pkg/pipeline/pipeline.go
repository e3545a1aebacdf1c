// Package pipeline runs one generation: fetch the schema, read and parse the
// operations, derive function signatures and emit the artifact.
package pipeline

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"golang.org/x/sync/errgroup"

	"github.com/samwightt/gqlfunc/pkg/codegen"
	"github.com/samwightt/gqlfunc/pkg/config"
	"github.com/samwightt/gqlfunc/pkg/logging"
	"github.com/samwightt/gqlfunc/pkg/operations"
	"github.com/samwightt/gqlfunc/pkg/registry"
	"github.com/samwightt/gqlfunc/pkg/schema"
	"github.com/samwightt/gqlfunc/pkg/signature"
)

// State is a stage of a run. A run only moves forward and stops at
// StateEmitted or StateFailed.
type State string

const (
	StateStart            State = "start"
	StateSchemaFetched    State = "schema-fetched"
	StateOperationsLoaded State = "operations-loaded"
	StateParsed           State = "parsed"
	StateExtracted        State = "extracted-descriptors"
	StateEmitted          State = "emitted"
	StateFailed           State = "failed"
)

// BuildError is the single error a failed run reports. State is the last
// state reached before the failure.
type BuildError struct {
	State State
	Err   error
}

func (e *BuildError) Error() string {
	return "Error generating GraphQL functions: " + e.Err.Error()
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// Registry registers the site as an application and lists the services
// enabled on it.
type Registry interface {
	UpsertAppForSite(ctx context.Context, siteID string) (*registry.App, error)
	EnabledServices(ctx context.Context, appID string) ([]registry.Service, error)
}

// Deps are the collaborators of a run.
type Deps struct {
	Schema schema.Provider
	// Registry is optional. When set, the site is registered before the
	// schema is fetched.
	Registry Registry
	// Emitter is built from the configuration when nil.
	Emitter *codegen.Emitter
	Logger  *logrus.Logger
}

// NewDeps wires the default collaborators for cfg.
func NewDeps(cfg *config.Config, logger *logrus.Logger) Deps {
	deps := Deps{Logger: logger}
	if cfg.SchemaFile != "" {
		deps.Schema = schema.FileProvider{Path: cfg.SchemaFile}
		return deps
	}

	deps.Schema = schema.NewHTTPProvider(cfg.ServeURL, cfg.AuthToken)
	if cfg.SiteID != "" {
		deps.Registry = registry.NewClient(cfg.RegistryURL, cfg.AuthToken)
	}
	return deps
}

// Result describes a successful run.
type Result struct {
	State     State
	Artifact  *codegen.Artifact
	Functions []signature.FunctionDescriptor
	Warnings  []codegen.Warning
	// Placeholder reports whether the operations document was empty.
	Placeholder bool
}

type run struct {
	cfg    *config.Config
	deps   Deps
	log    *logrus.Logger
	state  State
	result *Result
}

// Run performs one generation. No artifact is written unless every earlier
// stage succeeded, and nothing is retried.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	r := &run{cfg: cfg, deps: deps, log: deps.Logger, state: StateStart, result: &Result{}}
	if r.log == nil {
		r.log = logging.Discard()
	}

	if err := r.execute(ctx); err != nil {
		r.log.WithFields(logging.Fields{"stage": r.state}).WithError(err).Debug("Generation failed")
		return nil, &BuildError{State: r.state, Err: err}
	}
	r.result.State = r.state
	return r.result, nil
}

// FetchSchema resolves the application and its services the way Run does and
// returns the schema, without touching operations or the artifact.
func FetchSchema(ctx context.Context, cfg *config.Config, deps Deps) (*ast.Schema, error) {
	r := &run{cfg: cfg, deps: deps, log: deps.Logger}
	if r.log == nil {
		r.log = logging.Discard()
	}
	if deps.Schema == nil {
		return nil, fmt.Errorf("no schema provider configured")
	}
	return r.fetchSchema(ctx)
}

func (r *run) advance(state State) {
	r.state = state
	r.log.WithFields(logging.Fields{"stage": state}).Debug("Stage reached")
}

func (r *run) execute(ctx context.Context) error {
	policy, err := r.cfg.EmptyPolicy()
	if err != nil {
		return err
	}
	if _, err := r.cfg.Strictness(); err != nil {
		return err
	}
	if r.deps.Schema == nil {
		return fmt.Errorf("no schema provider configured")
	}

	var (
		gqlSchema *ast.Schema
		document  *operations.Document
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := r.fetchSchema(gctx)
		if err != nil {
			return err
		}
		gqlSchema = s
		return nil
	})
	g.Go(func() error {
		d, err := operations.Store{Path: r.cfg.OperationsPath}.Load(policy)
		if err != nil {
			return err
		}
		document = d
		return nil
	})
	err = g.Wait()
	if gqlSchema != nil {
		r.advance(StateSchemaFetched)
	}
	if err != nil {
		return err
	}
	r.advance(StateOperationsLoaded)

	if document.Placeholder {
		r.result.Placeholder = true
		if policy == operations.EmptyWarn {
			r.warn(codegen.Warning{
				Message: fmt.Sprintf("operations document %s is empty, generating the %s placeholder", r.cfg.OperationsPath, operations.PlaceholderName),
				Rule:    "EmptyOperations",
			})
		}
	}

	doc, err := document.Parse()
	if err != nil {
		return err
	}
	r.advance(StateParsed)

	fns, err := signature.Extract(doc)
	if err != nil {
		return err
	}
	r.result.Functions = fns
	r.advance(StateExtracted)

	artifact, warnings, err := r.emitter().Emit(r.cfg.OutputPath, gqlSchema, document.Source, fns)
	for _, w := range warnings {
		r.warn(w)
	}
	if err != nil {
		return err
	}
	r.result.Artifact = artifact
	r.advance(StateEmitted)

	r.log.WithFields(logging.Fields{
		"stage":     StateEmitted,
		"path":      artifact.Path,
		"functions": len(artifact.Functions),
	}).Info("Generated GraphQL functions")
	return nil
}

func (r *run) fetchSchema(ctx context.Context) (*ast.Schema, error) {
	appID := r.cfg.AppID
	services := r.cfg.Services

	if r.deps.Registry != nil && r.cfg.SiteID != "" {
		app, err := r.deps.Registry.UpsertAppForSite(ctx, r.cfg.SiteID)
		if err != nil {
			return nil, err
		}
		if app.ID != "" {
			appID = app.ID
		}
		r.log.WithFields(logging.Fields{"app": appID}).Debug("Registered site")

		if len(services) == 0 {
			enabled, err := r.deps.Registry.EnabledServices(ctx, appID)
			if err != nil {
				return nil, err
			}
			services = registry.ServiceNames(enabled)
		}
	}

	r.log.WithFields(logging.Fields{"app": appID, "services": services}).Debug("Fetching schema")
	return r.deps.Schema.FetchSchema(ctx, appID, services)
}

func (r *run) emitter() *codegen.Emitter {
	if r.deps.Emitter != nil {
		return r.deps.Emitter
	}
	strictness, _ := r.cfg.Strictness()
	return &codegen.Emitter{
		Package:    r.cfg.Package,
		Endpoint:   r.cfg.Endpoint(),
		Scalars:    r.cfg.Scalars,
		Validation: strictness,
	}
}

func (r *run) warn(w codegen.Warning) {
	r.result.Warnings = append(r.result.Warnings, w)
	r.log.WithFields(logging.Fields{"stage": r.state, "rule": w.Rule}).Warn(w.String())
}
