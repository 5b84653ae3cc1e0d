// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/sigil-dev/churnmap/internal/metrics"
	"github.com/sigil-dev/churnmap/internal/split"
	"github.com/sigil-dev/churnmap/internal/store"
	cmerr "github.com/sigil-dev/churnmap/pkg/errors"
)

// RegisterServices sets the service dependencies and registers REST routes.
func (s *Server) RegisterServices(svc *Services) {
	s.services = svc
	s.registerRoutes()
}

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-project-metrics",
		Method:      http.MethodGet,
		Path:        "/api/v1/projects",
		Summary:     "Windowed metrics for every project",
		Tags:        []string{"metrics"},
	}, s.handleListProjects)

	huma.Register(s.api, huma.Operation{
		OperationID: "file-dependents",
		Method:      http.MethodPost,
		Path:        "/api/v1/files/dependents",
		Summary:     "Projects depending on each file",
		Tags:        []string{"metrics"},
	}, s.handleFileDependents)

	huma.Register(s.api, huma.Operation{
		OperationID: "estimated-load",
		Method:      http.MethodPost,
		Path:        "/api/v1/files/load",
		Summary:     "Estimated load of a file set",
		Tags:        []string{"metrics"},
	}, s.handleEstimatedLoad)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggest-split",
		Method:      http.MethodPost,
		Path:        "/api/v1/files/split",
		Summary:     "Suggest a two-way split of a file set",
		Tags:        []string{"split"},
	}, s.handleSuggestSplit)

	huma.Register(s.api, huma.Operation{
		OperationID: "store-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/status",
		Summary:     "Row counts of the graph store",
		Tags:        []string{"system"},
	}, s.handleStatus)
}

// --- Request/Response types for huma ---

type listProjectsInput struct {
	Window int `query:"window" doc:"Number of most recent commits; 0 uses the configured default"`
}

type listProjectsOutput struct {
	Body struct {
		Window           int                      `json:"window"`
		Commits          int                      `json:"commits" doc:"Commits in the window, touching an owned file or not"`
		Projects         []metrics.ProjectMetrics `json:"projects"`
		DegradedProjects []string                 `json:"degradedProjects" doc:"Projects whose dependents lookup failed"`
	}
}

type filesInput struct {
	Body struct {
		Files []string `json:"files" doc:"Repository-relative file paths"`
	}
}

type fileDependentsOutput struct {
	Body struct {
		Dependents map[string][]string `json:"dependents"`
	}
}

type estimatedLoadInput struct {
	Body struct {
		Files  []string `json:"files" doc:"Repository-relative file paths"`
		Window int      `json:"window,omitempty" doc:"Number of most recent commits; 0 uses the configured default"`
	}
}

type estimatedLoadOutput struct {
	Body struct {
		Load int `json:"load"`
	}
}

type suggestSplitInput struct {
	Body struct {
		Files         []string `json:"files" doc:"Repository-relative file paths"`
		Window        int      `json:"window,omitempty" doc:"Number of most recent commits; 0 uses the configured default"`
		Seed          uint64   `json:"seed,omitempty" doc:"Seed for the initial split; 0 uses the configured seed"`
		MaxIterations int      `json:"maxIterations,omitempty" doc:"Cap on applied moves; 0 uses the configured cap"`
	}
}

type suggestSplitOutput struct {
	Body split.Result
}

type statusOutput struct {
	Body store.TableCounts
}

// --- Handlers ---

func (s *Server) handleListProjects(ctx context.Context, input *listProjectsInput) (*listProjectsOutput, error) {
	if err := metrics.ValidateWindow(input.Window); err != nil {
		return nil, s.toHTTPError(ctx, "computing project metrics", err)
	}
	report, err := s.services.metrics.ProjectMetrics(ctx, input.Window)
	if err != nil {
		return nil, s.toHTTPError(ctx, "computing project metrics", err)
	}
	out := &listProjectsOutput{}
	out.Body.Window = report.Window
	out.Body.Commits = report.Commits
	out.Body.Projects = report.List()
	out.Body.DegradedProjects = report.DegradedProjects
	if out.Body.DegradedProjects == nil {
		out.Body.DegradedProjects = []string{}
	}
	return out, nil
}

func (s *Server) handleFileDependents(ctx context.Context, input *filesInput) (*fileDependentsOutput, error) {
	deps, err := s.services.metrics.FileDependents(ctx, input.Body.Files)
	if err != nil {
		return nil, s.toHTTPError(ctx, "looking up file dependents", err)
	}
	out := &fileDependentsOutput{}
	out.Body.Dependents = deps
	return out, nil
}

func (s *Server) handleEstimatedLoad(ctx context.Context, input *estimatedLoadInput) (*estimatedLoadOutput, error) {
	if err := metrics.ValidateWindow(input.Body.Window); err != nil {
		return nil, s.toHTTPError(ctx, "estimating load", err)
	}
	load, err := s.services.metrics.EstimatedLoad(ctx, input.Body.Files, input.Body.Window)
	if err != nil {
		return nil, s.toHTTPError(ctx, "estimating load", err)
	}
	out := &estimatedLoadOutput{}
	out.Body.Load = load
	return out, nil
}

func (s *Server) handleSuggestSplit(ctx context.Context, input *suggestSplitInput) (*suggestSplitOutput, error) {
	if err := metrics.ValidateWindow(input.Body.Window); err != nil {
		return nil, s.toHTTPError(ctx, "suggesting split", err)
	}
	if input.Body.MaxIterations < 0 {
		return nil, s.toHTTPError(ctx, "suggesting split",
			cmerr.New(cmerr.CodeServerRequestInvalid, "maxIterations must not be negative"))
	}

	opts := s.services.defaults
	opts.Window = input.Body.Window
	if input.Body.Seed != 0 {
		opts.Seed = input.Body.Seed
	}
	if input.Body.MaxIterations != 0 {
		opts.MaxIterations = input.Body.MaxIterations
	}

	res, err := s.services.splitter.Suggest(ctx, input.Body.Files, opts)
	if err != nil {
		return nil, s.toHTTPError(ctx, "suggesting split", err)
	}
	return &suggestSplitOutput{Body: *res}, nil
}

func (s *Server) handleStatus(ctx context.Context, _ *struct{}) (*statusOutput, error) {
	counts, err := s.services.status.Counts(ctx)
	if err != nil {
		return nil, s.toHTTPError(ctx, "reading store status", err)
	}
	return &statusOutput{Body: counts}, nil
}

// toHTTPError maps a coded error to the matching huma status error.
// Internal failures are logged and their detail withheld from the client.
func (s *Server) toHTTPError(ctx context.Context, op string, err error) error {
	status := cmerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, op+" failed", "error", err, "code", cmerr.CodeOf(err))
		return huma.Error500InternalServerError(op + " failed")
	}
	return huma.NewError(status, err.Error())
}
