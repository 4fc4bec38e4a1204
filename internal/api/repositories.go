package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scanhound/scanhound/internal/domain/repository"
	"github.com/scanhound/scanhound/internal/domain/scanning"
)

// repositoryRequest is the mutable subset of a repository accepted on create
// and update.
type repositoryRequest struct {
	ProjectKey      string `json:"project_key" validate:"required"`
	RepositoryID    string `json:"repository_id" validate:"required"`
	RepositoryName  string `json:"repository_name" validate:"required"`
	RepositoryURL   string `json:"repository_url" validate:"required,url"`
	VCSInstanceName string `json:"vcs_instance" validate:"required"`
}

func (s *Server) handleListRepositories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	skip, limit, err := parsePagination(r)
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	repos, total, err := s.repoStore.List(ctx, skip, limit)
	if err != nil {
		s.logger.Error(ctx, "Failed to list repositories", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if repos == nil {
		repos = []scanning.Repository{}
	}

	respond(ctx, s.logger, w, http.StatusOK, paginated[scanning.Repository]{
		Data:       repos,
		TotalCount: total,
		Skip:       skip,
		Limit:      limit,
	})
}

func (s *Server) handleCreateRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req repositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		respondValidationErrors(ctx, s.logger, w, err)
		return
	}

	repo := scanning.NewRepository(req.ProjectKey, req.RepositoryID, req.RepositoryName, req.RepositoryURL, req.VCSInstanceName)
	if err := s.repoStore.Create(ctx, repo); err != nil {
		s.logger.Error(ctx, "Failed to create repository", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusCreated, repo)
}

func (s *Server) handleGetRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	repo, err := s.repoStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Repository not found")
			return
		}
		s.logger.Error(ctx, "Failed to get repository", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, repo)
}

func (s *Server) handleUpdateRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	var req repositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		respondValidationErrors(ctx, s.logger, w, err)
		return
	}

	repo := &scanning.Repository{
		ID:              id,
		ProjectKey:      req.ProjectKey,
		RepositoryID:    req.RepositoryID,
		RepositoryName:  req.RepositoryName,
		RepositoryURL:   req.RepositoryURL,
		VCSInstanceName: req.VCSInstanceName,
	}
	if err := s.repoStore.Update(ctx, repo); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Repository not found")
			return
		}
		s.logger.Error(ctx, "Failed to update repository", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, repo)
}

func (s *Server) handleDeleteRepository(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	if err := s.repoStore.Delete(ctx, id); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Repository not found")
			return
		}
		s.logger.Error(ctx, "Failed to delete repository", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleDistinctProjects returns the distinct project keys of active
// repositories, optionally filtered by instance name and repository-name
// substring.
func (s *Server) handleDistinctProjects(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := scanning.DistinctFilter{
		VCSInstanceNames: r.URL.Query()["vcsinstance"],
		NameContains:     r.URL.Query().Get("repositoryfilter"),
	}
	projects, err := s.repoStore.DistinctProjects(ctx, filter)
	if err != nil {
		s.logger.Error(ctx, "Failed to list distinct projects", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if projects == nil {
		projects = []string{}
	}

	respond(ctx, s.logger, w, http.StatusOK, projects)
}

// handleDistinctRepositories returns the distinct repository names of active
// repositories, optionally filtered by instance name and project-key
// substring.
func (s *Server) handleDistinctRepositories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter := scanning.DistinctFilter{
		VCSInstanceNames: r.URL.Query()["vcsinstance"],
		NameContains:     r.URL.Query().Get("projectfilter"),
	}
	names, err := s.repoStore.DistinctRepositories(ctx, filter)
	if err != nil {
		s.logger.Error(ctx, "Failed to list distinct repositories", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if names == nil {
		names = []string{}
	}

	respond(ctx, s.logger, w, http.StatusOK, names)
}

// handleReportActiveRepositories ingests a collector's active-set report and
// reconciles stored rows against it.
func (s *Server) handleReportActiveRepositories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var report repository.ActiveRepositories
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if report.ProjectKey == "" || report.VCSInstanceName == "" {
		respond(ctx, s.logger, w, http.StatusUnprocessableEntity, validationResponse{Detail: []fieldError{
			{Field: "project_key", Error: "required"},
			{Field: "vcs_instance_name", Error: "required"},
		}})
		return
	}

	active := make([]scanning.ActiveRepository, 0, len(report.Repositories))
	for _, sr := range report.Repositories {
		active = append(active, scanning.ActiveRepository{
			RepositoryID:   sr.ID,
			RepositoryName: sr.Name,
		})
	}

	deactivated, err := s.repoStore.SyncActiveSet(ctx, report.ProjectKey, report.VCSInstanceName, active)
	if err != nil {
		s.logger.Error(ctx, "Failed to sync active repositories", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	s.logger.Info(ctx, "Synced active repositories",
		"project_key", report.ProjectKey,
		"vcs_instance", report.VCSInstanceName,
		"reported", len(active),
		"deactivated", deactivated,
	)
	respond(ctx, s.logger, w, http.StatusOK, map[string]int64{"deactivated": deactivated})
}
