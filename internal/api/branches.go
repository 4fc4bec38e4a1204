package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scanhound/scanhound/internal/domain/scanning"
)

type branchRequest struct {
	RepositoryID uuid.UUID `json:"repository_id" validate:"required"`
	BranchID     string    `json:"branch_id" validate:"required"`
	BranchName   string    `json:"branch_name" validate:"required"`
	LatestCommit string    `json:"latest_commit" validate:"required"`
}

func (s *Server) handleCreateBranch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req branchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		respondValidationErrors(ctx, s.logger, w, err)
		return
	}

	// The referenced repository must exist.
	if _, err := s.repoStore.GetByID(ctx, req.RepositoryID); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Repository not found")
			return
		}
		s.logger.Error(ctx, "Failed to get repository", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	branch := scanning.NewBranch(req.RepositoryID, req.BranchID, req.BranchName, req.LatestCommit)
	if err := s.branchStore.Create(ctx, branch); err != nil {
		s.logger.Error(ctx, "Failed to create branch", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusCreated, branch)
}

func (s *Server) handleGetBranch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	branch, err := s.branchStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Branch not found")
			return
		}
		s.logger.Error(ctx, "Failed to get branch", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, branch)
}

func (s *Server) handleDeleteBranch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	if err := s.branchStore.Delete(ctx, id); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Branch not found")
			return
		}
		s.logger.Error(ctx, "Failed to delete branch", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListRepositoryBranches(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	skip, limit, err := parsePagination(r)
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	branches, total, err := s.branchStore.ListByRepository(ctx, id, skip, limit)
	if err != nil {
		s.logger.Error(ctx, "Failed to list branches", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if branches == nil {
		branches = []scanning.Branch{}
	}

	respond(ctx, s.logger, w, http.StatusOK, paginated[scanning.Branch]{
		Data:       branches,
		TotalCount: total,
		Skip:       skip,
		Limit:      limit,
	})
}
