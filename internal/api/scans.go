package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scanhound/scanhound/internal/domain/scanning"
)

type scanRequest struct {
	RepositoryID      uuid.UUID         `json:"repository_id" validate:"required"`
	ScanType          scanning.ScanType `json:"scan_type" validate:"required,oneof=BASE INCREMENTAL"`
	LastScannedCommit string            `json:"last_scanned_commit" validate:"required"`
	IncrementNumber   int               `json:"increment_number" validate:"gte=0"`
}

func (s *Server) handleCreateScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req scanRequest
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

	scan := scanning.NewScan(req.RepositoryID, req.ScanType, req.LastScannedCommit, req.IncrementNumber)
	if err := s.scanStore.Create(ctx, scan); err != nil {
		s.logger.Error(ctx, "Failed to create scan", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusCreated, scan)
}

func (s *Server) handleGetScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	scan, err := s.scanStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Scan not found")
			return
		}
		s.logger.Error(ctx, "Failed to get scan", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, scan)
}

func (s *Server) handleListRepositoryScans(w http.ResponseWriter, r *http.Request) {
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

	scans, total, err := s.scanStore.ListByRepository(ctx, id, skip, limit)
	if err != nil {
		s.logger.Error(ctx, "Failed to list scans", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if scans == nil {
		scans = []scanning.Scan{}
	}

	respond(ctx, s.logger, w, http.StatusOK, paginated[scanning.Scan]{
		Data:       scans,
		TotalCount: total,
		Skip:       skip,
		Limit:      limit,
	})
}

func (s *Server) handleGetLastScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	scan, err := s.scanStore.LatestForRepository(ctx, id)
	if err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Scan not found")
			return
		}
		s.logger.Error(ctx, "Failed to get last scan", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, scan)
}
