package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/scanhound/scanhound/internal/domain/scanning"
)

type findingRequest struct {
	ScanID       uuid.UUID `json:"scan_id" validate:"required"`
	RuleName     string    `json:"rule_name" validate:"required"`
	FilePath     string    `json:"file_path" validate:"required"`
	LineNumber   int       `json:"line_number" validate:"gte=0"`
	CommitID     string    `json:"commit_id"`
	CommitAuthor string    `json:"commit_author"`
	Email        string    `json:"email"`
}

type findingStatusRequest struct {
	Status  scanning.FindingStatus `json:"status" validate:"required,oneof=NOT_ANALYZED TRUE_POSITIVE FALSE_POSITIVE UNDER_REVIEW CLARIFICATION_REQUIRED"`
	Comment string                 `json:"comment"`
}

func (s *Server) handleCreateFinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req findingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		respondValidationErrors(ctx, s.logger, w, err)
		return
	}

	// The referenced scan must exist.
	if _, err := s.scanStore.GetByID(ctx, req.ScanID); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Scan not found")
			return
		}
		s.logger.Error(ctx, "Failed to get scan", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	finding := scanning.NewFinding(req.ScanID, req.RuleName, req.FilePath, req.LineNumber, req.CommitID, req.CommitAuthor, req.Email)
	if err := s.findingStore.Create(ctx, finding); err != nil {
		s.logger.Error(ctx, "Failed to create finding", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusCreated, finding)
}

func (s *Server) handleGetFinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	finding, err := s.findingStore.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Finding not found")
			return
		}
		s.logger.Error(ctx, "Failed to get finding", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, finding)
}

// handleUpdateFindingStatus moves a finding through triage.
func (s *Server) handleUpdateFindingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	var req findingStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondDetail(ctx, s.logger, w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.validate.StructCtx(ctx, req); err != nil {
		respondValidationErrors(ctx, s.logger, w, err)
		return
	}

	if err := s.findingStore.UpdateStatus(ctx, id, req.Status, req.Comment); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Finding not found")
			return
		}
		s.logger.Error(ctx, "Failed to update finding", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	respond(ctx, s.logger, w, http.StatusOK, map[string]string{"status": string(req.Status)})
}

func (s *Server) handleDeleteFinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondDetail(ctx, s.logger, w, http.StatusUnprocessableEntity, "id must be a valid uuid")
		return
	}

	if err := s.findingStore.Delete(ctx, id); err != nil {
		if errors.Is(err, scanning.ErrNotFound) {
			respondDetail(ctx, s.logger, w, http.StatusNotFound, "Finding not found")
			return
		}
		s.logger.Error(ctx, "Failed to delete finding", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListScanFindings(w http.ResponseWriter, r *http.Request) {
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

	findings, total, err := s.findingStore.ListByScan(ctx, id, skip, limit)
	if err != nil {
		s.logger.Error(ctx, "Failed to list findings", "error", err)
		respondDetail(ctx, s.logger, w, http.StatusInternalServerError, "internal server error")
		return
	}
	if findings == nil {
		findings = []scanning.Finding{}
	}

	respond(ctx, s.logger, w, http.StatusOK, paginated[scanning.Finding]{
		Data:       findings,
		TotalCount: total,
		Skip:       skip,
		Limit:      limit,
	})
}
