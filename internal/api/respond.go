package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/scanhound/scanhound/pkg/common/logger"
)

const (
	defaultPageLimit = 100
	maxPageLimit     = 500
)

// paginated is the envelope for list responses.
type paginated[T any] struct {
	Data       []T   `json:"data"`
	TotalCount int64 `json:"total_count"`
	Skip       int   `json:"skip"`
	Limit      int   `json:"limit"`
}

// detailResponse carries a single human-readable error message.
type detailResponse struct {
	Detail string `json:"detail"`
}

// fieldError describes one invalid request field.
type fieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// validationResponse carries per-field validation failures.
type validationResponse struct {
	Detail []fieldError `json:"detail"`
}

func respond(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error(ctx, "Failed to encode response", "error", err)
	}
}

func respondDetail(ctx context.Context, log *logger.Logger, w http.ResponseWriter, status int, detail string) {
	respond(ctx, log, w, status, detailResponse{Detail: detail})
}

// respondValidationErrors translates validator failures into a structured
// field-error list with a 422 status.
func respondValidationErrors(ctx context.Context, log *logger.Logger, w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		respondDetail(ctx, log, w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	fields := make([]fieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldError{Field: fe.Field(), Error: fe.Tag()})
	}
	respond(ctx, log, w, http.StatusUnprocessableEntity, validationResponse{Detail: fields})
}

// parsePagination reads skip/limit query parameters. Skip must be
// non-negative and limit between 1 and the page cap.
func parsePagination(r *http.Request) (skip, limit int, err error) {
	skip, limit = 0, defaultPageLimit

	if v := r.URL.Query().Get("skip"); v != "" {
		skip, err = strconv.Atoi(v)
		if err != nil || skip < 0 {
			return 0, 0, errors.New("skip must be a non-negative integer")
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 1 || limit > maxPageLimit {
			return 0, 0, errors.New("limit must be an integer between 1 and 500")
		}
	}
	return skip, limit, nil
}
