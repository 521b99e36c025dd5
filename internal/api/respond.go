package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"pharmacy/m/domain"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads a typed request body, rejecting unknown fields, and
// validates it. Every failure is a *domain.ValidationError.
func (h *Handler) decodeJSON(r *http.Request, dest interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return &domain.ValidationError{Reason: "request body is required"}
		}
		return &domain.ValidationError{Reason: "malformed request body: " + err.Error()}
	}
	if err := h.validate.Struct(dest); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fieldError(fieldErrs[0])
		}
		return &domain.ValidationError{Reason: err.Error()}
	}
	return nil
}

func fieldError(fe validator.FieldError) *domain.ValidationError {
	reason := "is invalid"
	switch fe.Tag() {
	case "required":
		reason = "is required"
	case "gt":
		reason = "must be greater than " + fe.Param()
	case "gte":
		reason = "must be at least " + fe.Param()
	case "max":
		reason = "must be at most " + fe.Param() + " characters"
	case "lte":
		reason = "must be at most " + fe.Param()
	case "oneof":
		reason = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	}
	return &domain.ValidationError{Field: fe.Field(), Reason: reason}
}

func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: "must be a positive integer"}
	}
	return id, nil
}

// respondErr maps domain errors to status codes. Anything unexpected is
// logged and hidden behind a generic message.
func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	var dep *domain.DependentRecordsError
	switch {
	case errors.As(err, &dep):
		respondJSON(w, http.StatusBadRequest, map[string]any{"error": dep.Error(), "count": dep.Count})
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrDuplicateUsername),
		errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrSelfDeletion):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error())
	case errors.Is(err, domain.ErrForbidden):
		respondError(w, http.StatusForbidden, domain.ErrForbidden.Error())
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	_ = encoder.Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondMessage(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, map[string]string{"message": message})
}
