package web

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "github.com/louisbranch/metropole/internal/errors"
	"github.com/louisbranch/metropole/internal/storage"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code     string            `json:"code"`
	Message  string            `json:"message"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError renders a domain error as JSON with its mapped HTTP status.
// Unknown errors become opaque 500s so internals do not leak.
func writeError(w http.ResponseWriter, err error) {
	var domainErr *apperrors.Error
	if errors.As(err, &domainErr) {
		writeJSON(w, domainErr.Code.HTTPStatus(), errorBody{Error: errorDetail{
			Code:     string(domainErr.Code),
			Message:  domainErr.Message,
			Metadata: domainErr.Metadata,
		}})
		return
	}
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: errorDetail{
			Code:    string(apperrors.CodeNotFound),
			Message: "save not found",
		}})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
		Code:    string(apperrors.CodeUnknown),
		Message: "internal error",
	}})
}

func decodeJSON[T any](w http.ResponseWriter, r *http.Request) (T, bool) {
	var payload T
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: errorDetail{
			Code:    "INVALID_REQUEST",
			Message: "invalid request body: " + err.Error(),
		}})
		return payload, false
	}
	return payload, true
}
