// Package httputil centralizes JSON response writing and domain-error
// translation so handlers stay thin and error payloads stay consistent.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "idvet/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeBadRequest:        http.StatusBadRequest,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodeForbidden:         http.StatusForbidden,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeConflict:          http.StatusConflict,
	dErrors.CodeNotReady:          http.StatusConflict,
	dErrors.CodeUnsupportedFormat: http.StatusBadRequest,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps a domain error onto an HTTP status and JSON body. Internal
// errors omit the description so implementation details never leak to callers.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.GetCode(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	body := errorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			body.ErrorDescription = de.Message
		}
	}
	WriteJSON(w, status, body)
}
