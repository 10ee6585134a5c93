package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MyBusinesspace/MBP-sub007/internal/apperrors"
	"github.com/MyBusinesspace/MBP-sub007/internal/models"
)

const maxBodyBytes = 1 << 20

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    apperrors.Code  `json:"code"`
	Message string          `json:"message"`
	Session *models.Session `json:"session,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error onto its HTTP status. Internal causes are
// not echoed to clients.
func writeError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	detail := errorDetail{Code: code, Message: err.Error()}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		detail.Message = appErr.Message
		if sess, ok := appErr.Record.(*models.Session); ok {
			detail.Session = sess
		}
	}
	if code == apperrors.CodeInternal {
		detail.Message = "internal error"
	}

	writeJSON(w, code.HTTPStatus(), errorBody{Error: detail})
}

// decodeJSON reads an optional JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperrors.Wrap(apperrors.CodeInvalidRequest, "malformed JSON body", err)
	}
	return nil
}
