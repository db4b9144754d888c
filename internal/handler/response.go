package handler

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"quizhub/internal/middleware"
	apperrors "quizhub/pkg/errors"
	"quizhub/pkg/logger"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// APIResponse is the success envelope
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(APIResponse{Success: true, Data: data})
}

// respondError renders err as an AppError. Internal errors are logged with
// their cause; the client only sees the message.
func respondError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := apperrors.From(err)
	requestID := middleware.GetRequestID(r.Context())

	if appErr.Type == apperrors.ErrorTypeInternal {
		log.WithFields(map[string]interface{}{
			"path":       r.URL.Path,
			"request_id": requestID,
		}).WithError(err).Error("Request failed")
	}

	apperrors.WriteJSON(w, appErr, requestID)
}

// form reads a request body that is either JSON or an HTML form
type form struct {
	json   map[string]json.RawMessage
	values map[string][]string
}

func isJSON(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/json"
}

// parseForm decodes the body. JSON bodies must be an object.
func parseForm(w http.ResponseWriter, r *http.Request) (*form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if isJSON(r) {
		f := &form{json: map[string]json.RawMessage{}}
		if err := json.NewDecoder(r.Body).Decode(&f.json); err != nil {
			return nil, apperrors.NewValidationError("Invalid request body", nil)
		}
		return f, nil
	}

	if err := r.ParseForm(); err != nil {
		return nil, apperrors.NewValidationError("Invalid form body", nil)
	}
	return &form{values: r.PostForm}, nil
}

// String returns a scalar field
func (f *form) String(name string) string {
	if f.json != nil {
		raw, ok := f.json[name]
		if !ok {
			return ""
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		// numbers and booleans as their literal text
		return strings.Trim(string(raw), `"`)
	}
	if v, ok := f.values[name]; ok && len(v) > 0 {
		return v[0]
	}
	return ""
}

// Strings returns a repeated field. Forms may use name or name[].
func (f *form) Strings(name string) []string {
	if f.json != nil {
		raw, ok := f.json[name]
		if !ok {
			return nil
		}
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil
		}
		return list
	}
	if v, ok := f.values[name]; ok {
		return v
	}
	return f.values[name+"[]"]
}

// Bool returns a boolean field; anything unparseable is false
func (f *form) Bool(name string) bool {
	b, err := strconv.ParseBool(f.String(name))
	return err == nil && b
}

// isBrowserForm reports whether the client posted an HTML form and expects a redirect
func isBrowserForm(r *http.Request) bool {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return mediaType == "application/x-www-form-urlencoded" || mediaType == "multipart/form-data"
}
