package apperrors

import (
	"encoding/json"
	"net/http"
	"time"
)

// envelope is the uniform JSON error body returned by every boundary.
type envelope struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path"`
}

// WriteHTTP serializes err as the uniform error envelope. All error paths
// funnel through here so no component invents its own error shape.
func WriteHTTP(w http.ResponseWriter, r *http.Request, err error) {
	kind := KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(envelope{
		Success:   false,
		Error:     MessageOf(err),
		Code:      kind.Code(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Path:      r.URL.Path,
	})
}
