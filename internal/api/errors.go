package api

import (
	"encoding/json"
	"net/http"
)

// maxBodySize caps request bodies at 1 MiB. Chat messages are limited far
// below this by policy; the cap guards the JSON decoder itself.
const maxBodySize = 1 << 20

// errorEnvelope is the error shape every endpoint returns: a machine-readable
// code and a human-readable message under a single "error" key.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, errorEnvelope{Error: errorDetail{Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing the body size cap.
func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodySize))
	return dec.Decode(v)
}
