package utils

import (
	"encoding/json"
	"net/http"
)

// WriteJSONResponse sets the content type, writes the status code and
// encodes data as the response body. Encoding errors are unrecoverable at
// this point since the header is already flushed.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}
