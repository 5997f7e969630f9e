// Package httpapi holds small HTTP helpers shared by the master and
// secondary JSON APIs: request decoding and a uniform error body.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
)

// DecodeJSON decodes the request body into v, wrapping decode failures so
// callers can tell a malformed request apart from a validation error.
func DecodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}

// WriteJSON writes v as a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a 4xx/5xx JSON error body of the form {"error": msg}.
func WriteError(w http.ResponseWriter, status int, err error) {
	WriteJSON(w, status, map[string]string{"error": err.Error()})
}
