// Package httpio holds the JSON request and response helpers shared by the handlers.
package httpio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/chris/pi-settlement/pkg/api"
	"github.com/chris/pi-settlement/pkg/mapping"
	"github.com/chris/pi-settlement/pkg/settlement"
	"github.com/xeipuuv/gojsonschema"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// DecodeError is returned when a request body is missing, malformed or fails its schema.
type DecodeError struct {
	Details []string
}

func (e *DecodeError) Error() string {
	return "invalid request body: " + strings.Join(e.Details, "; ")
}

// MustSchema compiles a JSON schema and panics if it is invalid.
func MustSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid request schema: %v", err))
	}
	return s
}

// Decode validates the request body against schema and unmarshals it into dst.
func Decode(w http.ResponseWriter, r *http.Request, schema *gojsonschema.Schema, dst any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		return &DecodeError{Details: []string{err.Error()}}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return &DecodeError{Details: []string{"request body is required"}}
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &DecodeError{Details: []string{err.Error()}}
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return &DecodeError{Details: details}
	}

	if err := json.Unmarshal(body, dst); err != nil {
		return &DecodeError{Details: []string{err.Error()}}
	}
	return nil
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

// Error writes an error body.
func Error(w http.ResponseWriter, status int, msg, details string) {
	resp := api.ErrorResponse{Error: msg}
	if details != "" {
		resp.Details = &details
	}
	JSON(w, status, resp)
}

// BadRequest writes a 400 for a body that could not be decoded.
func BadRequest(w http.ResponseWriter, err error) {
	var de *DecodeError
	if errors.As(err, &de) {
		Error(w, http.StatusBadRequest, "Invalid request body", strings.Join(de.Details, "; "))
		return
	}
	Error(w, http.StatusBadRequest, "Invalid request body", err.Error())
}

// ErrorBody maps an error returned by the settlement service to a status and body.
func ErrorBody(err error) (int, *api.ErrorResponse) {
	var se *settlement.Error
	if errors.As(err, &se) {
		return se.HTTPStatus(), mapping.ToApiError(se)
	}
	details := err.Error()
	return http.StatusInternalServerError, &api.ErrorResponse{Error: "Internal server error", Details: &details}
}

// BearerToken returns the bearer token of the Authorization header, if any.
func BearerToken(r *http.Request) string {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.TrimSpace(auth[7:])
	}
	return ""
}
