package server

import (
	"encoding/json"
	"net/http"

	"github.com/ValentinKolb/dCouch/lib/query"
	"github.com/ValentinKolb/dCouch/lib/store"
	"github.com/ValentinKolb/dCouch/lib/view"
	"github.com/pkg/errors"
)

const (
	kindBadRequest = "bad_request"
	kindInternal   = "internal_error"
)

// errorBody is the body of every error response
type errorBody struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// translateError maps err to a status code and an error body.
func translateError(err error) (int, errorBody) {
	cause := errors.Cause(err)

	if e, ok := store.AsError(cause); ok {
		return e.Status(), errorBody{Error: string(e.Kind), Reason: e.Reason}
	}

	var usageErr *query.UsageError
	if errors.As(cause, &usageErr) {
		return http.StatusBadRequest, errorBody{Error: kindBadRequest, Reason: usageErr.Error()}
	}

	var viewErr *view.UnknownViewError
	if errors.As(cause, &viewErr) {
		return http.StatusInternalServerError, errorBody{Error: kindInternal, Reason: viewErr.Error()}
	}

	return http.StatusInternalServerError, errorBody{Error: kindInternal, Reason: err.Error()}
}

// handleError writes the error response for err
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := translateError(err)
	if status >= http.StatusInternalServerError {
		Logger.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
	} else {
		Logger.Debugf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	writeJSON(w, status, body)
}

// writeJSON writes body as JSON with the given status code
func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, err := json.Marshal(body)
	if err != nil {
		Logger.Errorf("failed to encode response: %v", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal_error","reason":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(data, '\n')); err != nil {
		Logger.Warningf("failed to write response: %v", err)
	}
}
