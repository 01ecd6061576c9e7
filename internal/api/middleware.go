package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// ErrorBody builds the JSON error body a route answers with for a failure
// message.
type ErrorBody func(message string) interface{}

// DetailErrorBody is the {"error": message} shape of the detail endpoint.
func DetailErrorBody(message string) interface{} {
	return map[string]string{"error": message}
}

// ListingErrorBody is the {"error", "detail"} shape of the listing endpoint.
func ListingErrorBody(message string) interface{} {
	return ListingErrorResponse{Error: msgScrapeFailed, Detail: message}
}

// RecoverJSON turns a panic in a scrape handler into a 500 whose body is
// built by body, so each route keeps its own error contract.
func RecoverJSON(logger *slog.Logger, body ErrorBody) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logger.Error("recovered from panic",
					"panic", rec,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)

				var message string
				switch v := rec.(type) {
				case error:
					message = v.Error()
				default:
					message = fmt.Sprint(v)
				}
				if message == "" {
					message = "Unknown error"
				}

				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusInternalServerError)
				if err := json.NewEncoder(w).Encode(body(message)); err != nil {
					logger.Error("failed to encode response", "error", err)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
