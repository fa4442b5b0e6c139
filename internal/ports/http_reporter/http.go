package http_reporter

import (
	"encoding/json"
	"net/http"

	"github.com/yevheniidehtiar/sqlsmell/domain"
)

// NewHandler creates an HTTP handler that serves the collected SQL issues
// and endpoint metrics from the given store. It fetches a snapshot of the
// current state and serves it as a JSON response, so the handler itself
// never blocks capture.
func NewHandler(store domain.StoreReader) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// The snapshot from the store is already in a JSON-serializable format
		// with all the required fields and calculations done.
		snapshot := store.GetSnapshot()

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		enc := json.NewEncoder(w)
		if r.URL.Query().Has("pretty") {
			enc.SetIndent("", "  ")
		}
		if err := enc.Encode(snapshot); err != nil {
			// If encoding fails, it's a server-side problem.
			http.Error(w, "Failed to encode snapshot to JSON", http.StatusInternalServerError)
		}
	})
}
