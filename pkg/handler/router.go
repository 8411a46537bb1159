package handler

import (
	"net/http"
)

// NewRouter registers every route of the read-only OTU browser.
func NewRouter(dbctx *DBContext) *http.ServeMux {
	mux := http.NewServeMux()

	// Error route
	mux.HandleFunc("GET /favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not Found", http.StatusNotFound)
	})

	// Pages
	mux.HandleFunc("GET /otu/{otu_name}", dbctx.OTUPage)
	mux.HandleFunc("GET /otu/{otu_name}/fasta", dbctx.OTUFasta)

	// API routes
	mux.HandleFunc("GET /api/v1/health", dbctx.HealthCheck)
	mux.HandleFunc("GET /api/v1/samples", dbctx.SamplesAPI)
	mux.HandleFunc("GET /api/v1/otu", dbctx.OTUListAPI)
	mux.HandleFunc("GET /api/v1/otu/{otu_name}", dbctx.OTUAPI)

	return mux
}
