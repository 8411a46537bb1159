// Handler for miscellaneous endpoints such as health check

package handler

import (
	"encoding/json"
	"net/http"
	"time"
)

type HealthResponse struct {
	Health    string    `json:"health"`
	OTUs      int       `json:"otus"`
	Timestamp time.Time `json:"timestamp"`
}

// HealthCheck reports "ok" when the OTU store answers queries.
func (dbctx *DBContext) HealthCheck(w http.ResponseWriter, r *http.Request) {

	response := HealthResponse{
		Health:    "ok",
		Timestamp: time.Now(),
	}

	n, err := dbctx.Store.CountOTUs(r.Context())
	status := http.StatusOK
	if err != nil {
		response.Health = "unavailable"
		status = http.StatusServiceUnavailable
	}
	response.OTUs = n

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
