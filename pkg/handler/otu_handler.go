package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/yumyai/swarmtable/logger"
	ggdb "github.com/yumyai/swarmtable/pkg/db"
	"github.com/yumyai/swarmtable/pkg/handler/request"
	"github.com/yumyai/swarmtable/pkg/middle"
	"github.com/yumyai/swarmtable/pkg/render"
	"go.uber.org/zap"
)

const (
	defaultPageSize   = 100
	maxPageSize       = 1000
	defaultPageNumber = 1
)

// Response struct to hold the payload and page number
type OTUsPayload struct {
	OTUs      interface{} `json:"otus"`
	Page      int         `json:"page"`
	TotalPage int         `json:"total_page"`
}

type OTUResponse struct {
	Success bool        `json:"success"`
	Payload interface{} `json:"payload,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func parsePositiveIntFallback(v string, fallback int) int {
	num, err := strconv.Atoi(v)
	if err != nil || num <= 0 {
		return fallback
	}
	return num
}

func normalizeOrderDir(raw string) string {
	switch strings.ToLower(raw) {
	case "desc":
		return "desc"
	default:
		return "asc"
	}
}

func writeJSON(w http.ResponseWriter, status int, response OTUResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// writeLookupError maps store errors to 404 or 500.
func writeLookupError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ggdb.OTUNotExists) {
		writeJSON(w, http.StatusNotFound, OTUResponse{Error: err.Error()})
		return
	}
	logLookupError(r, err)
	writeJSON(w, http.StatusInternalServerError, OTUResponse{Error: "failed to retrieve data"})
}

func logLookupError(r *http.Request, err error) {
	logger.Error("OTU lookup failed",
		zap.String("url", r.URL.Path),
		zap.String("request_id", middle.RequestID(r.Context())),
		zap.Error(err))
}

func (dbctx *DBContext) SamplesAPI(w http.ResponseWriter, r *http.Request) {

	samples, err := dbctx.Store.ListSamples(r.Context())
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OTUResponse{Success: true, Payload: samples})
}

// OTUListAPI lists OTUs page by page.
func (dbctx *DBContext) OTUListAPI(w http.ResponseWriter, r *http.Request) {

	pageSize := parsePositiveIntFallback(r.URL.Query().Get("page_size"), defaultPageSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	list_request := request.OTUListRequest{
		Order_By:  request.NewOTUField(r.URL.Query().Get("order_by")),
		Order_Dir: normalizeOrderDir(r.URL.Query().Get("order_dir")),
		Page:      parsePositiveIntFallback(r.URL.Query().Get("page"), defaultPageNumber),
		Page_Size: pageSize,
	}

	logger.Debug("Listing OTUs",
		zap.Int("page", list_request.Page),
		zap.Int("page_size", list_request.Page_Size),
		zap.String("order_by", list_request.Order_By.String()),
		zap.String("order_dir", list_request.Order_Dir))

	otus, err := dbctx.Store.ListOTUs(r.Context(), list_request)
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	rowNum, err := dbctx.Store.CountOTUs(r.Context())
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	totalPageNum := (rowNum + pageSize - 1) / pageSize // Rounding up

	writeJSON(w, http.StatusOK, OTUResponse{
		Success: true,
		Payload: OTUsPayload{OTUs: otus, Page: list_request.Page, TotalPage: totalPageNum},
	})
}

func (dbctx *DBContext) OTUAPI(w http.ResponseWriter, r *http.Request) {

	otu, err := dbctx.Store.GetOTU(r.Context(), r.PathValue("otu_name"))
	if err != nil {
		writeLookupError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, OTUResponse{Success: true, Payload: otu})
}

// OTUPage renders one OTU as HTML.
func (dbctx *DBContext) OTUPage(w http.ResponseWriter, r *http.Request) {

	otu, err := dbctx.Store.GetOTU(r.Context(), r.PathValue("otu_name"))
	if errors.Is(err, ggdb.OTUNotExists) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		logLookupError(r, err)
		http.Error(w, "Failed to retrieve data", http.StatusInternalServerError)
		return
	}

	if err := render.RenderOTUPage(w, otu, len(otu.Abundances)); err != nil {
		logger.Error(err.Error())
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// OTUFasta returns the representative sequence of one OTU.
func (dbctx *DBContext) OTUFasta(w http.ResponseWriter, r *http.Request) {

	otu, err := dbctx.Store.GetOTU(r.Context(), r.PathValue("otu_name"))
	if errors.Is(err, ggdb.OTUNotExists) {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err != nil {
		logLookupError(r, err)
		http.Error(w, "Failed to retrieve data", http.StatusInternalServerError)
		return
	}
	if otu.Sequence == "" {
		http.Error(w, "No representative sequence stored", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := render.WriteOTUFasta(w, otu); err != nil {
		logger.Error("Failed to write FASTA", zap.String("otu", otu.Name), zap.Error(err))
	}
}
