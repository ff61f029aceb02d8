package receivableshttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/receivables/internal/platform/httpx"
)

// MountRoutes registers the receivables API onto the router. Exports are
// rate limited per client IP.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.exportRate, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, http.StatusText(http.StatusTooManyRequests), "export rate limit exceeded")
		}),
	)

	r.Get("/kpis", h.handleKPIs)
	r.Get("/reports/top15", h.handleTop)
	r.Get("/reports/top15/details", h.handleTopDetails)
	r.Get("/reports/data", h.handleReportData)
	r.Get("/erp/ping", h.handlePing)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/top15/details.csv", h.handleTopDetailsCSV)
		gr.Get("/reports/export.xlsx", h.handleReportXLSX)
		gr.Get("/reports/dashboard.pdf", h.handleDashboardPDF)
	})
}
