package app

import (
	"log/slog"

	"github.com/odyssey-erp/receivables/internal/odoo"
	"github.com/odyssey-erp/receivables/internal/receivables"
	"github.com/odyssey-erp/receivables/internal/receivables/export"
)

// NewReceivables builds the ERP client and the pipeline service on top of it.
// Pipeline events go to the logger and to every extra observer.
func NewReceivables(cfg *Config, logger *slog.Logger, extra ...receivables.Observer) (*odoo.Client, *receivables.Service) {
	client := odoo.NewClient(cfg.OdooConfig(), odoo.WithLogger(logger))
	observers := receivables.MultiObserver{receivables.NewLogObserver(logger)}
	for _, o := range extra {
		if o != nil {
			observers = append(observers, o)
		}
	}
	return client, receivables.NewService(client, cfg.ServiceOptions(observers))
}

// NewPDFExporter returns nil when no Gotenberg endpoint is configured.
func NewPDFExporter(cfg *Config) *export.PDFExporter {
	if cfg.GotenbergURL == "" {
		return nil
	}
	return &export.PDFExporter{Endpoint: cfg.GotenbergURL}
}
