// Package export downloads the admin data exports
package export

import (
	"context"
	"fmt"

	"github.com/jrsteele09/beetrack-client/internal/routes"
	"github.com/jrsteele09/beetrack-client/transport"
)

const (
	defaultOrdersFilename      = "orders.csv"
	defaultInspectionsFilename = "inspections.pdf"
)

// Exporter fetches export files. Both endpoints are admin only.
type Exporter struct {
	client *transport.Client
}

func New(client *transport.Client) *Exporter {
	return &Exporter{client: client}
}

func (e *Exporter) OrdersCSV(ctx context.Context) (*transport.Blob, error) {
	return e.fetch(ctx, routes.ExportOrdersCSV, defaultOrdersFilename)
}

func (e *Exporter) InspectionsPDF(ctx context.Context) (*transport.Blob, error) {
	return e.fetch(ctx, routes.ExportInspectionsPDF, defaultInspectionsFilename)
}

// fetch falls back to defaultName when the backend sends no filename
func (e *Exporter) fetch(ctx context.Context, path, defaultName string) (*transport.Blob, error) {
	blob, err := e.client.GetBlob(ctx, path, nil)
	if err != nil {
		return nil, fmt.Errorf("[Exporter] %s: %w", path, err)
	}
	if blob.Filename == "" {
		blob.Filename = defaultName
	}
	return blob, nil
}
