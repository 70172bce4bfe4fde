package fakebackend

import (
	"net/http"
	"strconv"
)

var minimalPDF = []byte("%PDF-1.4\n1 0 obj << /Type /Catalog /Pages 2 0 R >> endobj\n" +
	"2 0 obj << /Type /Pages /Kids [] /Count 0 >> endobj\n" +
	"trailer << /Root 1 0 R >>\n%%EOF\n")

func (s *Server) handleExportOrders(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, s.ordersCSV, "text/csv", "orders.csv", "No orders to export")
}

func (s *Server) handleExportInspections(w http.ResponseWriter, r *http.Request) {
	s.serveFile(w, s.inspectionsPDF, "application/pdf", "inspections.pdf", "No inspections to export")
}

func (s *Server) serveFile(w http.ResponseWriter, data []byte, contentType, filename, emptyDetail string) {
	if len(data) == 0 {
		writeDetail(w, http.StatusNotFound, emptyDetail)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
