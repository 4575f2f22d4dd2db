package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/areajoin/internal/dataset"
)

// ExportHandler returns joined tables as CSV
type ExportHandler struct {
	Join *JoinHandler
}

// ExportData handles POST /api/export. The request body is the same as for
// /api/join; the response is the joined table as text/csv.
func (h *ExportHandler) ExportData(w http.ResponseWriter, r *http.Request) {
	req, res, err := h.Join.run(w, r)
	if err != nil {
		h.Join.fail(w, r, err)
		return
	}

	table := res.Table
	if req.Options.DropUnmatched {
		table, _ = dropUnmatched(res)
	}
	nullMarker := req.Options.NullMarker
	if nullMarker == "" {
		nullMarker = h.Join.Config.NullMarker
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="joined.csv"`)
	if err := dataset.WriteCSV(w, table, nullMarker); err != nil {
		// headers are gone, all we can do is log
		requestLogger(h.Join.Logger, r).Error("failed to write CSV export", zap.Error(err))
	}
}
