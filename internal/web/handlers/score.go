package handlers

import (
	"errors"
	"net/http"

	"github.com/areajoin/internal/normalize"
	"github.com/areajoin/internal/similarity"
)

// ScoreHandler compares two raw keys
type ScoreHandler struct {
	Cache *normalize.Cache
}

// ScoreResponse shows both normalized keys and their similarity
type ScoreResponse struct {
	AKey  string  `json:"a_key"`
	BKey  string  `json:"b_key"`
	Kind  string  `json:"kind"`
	Mode  string  `json:"mode"`
	Score float64 `json:"score"`
}

// Score handles GET /api/score?a=&b=&kind=&mode=
func (h *ScoreHandler) Score(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("kind") == "" || q.Get("mode") == "" {
		writeError(w, http.StatusBadRequest, errors.New("kind and mode are required"))
		return
	}

	kind, err := normalize.ParseKind(q.Get("kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mode, err := similarity.ParseMode(q.Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scorer, err := similarity.New(mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	a, b := h.key(q.Get("a"), kind), h.key(q.Get("b"), kind)
	writeJSON(w, http.StatusOK, ScoreResponse{
		AKey:  a,
		BKey:  b,
		Kind:  kind.String(),
		Mode:  mode.String(),
		Score: scorer.Score(a, b),
	})
}

func (h *ScoreHandler) key(raw string, kind normalize.Kind) string {
	if h.Cache != nil {
		return h.Cache.Key(raw, kind)
	}
	return normalize.Key(raw, kind)
}
