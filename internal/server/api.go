package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/samjhill/dream-companion/internal/analysis"
	"github.com/samjhill/dream-companion/internal/database"
	"github.com/samjhill/dream-companion/internal/dream"
)

// maxDreamBytes bounds the body of a stored dream.
const maxDreamBytes = 1 << 20

type dreamSummary struct {
	ID        string  `json:"id"`
	CreatedAt *string `json:"created_at"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleListDreams(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	dreams, err := s.db.GetDreams(r.Context(), user)
	if err != nil {
		s.internalError(w, "listing dreams", user, err)
		return
	}
	if len(dreams) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "No dreams found"})
		return
	}

	out := make([]dreamSummary, 0, len(dreams))
	for _, d := range dreams {
		out = append(out, dreamSummary{ID: d.ID, CreatedAt: d.CreatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetDream(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	d, err := s.db.GetDream(r.PathValue("id"))
	if err != nil {
		s.internalError(w, "reading dream", user, err)
		return
	}
	if d == nil || d.UserID != user {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Dream not found"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(d.Payload)
}

func (s *Server) handleDeleteDream(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	d, err := s.db.GetDream(r.PathValue("id"))
	if err != nil {
		s.internalError(w, "reading dream", user, err)
		return
	}
	if d == nil || d.UserID != user {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Dream not found"})
		return
	}

	err = s.db.DeleteDream(d.ID)
	if errors.Is(err, database.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Dream not found"})
		return
	}
	if err != nil {
		s.internalError(w, "deleting dream", user, err)
		return
	}
	s.logger.Info("dream deleted", zap.String("user", user), zap.String("id", d.ID))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateDream(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDreamBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Dream payload too large"})
		return
	}
	if _, err := dream.Decode(body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Dream payload must be a JSON object"})
		return
	}

	id, err := s.db.InsertDream(user, body, nil)
	if err != nil {
		s.internalError(w, "storing dream", user, err)
		return
	}
	s.logger.Info("dream stored", zap.String("user", user), zap.String("id", id))
	writeJSON(w, http.StatusCreated, map[string]string{"id": id})
}

func (s *Server) handleAdvanced(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	rep, err := s.engine.AnalyzeSource(r.Context(), s.source, user)
	if errors.Is(err, analysis.ErrNoDreams) {
		writeNoDreams(w)
		return
	}
	if err != nil {
		s.internalError(w, "analyzing dreams", user, err)
		return
	}
	s.saveReport(user, rep)
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleArchetypes(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	records, err := s.records(r, user)
	if err != nil {
		s.internalError(w, "loading dreams", user, err)
		return
	}
	view, err := s.engine.Recent(records)
	if errors.Is(err, analysis.ErrNoDreams) {
		writeNoDreams(w)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	records, err := s.records(r, user)
	if err != nil {
		s.internalError(w, "loading dreams", user, err)
		return
	}
	patterns, err := s.engine.Patterns(records)
	if errors.Is(err, analysis.ErrNoDreams) {
		writeNoDreams(w)
		return
	}
	writeJSON(w, http.StatusOK, patterns)
}

func (s *Server) handlePremiumStatus(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	st, err := s.premium.Status(user)
	if err != nil {
		s.logger.Error("reading premium status", zap.String("user", user), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to get premium status"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) records(r *http.Request, user string) ([]dream.Record, error) {
	records, skipped, err := s.source.Records(r.Context(), user)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		s.logger.Warn("skipped undecodable dreams", zap.String("user", user), zap.Int("skipped", skipped))
	}
	return records, nil
}

// saveReport persists rep. A failure is logged and does not fail the request.
func (s *Server) saveReport(user string, rep *analysis.Report) {
	data, err := json.Marshal(rep)
	if err == nil {
		_, err = s.db.InsertReport(user, rep.TotalDreams, rep.SkippedRecords, rep.LexiconVersion, data)
	}
	if err != nil {
		s.logger.Warn("saving report", zap.String("user", user), zap.Error(err))
	}
}

func (s *Server) internalError(w http.ResponseWriter, action, user string, err error) {
	s.logger.Error(action, zap.String("user", user), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
}

func writeNoDreams(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "No dreams found"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
