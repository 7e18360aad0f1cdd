package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/mstanton/keepsake/internal/engine"
	"github.com/mstanton/keepsake/internal/store"
)

// memoryJSON is the wire shape of one memory.
type memoryJSON struct {
	ID              int64   `json:"id"`
	Content         string  `json:"content"`
	Keywords        string  `json:"keywords"`
	Context         string  `json:"context,omitempty"`
	Importance      float64 `json:"importance"`
	ImportanceLevel string  `json:"importance_level"`
	MemoryType      string  `json:"memory_type"`
	MemorySubtype   string  `json:"memory_subtype,omitempty"`
	IsPinned        bool    `json:"is_pinned"`
	CreatedAt       int64   `json:"created_at"`
	LastAccessed    *int64  `json:"last_accessed,omitempty"`
}

func toMemoryJSON(m *store.Memory) memoryJSON {
	return memoryJSON{
		ID:              m.ID,
		Content:         m.Content,
		Keywords:        m.Keywords,
		Context:         m.Context,
		Importance:      m.Importance,
		ImportanceLevel: m.ImportanceLevel,
		MemoryType:      m.MemoryType,
		MemorySubtype:   m.MemorySubtype,
		IsPinned:        m.IsPinned,
		CreatedAt:       m.CreatedAt,
		LastAccessed:    m.LastAccessed,
	}
}

// memoryID parses the {memoryID} URL parameter. Writes a 400 and returns
// false on garbage.
func memoryID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "memoryID"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, `{"error":"invalid memory id"}`, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (s *Server) handleCreateMemory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content       string  `json:"content"`
		Keywords      string  `json:"keywords"`
		Context       string  `json:"context"`
		Importance    float64 `json:"importance"`
		MemoryType    string  `json:"memory_type"`
		MemorySubtype string  `json:"memory_subtype"`
		IsPinned      bool    `json:"is_pinned"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		http.Error(w, `{"error":"content required"}`, http.StatusBadRequest)
		return
	}

	m := &store.Memory{
		Content:       req.Content,
		Keywords:      req.Keywords,
		Context:       req.Context,
		Importance:    req.Importance,
		MemoryType:    req.MemoryType,
		MemorySubtype: req.MemorySubtype,
		IsPinned:      req.IsPinned,
	}
	if err := s.engine.CreateMemory(r.Context(), m); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toMemoryJSON(m))
}

func (s *Server) handleListMemories(w http.ResponseWriter, r *http.Request) {
	memories, err := s.db.ListMemories(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	out := make([]memoryJSON, len(memories))
	for i := range memories {
		out[i] = toMemoryJSON(&memories[i])
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"memories": out,
	})
}

func (s *Server) handleGetMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := memoryID(w, r)
	if !ok {
		return
	}

	m, err := s.db.GetMemory(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, `{"error":"memory not found"}`, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toMemoryJSON(m))
}

func (s *Server) handleDeleteMemory(w http.ResponseWriter, r *http.Request) {
	id, ok := memoryID(w, r)
	if !ok {
		return
	}

	m, err := s.db.GetMemory(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}
	if m == nil {
		http.Error(w, `{"error":"memory not found"}`, http.StatusNotFound)
		return
	}

	if err := s.db.DeleteMemory(id); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
}

func (s *Server) handleCreateRelation(w http.ResponseWriter, r *http.Request) {
	id, ok := memoryID(w, r)
	if !ok {
		return
	}

	var req struct {
		RelatedMemoryID int64   `json:"related_memory_id"`
		Strength        float64 `json:"strength"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.RelatedMemoryID <= 0 {
		http.Error(w, `{"error":"related_memory_id required"}`, http.StatusBadRequest)
		return
	}

	rel, err := s.db.CreateRelation(id, req.RelatedMemoryID, req.Strength)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"id":                rel.ID,
		"memory_id":         rel.MemoryID,
		"related_memory_id": rel.RelatedMemoryID,
		"relation_strength": rel.RelationStrength,
	})
}

func (s *Server) handleListRelations(w http.ResponseWriter, r *http.Request) {
	id, ok := memoryID(w, r)
	if !ok {
		return
	}

	relations, err := s.db.ListRelations(id)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type relationJSON struct {
		ID               int64   `json:"id"`
		MemoryID         int64   `json:"memory_id"`
		RelatedMemoryID  int64   `json:"related_memory_id"`
		RelationStrength float64 `json:"relation_strength"`
		CreatedAt        int64   `json:"created_at"`
	}
	out := make([]relationJSON, len(relations))
	for i, rel := range relations {
		out[i] = relationJSON{rel.ID, rel.MemoryID, rel.RelatedMemoryID, rel.RelationStrength, rel.CreatedAt}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"memory_id": id,
		"count":     len(out),
		"relations": out,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserMessage      string `json:"user_message"`
		AssistantMessage string `json:"assistant_message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid json"}`, http.StatusBadRequest)
		return
	}
	if req.UserMessage == "" {
		http.Error(w, `{"error":"user_message required"}`, http.StatusBadRequest)
		return
	}

	m, err := s.engine.GenerateMemory(r.Context(), req.UserMessage, req.AssistantMessage)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if m == nil {
		json.NewEncoder(w).Encode(map[string]any{"created": false})
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"created": true,
		"memory":  toMemoryJSON(m),
	})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, `{"error":"q parameter required"}`, http.StatusBadRequest)
		return
	}

	rule, retrieve := engine.MatchRetrievalRule(query)
	excerpt := ""
	if retrieve {
		var err error
		excerpt, err = s.engine.SmartRetrieve(query)
		if err != nil {
			http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"query":     query,
		"rule":      rule,
		"retrieved": retrieve,
		"excerpt":   excerpt,
	})
}

func (s *Server) handleReviewTrigger(w http.ResponseWriter, r *http.Request) {
	session, err := s.engine.RunReview(r.Context(), store.TriggerManual)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"run_id":          session.RunID,
		"trigger_type":    session.TriggerType,
		"reviewed_count":  session.ReviewedCount,
		"forgotten_count": session.ForgottenCount,
		"unchanged_count": session.UnchangedCount,
	})
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	sessions, err := s.db.ListReviewSessions(limit)
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	type sessionJSON struct {
		RunID          string `json:"run_id"`
		Timestamp      int64  `json:"timestamp"`
		ReviewedCount  int    `json:"reviewed_count"`
		ForgottenCount int    `json:"forgotten_count"`
		UnchangedCount int    `json:"unchanged_count"`
		TriggerType    string `json:"trigger_type"`
	}
	out := make([]sessionJSON, len(sessions))
	for i, sess := range sessions {
		out[i] = sessionJSON{sess.RunID, sess.Timestamp, sess.ReviewedCount, sess.ForgottenCount, sess.UnchangedCount, sess.TriggerType}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"count":    len(out),
		"sessions": out,
	})
}

func (s *Server) handleOrganizeTrigger(w http.ResponseWriter, r *http.Request) {
	result, err := s.engine.TriggerOrganization(r.Context())
	if err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func (s *Server) handleCounterReset(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ResetMemoryCounter(); err != nil {
		http.Error(w, `{"error":"`+err.Error()+`"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "reset"})
}
