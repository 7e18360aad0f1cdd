package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

// Review actions and forget strategies, as returned by the evaluator.
const (
	actionReview    = "review"
	actionForget    = "forget"
	actionUnchanged = "unchanged"

	strategyDelete    = "delete"
	strategyDowngrade = "downgrade"
)

const downgradeStep = 0.2

// reviewCandidate is the compact memory description sent to the evaluator.
type reviewCandidate struct {
	ID              int64   `json:"id"`
	Content         string  `json:"content"`
	Keywords        string  `json:"keywords"`
	Importance      float64 `json:"importance"`
	ImportanceLevel string  `json:"importance_level"`
	MemoryType      string  `json:"memory_type"`
	MemorySubtype   string  `json:"memory_subtype,omitempty"`
	CreatedAt       int64   `json:"created_at"`
	LastAccessed    *int64  `json:"last_accessed,omitempty"`
}

// reviewDecision is one evaluator verdict. MemoryID is left untyped because
// models return ids as numbers or strings interchangeably; validation
// normalizes it.
type reviewDecision struct {
	MemoryID       any    `json:"memory_id"`
	Action         string `json:"action"`
	ForgetStrategy string `json:"forget_strategy,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// appliedDecision is what gets persisted into the session's details JSON.
type appliedDecision struct {
	MemoryID       int64  `json:"memory_id"`
	Action         string `json:"action"`
	ForgetStrategy string `json:"forget_strategy,omitempty"`
	Reason         string `json:"reason,omitempty"`
}

// decisionID normalizes an evaluator-supplied memory id. Returns an error
// for missing, non-numeric, or non-positive ids.
func decisionID(raw any) (int64, error) {
	switch v := raw.(type) {
	case float64:
		id := int64(v)
		if float64(id) != v || id <= 0 {
			return 0, fmt.Errorf("invalid memory id %v", v)
		}
		return id, nil
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("invalid memory id %q", v)
		}
		return id, nil
	case nil:
		return 0, fmt.Errorf("missing memory id")
	default:
		return 0, fmt.Errorf("invalid memory id type %T", raw)
	}
}

// RunReview executes one review pass: collect due candidates, have the LLM
// evaluate them, apply the verdicts, and persist an append-only session
// record. Per-item failures are logged and skipped; they never abort the
// batch. An unparsable evaluator response defaults the entire batch to
// unchanged so a malformed model answer can never cause mass deletion.
func (e *Engine) RunReview(ctx context.Context, trigger string) (*store.ReviewSession, error) {
	cutoff := e.Now().Add(-e.ReviewDueAfter).UnixMilli()
	candidates, err := e.Store.DueForReview(cutoff, e.ReviewBatchSize)
	if err != nil {
		return nil, fmt.Errorf("collect review candidates: %w", err)
	}

	session := &store.ReviewSession{
		Timestamp:   e.Now().UnixMilli(),
		TriggerType: trigger,
	}

	if len(candidates) == 0 {
		if err := e.Store.CreateReviewSession(session); err != nil {
			return nil, fmt.Errorf("persist review session: %w", err)
		}
		log.Printf("review (%s): nothing due", trigger)
		return session, nil
	}

	decisions := e.evaluate(ctx, candidates)

	byID := make(map[int64]*store.Memory, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	var applied []appliedDecision
	for _, d := range decisions {
		id, err := decisionID(d.MemoryID)
		if err != nil {
			log.Printf("review: dropping decision: %v", err)
			continue
		}

		record := appliedDecision{MemoryID: id, Action: d.Action, ForgetStrategy: d.ForgetStrategy, Reason: d.Reason}
		switch d.Action {
		case actionReview:
			if err := e.Store.TouchMemory(id); err != nil {
				log.Printf("review: reinforce %d: %v", id, err)
				continue
			}
			session.ReviewedCount++
		case actionForget:
			if err := e.applyForget(id, d.ForgetStrategy, byID[id]); err != nil {
				log.Printf("review: forget %d: %v", id, err)
				continue
			}
			session.ForgottenCount++
		case actionUnchanged:
			session.UnchangedCount++
		default:
			log.Printf("review: dropping decision for %d: unknown action %q", id, d.Action)
			continue
		}
		applied = append(applied, record)
	}

	if details, err := json.Marshal(applied); err == nil {
		session.Details = string(details)
	}

	if err := e.Store.CreateReviewSession(session); err != nil {
		return nil, fmt.Errorf("persist review session: %w", err)
	}

	log.Printf("review (%s): %d reinforced, %d forgotten, %d unchanged",
		trigger, session.ReviewedCount, session.ForgottenCount, session.UnchangedCount)
	return session, nil
}

// evaluate sends candidates to the LLM and parses its verdicts. Any failure
// — transport, parse, empty — collapses to all-unchanged.
func (e *Engine) evaluate(ctx context.Context, candidates []store.Memory) []reviewDecision {
	unchanged := func(reason string) []reviewDecision {
		decisions := make([]reviewDecision, len(candidates))
		for i, m := range candidates {
			decisions[i] = reviewDecision{MemoryID: float64(m.ID), Action: actionUnchanged, Reason: reason}
		}
		return decisions
	}

	if e.LLM == nil {
		return unchanged("no evaluator configured")
	}

	compact := make([]reviewCandidate, len(candidates))
	for i, m := range candidates {
		compact[i] = reviewCandidate{
			ID:              m.ID,
			Content:         m.Content,
			Keywords:        m.Keywords,
			Importance:      m.Importance,
			ImportanceLevel: m.ImportanceLevel,
			MemoryType:      m.MemoryType,
			MemorySubtype:   m.MemorySubtype,
			CreatedAt:       m.CreatedAt,
			LastAccessed:    m.LastAccessed,
		}
	}
	payload, err := json.Marshal(compact)
	if err != nil {
		return unchanged("marshal candidates failed")
	}

	resp, err := e.LLM.Complete(ctx, llm.ReviewPrompt(string(payload)))
	if err != nil {
		log.Printf("review: evaluator call failed: %v", err)
		return unchanged("evaluator unavailable")
	}

	var decisions []reviewDecision
	if err := DecodeArray(resp.Content, &decisions); err != nil {
		log.Printf("review: unparsable evaluator response, defaulting batch to unchanged: %v", err)
		return unchanged("evaluator response unparsable")
	}
	return decisions
}

// applyForget executes a forget verdict. Delete removes the row and its
// relation edges; downgrade lowers importance by one step with a 0.1 floor
// and forces the level to unimportant. Downgrade is the default strategy.
func (e *Engine) applyForget(id int64, strategy string, m *store.Memory) error {
	if strategy == strategyDelete {
		return e.Store.DeleteMemory(id)
	}

	if m == nil {
		fetched, err := e.Store.GetMemory(id)
		if err != nil {
			return err
		}
		if fetched == nil {
			return fmt.Errorf("memory %d not found", id)
		}
		m = fetched
	}

	newImportance := m.Importance - downgradeStep
	if newImportance < 0.1 {
		newImportance = 0.1
	}
	return e.Store.UpdateImportance(id, newImportance, store.LevelUnimportant)
}
