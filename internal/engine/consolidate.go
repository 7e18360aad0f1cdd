package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

// conflictMemory is the trimmed memory description sent to the conflict
// analyzer; content bodies are cut down to keep the prompt small.
type conflictMemory struct {
	ID              int64  `json:"id"`
	Keywords        string `json:"keywords"`
	Content         string `json:"content"`
	MemoryType      string `json:"memory_type"`
	MemorySubtype   string `json:"memory_subtype,omitempty"`
	ImportanceLevel string `json:"importance_level"`
	CreatedAt       int64  `json:"created_at"`
}

// conflictGroup is one conflict reported by the analyzer.
type conflictGroup struct {
	Description    string  `json:"description"`
	ConflictingIDs []int64 `json:"conflicting_ids"`
	KeepID         int64   `json:"keep_id"`
	Reason         string  `json:"reason"`
}

// OrganizeResult summarizes one consolidation run.
type OrganizeResult struct {
	Scanned int `json:"scanned"`
	Groups  int `json:"groups"`
	Deleted int `json:"deleted"`
}

const conflictContentRunes = 100

// OrganizeMemories runs one full-corpus consolidation pass: ask the LLM for
// conflict groups, keep one survivor per group, audit the decision, delete
// the rest. A malformed or empty analyzer response means "no conflicts",
// never an error. The run always stamps last_memory_organization and resets
// the creation counter on completion.
func (e *Engine) OrganizeMemories(ctx context.Context) (*OrganizeResult, error) {
	memories, err := e.Store.ListMemories("")
	if err != nil {
		return nil, fmt.Errorf("list memories: %w", err)
	}

	result := &OrganizeResult{Scanned: len(memories)}
	if len(memories) > 0 {
		groups := e.findConflicts(ctx, memories)
		for _, g := range groups {
			deleted, err := e.resolveConflict(g)
			if err != nil {
				log.Printf("organize: skipping group %q: %v", g.Description, err)
				continue
			}
			result.Groups++
			result.Deleted += deleted
		}
	}

	if err := e.Store.SetLastOrganization(e.Now().UnixMilli()); err != nil {
		return result, fmt.Errorf("stamp organization time: %w", err)
	}
	if err := e.Store.ResetMemoryCounter(); err != nil {
		return result, fmt.Errorf("reset memory counter: %w", err)
	}

	log.Printf("organize: scanned %d, resolved %d conflict groups, deleted %d", result.Scanned, result.Groups, result.Deleted)
	return result, nil
}

// findConflicts asks the analyzer for conflict groups. Any failure returns
// nil — no conflicts.
func (e *Engine) findConflicts(ctx context.Context, memories []store.Memory) []conflictGroup {
	if e.LLM == nil {
		return nil
	}

	trimmed := make([]conflictMemory, len(memories))
	for i, m := range memories {
		content := m.Content
		if utf8.RuneCountInString(content) > conflictContentRunes {
			content = string([]rune(content)[:conflictContentRunes])
		}
		trimmed[i] = conflictMemory{
			ID:              m.ID,
			Keywords:        m.Keywords,
			Content:         content,
			MemoryType:      m.MemoryType,
			MemorySubtype:   m.MemorySubtype,
			ImportanceLevel: m.ImportanceLevel,
			CreatedAt:       m.CreatedAt,
		}
	}
	payload, err := json.Marshal(trimmed)
	if err != nil {
		log.Printf("organize: marshal memories: %v", err)
		return nil
	}

	resp, err := e.LLM.Complete(ctx, llm.ConflictPrompt(string(payload)))
	if err != nil {
		log.Printf("organize: analyzer call failed, treating as no conflicts: %v", err)
		return nil
	}

	var groups []conflictGroup
	if err := DecodeArray(resp.Content, &groups); err != nil {
		log.Printf("organize: unparsable analyzer response, treating as no conflicts: %v", err)
		return nil
	}
	return groups
}

// resolveConflict deletes every memory in the group except the survivor,
// writing an audit entry first. The survivor must exist.
func (e *Engine) resolveConflict(g conflictGroup) (int, error) {
	keep, err := e.Store.GetMemory(g.KeepID)
	if err != nil {
		return 0, fmt.Errorf("load keep_id %d: %w", g.KeepID, err)
	}
	if keep == nil {
		return 0, fmt.Errorf("keep_id %d does not exist", g.KeepID)
	}

	var toDelete []int64
	for _, id := range g.ConflictingIDs {
		if id != g.KeepID {
			toDelete = append(toDelete, id)
		}
	}

	detail, err := json.Marshal(map[string]any{
		"description": g.Description,
		"reason":      g.Reason,
		"kept": map[string]any{
			"id":       keep.ID,
			"content":  keep.Content,
			"keywords": keep.Keywords,
		},
		"deleted_ids": toDelete,
	})
	if err != nil {
		return 0, fmt.Errorf("marshal audit detail: %w", err)
	}
	if err := e.Store.AppendAudit("consolidate", keep.ID, string(detail)); err != nil {
		return 0, fmt.Errorf("audit: %w", err)
	}

	deleted := 0
	for _, id := range toDelete {
		if err := e.Store.DeleteMemory(id); err != nil {
			log.Printf("organize: delete %d: %v", id, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// CheckOrganizeDue runs the opportunistic time trigger: consolidation runs
// when the last run is older than OrganizeAfter and at least one memory
// exists. A store that has never been organized is stamped with the current
// time instead of consolidating immediately.
func (e *Engine) CheckOrganizeDue(ctx context.Context) error {
	last, err := e.Store.LastOrganization()
	if err != nil {
		return fmt.Errorf("read last organization: %w", err)
	}
	if last == 0 {
		return e.Store.SetLastOrganization(e.Now().UnixMilli())
	}

	if e.Now().UnixMilli()-last <= e.OrganizeAfter.Milliseconds() {
		return nil
	}

	count, err := e.Store.CountMemories()
	if err != nil {
		return fmt.Errorf("count memories: %w", err)
	}
	if count == 0 {
		return nil
	}

	log.Printf("organize: time trigger (last run %dms ago)", e.Now().UnixMilli()-last)
	_, err = e.OrganizeMemories(ctx)
	return err
}

// TriggerOrganization is the manual consolidation entry point: runs a full
// pass and resets the counter.
func (e *Engine) TriggerOrganization(ctx context.Context) (*OrganizeResult, error) {
	return e.OrganizeMemories(ctx)
}

// ResetMemoryCounter resets the creation counter without consolidating.
func (e *Engine) ResetMemoryCounter() error {
	return e.Store.ResetMemoryCounter()
}
