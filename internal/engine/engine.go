package engine

import (
	"context"
	"log"
	"time"

	"github.com/mstanton/keepsake/internal/llm"
	"github.com/mstanton/keepsake/internal/store"
)

// Engine owns the memory lifecycle: retrieval gating and ranking, review,
// and consolidation. The store and LLM collaborators are injected; Now is
// injectable so time-dependent math is testable.
type Engine struct {
	Store *store.DB
	LLM   llm.Client
	Now   func() time.Time

	// Retrieval defaults for the smart path.
	RetrievalThreshold float64
	RetrievalMax       int

	// Review candidate policy.
	ReviewDueAfter  time.Duration
	ReviewBatchSize int

	// Consolidation triggers.
	ConsolidationThreshold int64
	OrganizeAfter          time.Duration
}

// New creates an Engine with default lifecycle policy.
func New(db *store.DB, client llm.Client) *Engine {
	return &Engine{
		Store:                  db,
		LLM:                    client,
		Now:                    time.Now,
		RetrievalThreshold:     0.4,
		RetrievalMax:           5,
		ReviewDueAfter:         14 * 24 * time.Hour,
		ReviewBatchSize:        20,
		ConsolidationThreshold: 20,
		OrganizeAfter:          7 * 24 * time.Hour,
	}
}

// CreateMemory persists a new memory and advances the consolidation
// counter. Reaching the threshold runs consolidation inline; a failed
// consolidation never fails the creation.
func (e *Engine) CreateMemory(ctx context.Context, m *store.Memory) error {
	if err := e.Store.CreateMemory(m); err != nil {
		return err
	}

	value, triggered, err := e.Store.IncrementMemoryCounter(e.ConsolidationThreshold)
	if err != nil {
		log.Printf("create: counter increment failed: %v", err)
		return nil
	}
	if triggered {
		log.Printf("create: memory counter reached %d, consolidating", value)
		if _, err := e.OrganizeMemories(ctx); err != nil {
			log.Printf("create: consolidation failed: %v", err)
		}
	}
	return nil
}

// generatedMemory is the JSON shape of the generation LLM's answer.
type generatedMemory struct {
	WorthRemembering bool    `json:"worth_remembering"`
	Content          string  `json:"content"`
	Keywords         string  `json:"keywords"`
	Context          string  `json:"context"`
	Importance       float64 `json:"importance"`
	MemoryType       string  `json:"memory_type"`
	MemorySubtype    string  `json:"memory_subtype"`
}

// GenerateMemory asks the LLM whether a conversational exchange contains a
// durable fact and creates the memory if so. Returns (nil, nil) when the
// model declines or its response is unparsable — a noisy response must
// never fabricate a memory.
func (e *Engine) GenerateMemory(ctx context.Context, userMsg, assistantMsg string) (*store.Memory, error) {
	resp, err := e.LLM.Complete(ctx, llm.GenerationPrompt(userMsg, assistantMsg))
	if err != nil {
		return nil, err
	}

	var gen generatedMemory
	if err := DecodeObject(resp.Content, &gen); err != nil {
		log.Printf("generate: unparsable response, skipping: %v", err)
		return nil, nil
	}
	if !gen.WorthRemembering || gen.Content == "" {
		return nil, nil
	}

	if gen.MemoryType != store.TypeCore {
		gen.MemoryType = store.TypeFactual
	}
	m := &store.Memory{
		Content:       gen.Content,
		Keywords:      gen.Keywords,
		Context:       gen.Context,
		Importance:    store.ClampImportance(gen.Importance),
		MemoryType:    gen.MemoryType,
		MemorySubtype: gen.MemorySubtype,
	}
	if err := e.CreateMemory(ctx, m); err != nil {
		return nil, err
	}
	log.Printf("generate: stored memory %d [%s/%s]", m.ID, m.MemoryType, m.MemorySubtype)
	return m, nil
}
