package engine

import (
	"time"

	"github.com/mstanton/keepsake/internal/store"
)

// Strength estimates how "alive" a memory currently is, in [0, 1]:
//
//	importance
//	× (1 − min(1, age/365d) × 0.3)             age decay, capped at −30%
//	× (1 + max(0, 1 − sinceAccess/30d) × 0.5)  recency boost, up to +50%
//	× 1.2 if core
//	× 1.3 if pinned
//
// A memory never accessed since creation gets no recency boost.
func Strength(m *store.Memory, now time.Time) float64 {
	const msPerDay = float64(24 * time.Hour / time.Millisecond)

	ageDays := float64(now.UnixMilli()-m.CreatedAt) / msPerDay
	if ageDays < 0 {
		ageDays = 0
	}
	ageFraction := ageDays / 365
	if ageFraction > 1 {
		ageFraction = 1
	}

	strength := m.Importance * (1 - ageFraction*0.3)

	if m.LastAccessed != nil {
		sinceAccessDays := float64(now.UnixMilli()-*m.LastAccessed) / msPerDay
		if sinceAccessDays < 0 {
			sinceAccessDays = 0
		}
		recency := 1 - sinceAccessDays/30
		if recency > 0 {
			strength *= 1 + recency*0.5
		}
	}

	if m.MemoryType == store.TypeCore {
		strength *= 1.2
	}
	if m.IsPinned {
		strength *= 1.3
	}

	if strength > 1 {
		strength = 1
	}
	if strength < 0 {
		strength = 0
	}
	return strength
}
