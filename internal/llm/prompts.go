package llm

import "fmt"

// ReviewPrompt generates the prompt for a memory review pass. candidates is
// a JSON array of memory descriptions (id, content, keywords, importance,
// type, timestamps).
func ReviewPrompt(candidates string) string {
	return fmt.Sprintf(`You are a memory review system for a personal AI assistant. Re-evaluate each stored memory below and decide whether it is still worth keeping at its current importance.

MEMORIES:
%s

For every memory, choose exactly one action:
- "review": the memory is still valuable; reinforce it
- "forget": the memory is stale, trivial, or superseded
- "unchanged": no confident judgement either way

For "forget", also choose a strategy:
- "downgrade": lower its importance but keep it (default, safer)
- "delete": remove it entirely (only for clearly worthless entries)

Rules:
- Judge durability, not recency: standing instructions and hard-won facts stay
- Prefer "unchanged" over guessing
- Prefer "downgrade" over "delete"
- Return ONLY a JSON array, no other text

Return a JSON array:
[{"memory_id": 123, "action": "review|forget|unchanged", "forget_strategy": "downgrade|delete", "reason": "one short sentence"}]

If nothing needs changing, return every memory with action "unchanged".`, candidates)
}

// ConflictPrompt generates the prompt for consolidation conflict analysis.
// memories is a JSON array of trimmed memory descriptions.
func ConflictPrompt(memories string) string {
	return fmt.Sprintf(`You are a memory consolidation system. Find groups of stored memories that conflict with or duplicate each other.

MEMORIES:
%s

Two memories conflict when they record the same fact with different values, or when one clearly supersedes the other. Duplicates are near-identical entries.

For each conflict group, pick the single memory to keep: the most recent, most complete, or most authoritative entry.

Rules:
- Only group memories you are confident about; unrelated memories are never a conflict
- keep_id must be one of the ids in conflicting_ids
- If there are no conflicts, return []
- Return ONLY a JSON array, no other text

Return a JSON array:
[{"description": "what the conflict is", "conflicting_ids": [1, 2, 3], "keep_id": 2, "reason": "why this one survives"}]`, memories)
}

// GenerationPrompt generates the prompt for deciding whether a conversational
// exchange contains a durable fact worth remembering.
func GenerationPrompt(userMsg, assistantMsg string) string {
	return fmt.Sprintf(`You are a memory extraction system for a personal AI assistant. Decide whether this exchange contains a durable fact, preference, instruction, or decision worth remembering long-term.

USER:
%s

ASSISTANT:
%s

Rules:
- Only extract genuinely persistent knowledge; skip chit-chat and one-off questions
- memory_type "core" is reserved for standing instructions and rules the user states
- keywords are comma-joined search terms in the user's language
- importance is between 0.1 and 1.0
- Return ONLY a JSON object, no other text

Return a JSON object:
{
  "worth_remembering": true|false,
  "content": "the fact, stated compactly",
  "keywords": "term1,term2,term3",
  "context": "one line of provenance",
  "importance": 0.5,
  "memory_type": "core|factual",
  "memory_subtype": "instruction|reflection|preference|project_info|decision|solution|knowledge"
}

If nothing is worth remembering, return: {"worth_remembering": false}`, userMsg, assistantMsg)
}
