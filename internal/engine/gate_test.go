package engine

import "testing"

func TestRetrievalRuleCascade(t *testing.T) {
	tests := []struct {
		utterance string
		wantRule  string
		want      bool
	}{
		// Greetings and courtesy
		{"你好", "greeting", false},
		{"谢谢！", "greeting", false},
		{"hello", "greeting", false},
		{"Good morning", "greeting", false},
		// Arithmetic
		{"1+2=", "arithmetic", false},
		{"123 * 456", "arithmetic", false},
		// Generic definitions without personal reference
		{"什么是量子计算", "generic-definition", false},
		{"what is photosynthesis", "generic-definition", false},
		// Pure date/time
		{"现在几点了", "date-time", false},
		{"what time is it", "date-time", false},
		// Context-dependent: looks simple, needs stored personal facts
		{"今天成都天气怎么样", "context-dependent", true},
		{"附近有什么好吃的", "context-dependent", true},
		{"how's the traffic", "context-dependent", true},
		// Recall cues
		{"继续之前的讨论", "recall-cue", true},
		{"我的项目进展如何", "recall-cue", true},
		{"what did we decide about my project", "recall-cue", true},
		// Creation cues still retrieve first (dedup against existing memories)
		{"记住这个密码规则", "creation-cue", true},
		{"never deploy on fridays", "creation-cue", true},
		// Reasoning-over-context shape
		{"根据现状分析下一步", "reasoning", true},
		// Long compound utterances
		{"这个系统的架构设计有三个主要模块，分别负责存储、检索和调度", "long-compound", true},
		// Default
		{"ok", "default", false},
	}

	for _, tt := range tests {
		rule, got := MatchRetrievalRule(tt.utterance)
		if got != tt.want {
			t.Errorf("ShouldRetrieveMemory(%q) = %v (rule %s), want %v", tt.utterance, got, rule, tt.want)
		}
	}
}

func TestShouldRetrieveMemoryDeterministic(t *testing.T) {
	inputs := []string{"你好", "今天成都天气怎么样", "记住这个", "random text"}
	for _, in := range inputs {
		first := ShouldRetrieveMemory(in)
		for i := 0; i < 5; i++ {
			if got := ShouldRetrieveMemory(in); got != first {
				t.Fatalf("ShouldRetrieveMemory(%q) changed between calls: %v then %v", in, first, got)
			}
		}
	}
}

func TestRecallBeatsCreation(t *testing.T) {
	// Contains both a recall cue (我的) and a creation cue (记住); the recall
	// rule sits earlier in the cascade.
	rule, got := MatchRetrievalRule("记住我的生日是三月五号")
	if !got {
		t.Fatal("expected retrieval for mixed recall/creation utterance")
	}
	if rule != "recall-cue" {
		t.Errorf("rule = %q, want recall-cue", rule)
	}
}

func TestShouldCreateMemory(t *testing.T) {
	tests := []struct {
		utterance string
		want      bool
	}{
		{"记住我喜欢靠窗的座位", true},
		{"别忘了每周五备份", true},
		{"must always use utf-8", true},
		{"this is important: the api key rotates monthly", true},
		{"今天天气不错", false},
		{"what is the capital of france", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ShouldCreateMemory(tt.utterance); got != tt.want {
			t.Errorf("ShouldCreateMemory(%q) = %v, want %v", tt.utterance, got, tt.want)
		}
	}
}

func TestIsLocationQuery(t *testing.T) {
	if !IsLocationQuery("明天北京天气") {
		t.Error("expected weather query to be location-shaped")
	}
	if !IsLocationQuery("nearby coffee shops") {
		t.Error("expected nearby query to be location-shaped")
	}
	if IsLocationQuery("我的项目用什么语言") {
		t.Error("project query should not be location-shaped")
	}
}
