package engine

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// The retrieval gate is an ordered list of named predicate rules. Rules are
// evaluated top to bottom and the first match decides; the final fallback
// rule always matches. Ordering is load-bearing: a creation-cue utterance
// like "记住我的生日" must hit the recall rule ("我的") before the creation
// rule so retrieval still runs and duplicate creation is avoided.

// GateRule is one named predicate in the retrieval decision cascade.
type GateRule struct {
	Name     string
	Match    func(utterance string) bool
	Retrieve bool
}

var (
	greetingRe = regexp.MustCompile(`^(?i)(你好|您好|嗨|哈喽|早上好|中午好|晚上好|晚安|谢谢|多谢|辛苦了|再见|拜拜|hi|hello|hey|yo|thanks|thank you|bye|goodbye|good (morning|afternoon|evening|night))[\s!！。.~～]*$`)

	arithmeticRe = regexp.MustCompile(`^[\d\s+\-*/×÷().=]+[?？]?$`)

	definitionRe = regexp.MustCompile(`(?i)(什么是|啥是|是什么|是啥|的意思|的定义|^what('s| is) |^define |^definition of )`)
	personalRe   = regexp.MustCompile(`(?i)(我|你|咱|自己|\bmy\b|\bmine\b|\bour\b|\bi\b|\bme\b)`)

	dateTimeRe = regexp.MustCompile(`^(?i)(现在)?(几点了?|什么时间|今天(几号|几月几日|星期几|周几)|what time is it|what('s| is) (the time|today'?s date|the date))[\s?？。]*$`)

	contextDependentRe = regexp.MustCompile(`(?i)(天气|下雨|下雪|气温|温度|降温|路况|堵车|限行|附近|周边|怎么走|导航|多远|日程|安排|计划表|行程|饿|渴|累|困|心情|weather|forecast|rain|traffic|commute|nearby|directions|schedule|agenda|hungry|tired)`)

	recallCueRe = regexp.MustCompile(`(?i)(之前|上次|上回|以前|那次|记得|还记得|我的|我们的|项目|习惯|偏好|喜好|继续|接着|后来|before|last time|previously|earlier|remember when|\bmy\b|\bour\b|project|habit|preference|continue|resume)`)

	creationCueRe = regexp.MustCompile(`(?i)(记住|记一下|记下来|记录一下|别忘了|务必|必须|一定要|切记|不要再|以后都|重要|remember|note (this|that)|don'?t forget|must|never|always|important)`)

	reasoningRe = regexp.MustCompile(`(?i)((基于|根据|结合|考虑到)[^，。]{0,20}(分析|评估|判断|总结|建议|推荐|规划))|(based on .{0,40}(analy|evaluat|summar|recommend|suggest|plan))`)

	clausePunct = "，。；、？！,;?!"
)

// retrievalRules is the ordered cascade for shouldRetrieve decisions.
var retrievalRules = []GateRule{
	{Name: "greeting", Match: func(s string) bool { return greetingRe.MatchString(s) }, Retrieve: false},
	{Name: "arithmetic", Match: isArithmetic, Retrieve: false},
	{Name: "generic-definition", Match: isGenericDefinition, Retrieve: false},
	{Name: "date-time", Match: func(s string) bool { return dateTimeRe.MatchString(s) }, Retrieve: false},
	{Name: "context-dependent", Match: func(s string) bool { return contextDependentRe.MatchString(s) }, Retrieve: true},
	{Name: "recall-cue", Match: func(s string) bool { return recallCueRe.MatchString(s) }, Retrieve: true},
	{Name: "creation-cue", Match: func(s string) bool { return creationCueRe.MatchString(s) }, Retrieve: true},
	{Name: "reasoning", Match: func(s string) bool { return reasoningRe.MatchString(s) }, Retrieve: true},
	{Name: "long-compound", Match: isLongCompound, Retrieve: true},
}

func isArithmetic(s string) bool {
	if !arithmeticRe.MatchString(s) {
		return false
	}
	// Require at least one digit; a string of punctuation is not a sum.
	return strings.ContainsAny(s, "0123456789")
}

func isGenericDefinition(s string) bool {
	return definitionRe.MatchString(s) && !personalRe.MatchString(s)
}

func isLongCompound(s string) bool {
	return utf8.RuneCountInString(s) > 20 && strings.ContainsAny(s, clausePunct)
}

// MatchRetrievalRule returns the name of the first matching rule and its
// decision. The fallback ("default", false) applies when nothing matches.
func MatchRetrievalRule(utterance string) (string, bool) {
	utterance = strings.TrimSpace(utterance)
	for _, r := range retrievalRules {
		if r.Match(utterance) {
			return r.Name, r.Retrieve
		}
	}
	return "default", false
}

// ShouldRetrieveMemory reports whether memory retrieval should run for this
// utterance. Pure classification; no side effects.
func ShouldRetrieveMemory(utterance string) bool {
	_, retrieve := MatchRetrievalRule(utterance)
	return retrieve
}

// ShouldCreateMemory reports whether the utterance signals an explicit
// memory-creation intent. Deliberately decoupled from the retrieval
// cascade's creation-cue rule so the two vocabularies can drift apart.
func ShouldCreateMemory(utterance string) bool {
	return creationCueRe.MatchString(strings.TrimSpace(utterance))
}

// IsLocationQuery reports whether the utterance matches a geo/weather/transit
// shape that benefits from location-biased candidate fetching.
func IsLocationQuery(utterance string) bool {
	return locationRe.MatchString(utterance)
}

var locationRe = regexp.MustCompile(`(?i)(天气|下雨|气温|路况|堵车|附近|周边|怎么走|导航|多远|地铁|公交|weather|forecast|traffic|nearby|directions|transit)`)
