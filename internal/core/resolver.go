package core

import (
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/samber/lo"
)

// ResolutionTier records which stage of label resolution produced the label
type ResolutionTier int

const (
	TierStructured ResolutionTier = iota + 1
	TierStructuredKeyword
	TierSubstring
	TierKeyword
	TierDefault
)

func (t ResolutionTier) String() string {
	switch t {
	case TierStructured:
		return "structured"
	case TierStructuredKeyword:
		return "structured-keyword"
	case TierSubstring:
		return "substring"
	case TierKeyword:
		return "keyword"
	case TierDefault:
		return "default"
	default:
		return "none"
	}
}

// Resolution is the label chosen for a model output with its ranking
type Resolution struct {
	Label  string
	Scores []LabelScore
	Tier   ResolutionTier
}

type keywordFamily struct {
	label    string
	keywords []string
}

// Families in priority order. The unknown family only applies to the label
// parsed from a JSON object, never to the whole output.
var keywordFamilies = []keywordFamily{
	{label: "phishing", keywords: []string{"phish", "fraud", "scam", "malicious", "suspicious", "fake", "deceptive"}},
	{label: "spam", keywords: []string{"spam", "junk", "marketing", "promotional", "advertisement"}},
	{label: "benign", keywords: []string{"benign", "legitimate", "safe", "normal", "clean", "good", "valid"}},
	{label: UnknownLabel, keywords: []string{"unknown", "unclear", "uncertain", "ambiguous"}},
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// ResolveLabel maps free-form model output onto exactly one label of the set.
// It never fails: when nothing matches the set's default label is returned.
func ResolveLabel(output string, labels LabelSet) Resolution {
	if parsed, ok := structuredLabel(output); ok {
		if label, ok := labels.Lookup(parsed); ok {
			return Resolution{Label: label, Scores: singleton(label), Tier: TierStructured}
		}
		if label, ok := matchFamily(parsed, labels, true); ok {
			return Resolution{Label: label, Scores: singleton(label), Tier: TierStructuredKeyword}
		}
	}

	lowered := strings.ToLower(output)
	scores := CountScores(output, labels)

	if label, ok := lo.Find(labels.Labels(), func(l string) bool {
		return strings.Contains(lowered, strings.ToLower(l))
	}); ok {
		return Resolution{Label: label, Scores: scores, Tier: TierSubstring}
	}

	if label, ok := matchFamily(lowered, labels, false); ok {
		return Resolution{Label: label, Scores: scores, Tier: TierKeyword}
	}

	return Resolution{Label: labels.Default(), Scores: scores, Tier: TierDefault}
}

// CountScores ranks every label by its case-insensitive occurrence count in
// output. Ties keep label-set order.
func CountScores(output string, labels LabelSet) []LabelScore {
	lowered := strings.ToLower(output)
	scores := lo.Map(labels.Labels(), func(label string, _ int) LabelScore {
		return LabelScore{Label: label, Score: float64(strings.Count(lowered, strings.ToLower(label)))}
	})
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].Score > scores[j].Score
	})
	return scores
}

// structuredLabel extracts the lower-cased "label" string field of the first
// brace-delimited JSON object in output.
func structuredLabel(output string) (string, bool) {
	candidate := jsonObjectRe.FindString(output)
	if candidate == "" {
		return "", false
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return "", false
	}
	label, ok := obj["label"].(string)
	if !ok {
		return "", false
	}
	return strings.ToLower(strings.TrimSpace(label)), true
}

// matchFamily returns the first keyword family with a keyword in text whose
// label is configured in the set.
func matchFamily(text string, labels LabelSet, includeUnknown bool) (string, bool) {
	for _, family := range keywordFamilies {
		if family.label == UnknownLabel && !includeUnknown {
			continue
		}
		label, ok := labels.Lookup(family.label)
		if !ok {
			continue
		}
		if lo.SomeBy(family.keywords, func(k string) bool { return strings.Contains(text, k) }) {
			return label, true
		}
	}
	return "", false
}

func singleton(label string) []LabelScore {
	return []LabelScore{{Label: label, Score: 1.0}}
}
