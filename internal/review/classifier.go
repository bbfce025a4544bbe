package review

import "strings"

// Category buckets a review remark by the kind of response it demands.
type Category int

const (
	// CategoryNoise is feedback that demands nothing (acknowledgements, bot chatter).
	CategoryNoise Category = iota
	// CategorySuggestion is optional polish the author may take or leave.
	CategorySuggestion
	// CategoryConcern is a doubt or risk that deserves a reply.
	CategoryConcern
	// CategoryActionItem is concrete follow-up work.
	CategoryActionItem
	// CategoryRequestedChange blocks the change until addressed.
	CategoryRequestedChange
)

func (c Category) String() string {
	switch c {
	case CategorySuggestion:
		return "suggestion"
	case CategoryConcern:
		return "concern"
	case CategoryActionItem:
		return "action item"
	case CategoryRequestedChange:
		return "requested change"
	default:
		return "noise"
	}
}

// Classifier turns free-form review text into categories and estimates how
// confident we are that a set of follow-up notes resolves the feedback.
// Implementations must be deterministic.
type Classifier interface {
	Classify(text string) Category
	Score(evidence []string) float64
}

// Marker phrases checked in order of severity. The first category with a
// match wins, so "consider fixing this, it is blocking" classifies as a
// requested change rather than a suggestion.
var (
	requestedChangeMarkers = []string{
		"request changes", "requested changes", "blocking", "do not merge",
		"must be fixed", "needs to change", "please fix", "this breaks", "broken",
	}
	actionItemMarkers = []string{
		"action item", "todo", "follow up", "follow-up",
		"add a test", "needs a test", "missing a test", "update the docs",
	}
	concernMarkers = []string{
		"concern", "worried", "worries", "risky", "risk of", "race condition",
		"security", "performance", "not convinced", "are we sure",
	}
	suggestionMarkers = []string{
		"nit:", "nitpick", "suggestion", "suggest", "consider",
		"optional", "minor:", "could we", "what about",
	}
	resolutionMarkers = []string{
		"done", "fixed", "addressed", "resolved", "applied", "updated", "removed",
	}
)

// KeywordClassifier is the default heuristic classifier. It is intentionally
// crude; swap in a smarter Classifier if keyword matching proves too blunt.
type KeywordClassifier struct{}

// Classify matches marker phrases in severity order. An unmatched question
// still reads as a concern since it expects an answer.
func (KeywordClassifier) Classify(text string) Category {
	lowered := strings.ToLower(text)
	switch {
	case containsAny(lowered, requestedChangeMarkers):
		return CategoryRequestedChange
	case containsAny(lowered, actionItemMarkers):
		return CategoryActionItem
	case containsAny(lowered, concernMarkers):
		return CategoryConcern
	case containsAny(lowered, suggestionMarkers):
		return CategorySuggestion
	case strings.HasSuffix(strings.TrimSpace(lowered), "?"):
		return CategoryConcern
	default:
		return CategoryNoise
	}
}

// Score estimates resolution confidence as the fraction of evidence lines
// that read like a fix was made. No evidence means no confidence.
func (KeywordClassifier) Score(evidence []string) float64 {
	if len(evidence) == 0 {
		return 0
	}
	matched := 0
	for _, line := range evidence {
		if containsAny(strings.ToLower(line), resolutionMarkers) {
			matched++
		}
	}
	return float64(matched) / float64(len(evidence))
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
