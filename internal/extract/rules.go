package extract

import "strings"

// RegionRule selects content regions. Rules are evaluated in order and the
// first rule that matches anything wins.
type RegionRule struct {
	Name  string
	Match func(Taggable) bool
	// All collects every matching element instead of only the first.
	All bool
}

var (
	relevantMarkers   = []string{"content", "main", "article", "post", "entry"}
	irrelevantMarkers = []string{"header", "footer", "nav", "sidebar", "menu", "comment"}
)

// DefaultRules is the region priority used by New.
func DefaultRules() []RegionRule {
	return []RegionRule{
		{Name: "main", Match: tagIs("main")},
		{Name: "article", Match: tagIs("article")},
		{Name: "content-class", Match: hasClass("content")},
		{Name: "relevance", Match: IsRelevant, All: true},
	}
}

// IsRelevant reports whether an element looks like a content container. An
// element with a class attribute is judged on its class tokens alone; one
// without is judged on substrings of its id.
func IsRelevant(node Taggable) bool {
	if classes, ok := node.Classes(); ok {
		return anyToken(classes, relevantMarkers) && !anyToken(classes, irrelevantMarkers)
	}
	if id, ok := node.ID(); ok {
		return anySubstring(id, relevantMarkers) && !anySubstring(id, irrelevantMarkers)
	}
	return false
}

func tagIs(tag string) func(Taggable) bool {
	return func(node Taggable) bool {
		return node.Tag() == tag
	}
}

func hasClass(class string) func(Taggable) bool {
	return func(node Taggable) bool {
		classes, _ := node.Classes()
		for _, c := range classes {
			if c == class {
				return true
			}
		}
		return false
	}
}

func anyToken(tokens, markers []string) bool {
	for _, t := range tokens {
		for _, m := range markers {
			if t == m {
				return true
			}
		}
	}
	return false
}

func anySubstring(value string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(value, m) {
			return true
		}
	}
	return false
}
