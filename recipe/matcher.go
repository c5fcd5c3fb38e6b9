package recipe

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Matcher is a named element predicate used by the heuristic extractor.
// Selector narrows the candidate set before Match is applied.
type Matcher interface {
	Name() string
	Selector() string
	Match(s *goquery.Selection) bool
}

// TagClassMatcher matches elements with one of Tags whose class list holds
// a token containing Substr.
type TagClassMatcher struct {
	Tags     []string
	Substr   string
	FoldCase bool
}

func (m TagClassMatcher) Name() string {
	return strings.Join(m.Tags, "|") + "[class*=" + m.Substr + "]"
}

func (m TagClassMatcher) Selector() string { return strings.Join(m.Tags, ", ") }

func (m TagClassMatcher) Match(s *goquery.Selection) bool {
	if !hasTag(s, m.Tags) {
		return false
	}
	class, _ := s.Attr("class")
	for _, token := range strings.Fields(class) {
		if containsFold(token, m.Substr, m.FoldCase) {
			return true
		}
	}
	return false
}

// TagIDMatcher matches elements with one of Tags whose id contains Substr.
type TagIDMatcher struct {
	Tags     []string
	Substr   string
	FoldCase bool
}

func (m TagIDMatcher) Name() string {
	return strings.Join(m.Tags, "|") + "[id*=" + m.Substr + "]"
}

func (m TagIDMatcher) Selector() string { return strings.Join(m.Tags, ", ") }

func (m TagIDMatcher) Match(s *goquery.Selection) bool {
	if !hasTag(s, m.Tags) {
		return false
	}
	id, _ := s.Attr("id")
	return containsFold(id, m.Substr, m.FoldCase)
}

// AnyOf tries its matchers in order and accepts the first hit.
type AnyOf struct {
	Label    string
	Matchers []Matcher
}

func (a AnyOf) Name() string { return a.Label }

func (a AnyOf) Selector() string {
	seen := make(map[string]struct{})
	var parts []string
	for _, m := range a.Matchers {
		for _, p := range strings.Split(m.Selector(), ",") {
			p = strings.TrimSpace(p)
			if _, ok := seen[p]; ok || p == "" {
				continue
			}
			seen[p] = struct{}{}
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (a AnyOf) Match(s *goquery.Selection) bool {
	for _, m := range a.Matchers {
		if m.Match(s) {
			return true
		}
	}
	return false
}

// ClassOrID builds the usual "class token or id contains substr" matcher.
func ClassOrID(label, substr string, foldCase bool, tags ...string) AnyOf {
	return AnyOf{
		Label: label,
		Matchers: []Matcher{
			TagClassMatcher{Tags: tags, Substr: substr, FoldCase: foldCase},
			TagIDMatcher{Tags: tags, Substr: substr, FoldCase: foldCase},
		},
	}
}

// Select returns the elements of doc accepted by m, in document order.
func Select(doc *goquery.Document, m Matcher) *goquery.Selection {
	return doc.Find(m.Selector()).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return m.Match(s)
	})
}

func hasTag(s *goquery.Selection, tags []string) bool {
	name := goquery.NodeName(s)
	for _, t := range tags {
		if name == t {
			return true
		}
	}
	return false
}

func containsFold(s, substr string, fold bool) bool {
	if fold {
		return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
	}
	return strings.Contains(s, substr)
}
