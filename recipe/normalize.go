package recipe

import "strings"

// normalize enforces the Record invariants in place: sentinel defaults,
// whitespace-collapsed entries, no blank entries, non-nil slices.
func normalize(r *Record) *Record {
	r.Title = cleanText(r.Title)
	if r.Title == "" {
		r.Title = NoTitle
	}
	r.Description = cleanText(r.Description)
	if r.Description == "" {
		r.Description = NoDescription
	}
	r.Ingredients = cleanEntries(r.Ingredients)
	r.Instructions = cleanEntries(r.Instructions)

	if r.Nutrition != nil {
		for k, v := range r.Nutrition {
			r.Nutrition[k] = cleanText(v)
		}
	}
	return r
}

func cleanEntries(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = cleanText(e); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// cleanText trims s and collapses internal whitespace runs to one space.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
