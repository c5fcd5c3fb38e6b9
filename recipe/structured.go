package recipe

import (
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	ldJSONType = "application/ld+json"
	recipeType = "Recipe"
)

// Skip reasons reported to the Observer.
const (
	SkipMalformed = "malformed_json"
	SkipEmpty     = "empty_block"
)

// findStructured scans every JSON-LD block in document order and returns
// the first Recipe object. Unparseable blocks are skipped.
func (e *Extractor) findStructured(doc *goquery.Document) (Value, bool) {
	var (
		found Value
		ok    bool
	)
	doc.Find("script[type]").EachWithBreak(func(i int, s *goquery.Selection) bool {
		typ, _ := s.Attr("type")
		mediaType, _, _ := strings.Cut(typ, ";")
		if !strings.EqualFold(strings.TrimSpace(mediaType), ldJSONType) {
			return true
		}

		text := strings.TrimSpace(s.Text())
		if text == "" {
			e.skip(i, SkipEmpty, nil)
			return true
		}

		v, err := ParseValue(text)
		if err != nil {
			e.skip(i, SkipMalformed, err)
			return true
		}

		found, ok = recipeIn(v)
		return !ok
	})
	return found, ok
}

func (e *Extractor) skip(block int, reason string, err error) {
	slog.Debug("recipe: skipping json-ld block", "block", block, "reason", reason, "error", err)
	e.observer.BlockSkipped(reason)
}

// recipeIn locates a Recipe object inside one decoded JSON-LD block.
// An object carrying @graph is searched through the graph only.
func recipeIn(v Value) (Value, bool) {
	switch v.Kind() {
	case KindArray:
		return firstRecipe(v.Items())
	case KindObject:
		if graph, ok := v.Field("@graph"); ok {
			if !graph.IsArray() {
				return Value{}, false
			}
			return firstRecipe(graph.Items())
		}
		if v.IsType(recipeType) {
			return v, true
		}
	}
	return Value{}, false
}

func firstRecipe(items []Value) (Value, bool) {
	for _, item := range items {
		if item.IsObject() && item.IsType(recipeType) {
			return item, true
		}
	}
	return Value{}, false
}

// fromStructured maps a schema.org Recipe object onto a Record.
func fromStructured(v Value) *Record {
	rec := &Record{Source: SourceStructured}

	if name, ok := v.Field("name"); ok {
		rec.Title = name.Text()
	}
	if desc, ok := v.Field("description"); ok {
		rec.Description = desc.Text()
	}
	if ingredients, ok := v.Field("recipeIngredient"); ok {
		rec.Ingredients = stringList(ingredients)
	}
	if nutrition, ok := v.Field("nutrition"); ok && nutrition.IsObject() {
		rec.Nutrition = make(map[string]string, len(NutritionKeys))
		for _, key := range NutritionKeys {
			val, _ := nutrition.Field(key)
			rec.Nutrition[key] = val.Text()
		}
	}
	if instructions, ok := v.Field("recipeInstructions"); ok {
		rec.Instructions = instructionList(instructions)
	}

	return normalize(rec)
}

// stringList accepts either a list of scalars or a bare scalar.
func stringList(v Value) []string {
	if !v.IsArray() {
		if t := v.Text(); t != "" {
			return []string{t}
		}
		return nil
	}
	out := make([]string, 0, len(v.Items()))
	for _, item := range v.Items() {
		out = append(out, item.Text())
	}
	return out
}

// instructionList flattens recipeInstructions. A list led by an object is
// read as step objects and ignores bare scalars; a list led by a scalar
// keeps its scalars and still reads any step objects it holds. A scalar
// becomes a single step.
func instructionList(v Value) []string {
	if !v.IsArray() {
		if t := v.Text(); t != "" {
			return []string{t}
		}
		return nil
	}

	items := v.Items()
	if len(items) == 0 {
		return nil
	}
	objectLed := items[0].IsObject()

	var steps []string
	for _, item := range items {
		switch {
		case item.IsObject():
			steps = append(steps, stepText(item)...)
		case !objectLed:
			steps = append(steps, item.Text())
		}
	}
	return steps
}

// stepText reads one step object. Only objects contribute: a HowToStep
// through its text, a HowToSection through its itemListElement steps.
func stepText(item Value) []string {
	if !item.IsObject() {
		return nil
	}
	if text, ok := item.Field("text"); ok && text.Text() != "" {
		return []string{text.Text()}
	}
	if nested, ok := item.Field("itemListElement"); ok && nested.IsArray() {
		var steps []string
		for _, n := range nested.Items() {
			steps = append(steps, stepText(n)...)
		}
		return steps
	}
	return nil
}
