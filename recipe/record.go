// Package recipe extracts recipe records from parsed HTML documents.
//
// Extraction is two-tier: embedded JSON-LD Recipe objects are preferred,
// and only when none exist is the markup scanned with class/id naming
// heuristics. Both paths feed the same normalizer so callers always see
// one output shape.
package recipe

import "errors"

// Sentinels used in place of missing scalar fields.
const (
	NoTitle       = "No title found"
	NoDescription = "No description found"
)

// Source records which extraction path produced a Record.
type Source string

const (
	SourceStructured Source = "structured"
	SourceHeuristic  Source = "heuristic"
)

// ErrNoRecipe is returned by Extract when neither path found any recipe
// content. The accompanying record holds only defaults.
var ErrNoRecipe = errors.New("recipe: no recipe found")

// NutritionKeys are the schema.org NutritionInformation properties kept
// from structured data, in output order.
var NutritionKeys = []string{"calories", "fatContent", "carbohydrateContent", "proteinContent"}

// Record is the canonical recipe shape returned to callers.
type Record struct {
	Title        string            `json:"title"`
	Description  string            `json:"description"`
	Ingredients  []string          `json:"ingredients"`
	Instructions []string          `json:"instructions"`
	Nutrition    map[string]string `json:"nutrition,omitempty"`
	Source       Source            `json:"source"`
}

// Empty reports whether r carries nothing beyond defaults.
func (r *Record) Empty() bool {
	return r.Title == NoTitle &&
		r.Description == NoDescription &&
		len(r.Ingredients) == 0 &&
		len(r.Instructions) == 0 &&
		len(r.Nutrition) == 0
}
