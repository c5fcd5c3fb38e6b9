package recipe

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Heuristic holds the matchers used when a page has no structured data.
type Heuristic struct {
	Description  Matcher
	Ingredients  Matcher
	Instructions Matcher

	// NutritionTable selects the table whose two-cell rows become the
	// nutrition map.
	NutritionTable string
}

// DefaultHeuristic matches conventional class/id naming. The description
// check is case-sensitive; ingredients and instructions fold case.
func DefaultHeuristic() Heuristic {
	return Heuristic{
		Description:    ClassOrID("description", "description", false, "p"),
		Ingredients:    ClassOrID("ingredient", "ingredient", true, "li"),
		Instructions:   ClassOrID("instruction", "instruction", true, "p", "li"),
		NutritionTable: "table.nutrition-table",
	}
}

// fromHeuristic scans doc with h. Missing elements leave fields at their
// defaults; nothing here fails.
func fromHeuristic(doc *goquery.Document, h Heuristic) *Record {
	rec := &Record{Source: SourceHeuristic}

	if h1 := doc.Find("h1").First(); h1.Length() > 0 {
		rec.Title = h1.Text()
	}
	if desc := Select(doc, h.Description).First(); desc.Length() > 0 {
		rec.Description = desc.Text()
	}
	rec.Ingredients = texts(Select(doc, h.Ingredients))
	rec.Instructions = texts(Select(doc, h.Instructions))

	if h.NutritionTable != "" {
		if table := doc.Find(h.NutritionTable).First(); table.Length() > 0 {
			if rows := nutritionRows(table); len(rows) > 0 {
				rec.Nutrition = rows
			}
		}
	}

	return normalize(rec)
}

func texts(sel *goquery.Selection) []string {
	out := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

// nutritionRows reads every two-cell row of table as label/value.
func nutritionRows(table *goquery.Selection) map[string]string {
	rows := make(map[string]string)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.ChildrenFiltered("th, td")
		if cells.Length() != 2 {
			return
		}
		key := nutritionKey(cells.Eq(0).Text())
		if key == "" {
			return
		}
		rows[key] = strings.TrimSpace(cells.Eq(1).Text())
	})
	return rows
}

// nutritionKey lowercases a row label and drops all whitespace:
// "Fat Content" becomes "fatcontent".
func nutritionKey(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "")
}
