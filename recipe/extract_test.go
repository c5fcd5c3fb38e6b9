package recipe_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/recipescrape/recipe"
)

func parse(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func ldJSON(body string) string {
	return `<script type="application/ld+json">` + body + `</script>`
}

// countingObserver records observer callbacks.
type countingObserver struct {
	mu        sync.Mutex
	skipped   []string
	extracted []recipe.Source
	notFound  int
}

func (o *countingObserver) BlockSkipped(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.skipped = append(o.skipped, reason)
}

func (o *countingObserver) Extracted(source recipe.Source) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.extracted = append(o.extracted, source)
}

func (o *countingObserver) NotFound() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notFound++
}

func TestExtract_StructuredShortCircuitsHeuristic(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><head>`+ldJSON(`{
		"@context": "https://schema.org",
		"@type": "Recipe",
		"name": "Structured Pancakes",
		"recipeIngredient": ["1 cup flour", "2 eggs"],
		"recipeInstructions": [{"@type": "HowToStep", "text": "Whisk."}, {"@type": "HowToStep", "text": "Fry."}]
	}`)+`</head><body>
		<h1>Heuristic Title</h1>
		<p class="description">Heuristic description</p>
		<ul><li class="ingredient">heuristic ingredient</li></ul>
		<p class="instruction">heuristic step</p>
	</body></html>`)

	obs := &countingObserver{}
	rec, err := recipe.NewExtractor(recipe.WithObserver(obs)).Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Structured Pancakes", rec.Title)
	assert.Equal(t, []string{"1 cup flour", "2 eggs"}, rec.Ingredients)
	assert.Equal(t, []string{"Whisk.", "Fry."}, rec.Instructions)
	assert.Equal(t, recipe.NoDescription, rec.Description, "heuristic description must not leak in")
	assert.Nil(t, rec.Nutrition)
	assert.Equal(t, recipe.SourceStructured, rec.Source)
	assert.Equal(t, []recipe.Source{recipe.SourceStructured}, obs.extracted)
}

func TestExtract_SkipsMalformedBlock(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><head>`+
		ldJSON(`{"@type": "Recipe", "name": broken`)+
		ldJSON(`{"@type": "Recipe", "name": "Second Block", "recipeIngredient": ["salt"]}`)+
		`</head><body><h1>Fallback</h1></body></html>`)

	obs := &countingObserver{}
	rec, err := recipe.NewExtractor(recipe.WithObserver(obs)).Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Second Block", rec.Title)
	assert.Equal(t, []string{"salt"}, rec.Ingredients)
	assert.Equal(t, recipe.SourceStructured, rec.Source)
	assert.Equal(t, []string{recipe.SkipMalformed}, obs.skipped)
}

func TestExtract_MalformedOnlyFallsBackToHeuristic(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><head>`+ldJSON(`not json at all`)+`</head>
		<body><h1>Only Heuristic</h1><li class="recipe-ingredient">pepper</li></body></html>`)

	rec, err := recipe.Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, "Only Heuristic", rec.Title)
	assert.Equal(t, []string{"pepper"}, rec.Ingredients)
	assert.Equal(t, recipe.SourceHeuristic, rec.Source)
}

func TestExtract_InstructionShapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		instructions string
		want         []string
	}{
		{
			name:         "plain string",
			instructions: `"Mix everything and bake."`,
			want:         []string{"Mix everything and bake."},
		},
		{
			name:         "list of strings",
			instructions: `["Mix.", "  ", "Bake."]`,
			want:         []string{"Mix.", "Bake."},
		},
		{
			name:         "list of step objects",
			instructions: `[{"text": "Mix."}, {"name": "no text"}, {"text": ""}, {"text": "Bake."}]`,
			want:         []string{"Mix.", "Bake."},
		},
		{
			name:         "sections are flattened",
			instructions: `[{"@type": "HowToSection", "name": "Dough", "itemListElement": [{"text": "Knead."}, {"text": "Rest."}]}, {"text": "Bake."}]`,
			want:         []string{"Knead.", "Rest.", "Bake."},
		},
		{
			name:         "string-led list keeps step objects",
			instructions: `["Mix.", {"text": "Bake."}, {"name": "no text"}]`,
			want:         []string{"Mix.", "Bake."},
		},
		{
			name:         "object-led list drops bare strings",
			instructions: `[{"text": "Mix."}, "stray"]`,
			want:         []string{"Mix."},
		},
		{
			name:         "empty list",
			instructions: `[]`,
			want:         []string{},
		},
		{
			name:         "null",
			instructions: `null`,
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := parse(t, ldJSON(`{"@type": "Recipe", "name": "X", "recipeInstructions": `+tt.instructions+`}`))
			rec, err := recipe.Extract(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Instructions)
		})
	}
}

func TestExtract_MissingInstructionsIsEmpty(t *testing.T) {
	t.Parallel()

	rec, err := recipe.Extract(parse(t, ldJSON(`{"@type": "Recipe"}`)))
	require.NoError(t, err)
	assert.Equal(t, recipe.NoTitle, rec.Title)
	assert.Equal(t, recipe.NoDescription, rec.Description)
	assert.NotNil(t, rec.Ingredients)
	assert.Empty(t, rec.Ingredients)
	assert.NotNil(t, rec.Instructions)
	assert.Empty(t, rec.Instructions)
}

func TestExtract_GraphAndArrayContainers(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		block string
		title string
		src   recipe.Source
	}{
		{
			name:  "top-level array",
			block: `[{"@type": "WebSite", "name": "Site"}, {"@type": "Recipe", "name": "From Array"}]`,
			title: "From Array",
			src:   recipe.SourceStructured,
		},
		{
			name:  "graph",
			block: `{"@context": "https://schema.org", "@graph": [{"@type": "WebPage", "name": "Page"}, {"@type": "Recipe", "name": "From Graph"}]}`,
			title: "From Graph",
			src:   recipe.SourceStructured,
		},
		{
			name:  "multi-typed object",
			block: `{"@type": ["Recipe", "NewsArticle"], "name": "Multi"}`,
			title: "Multi",
			src:   recipe.SourceStructured,
		},
		{
			name:  "graph without recipe ignores own type",
			block: `{"@type": "Recipe", "name": "Outer", "@graph": [{"@type": "WebPage"}]}`,
			title: "Heuristic",
			src:   recipe.SourceHeuristic,
		},
		{
			name:  "array skips non-object entries",
			block: `["text", 3, {"@type": "Recipe", "name": "After Scalars"}]`,
			title: "After Scalars",
			src:   recipe.SourceStructured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			doc := parse(t, `<html><head>`+ldJSON(tt.block)+`</head><body><h1>Heuristic</h1></body></html>`)
			rec, err := recipe.Extract(doc)
			require.NoError(t, err)
			assert.Equal(t, tt.title, rec.Title)
			assert.Equal(t, tt.src, rec.Source)
		})
	}
}

func TestExtract_StructuredNutrition(t *testing.T) {
	t.Parallel()

	doc := parse(t, ldJSON(`{
		"@type": "Recipe",
		"name": "Soup",
		"description": "  A   warm soup. ",
		"nutrition": {"@type": "NutritionInformation", "calories": "250 kcal", "proteinContent": 12, "sodiumContent": "1g"}
	}`))

	rec, err := recipe.Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, "A warm soup.", rec.Description)
	assert.Equal(t, map[string]string{
		"calories":            "250 kcal",
		"fatContent":          "",
		"carbohydrateContent": "",
		"proteinContent":      "12",
	}, rec.Nutrition)
}

func TestExtract_NonObjectNutritionIsAbsent(t *testing.T) {
	t.Parallel()

	for _, nutrition := range []string{`null`, `"250 kcal"`, `["250 kcal"]`} {
		doc := parse(t, ldJSON(`{"@type": "Recipe", "name": "Soup", "nutrition": `+nutrition+`}`))
		rec, err := recipe.Extract(doc)
		require.NoError(t, err, nutrition)
		assert.Nil(t, rec.Nutrition, nutrition)
	}
}

func TestExtract_LDJSONTypeWithParameters(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><head><script type="application/ld+json; charset=utf-8">{"@type": "Recipe", "name": "Charset Soup"}</script></head>`+
		`<body><h1>Heuristic</h1></body></html>`)

	rec, err := recipe.Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, "Charset Soup", rec.Title)
	assert.Equal(t, recipe.SourceStructured, rec.Source)
}

func TestExtract_HeuristicFields(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body>
		<h1>
			Grandma's   Stew
		</h1>
		<h1>Second heading</h1>
		<p class="Description">Wrong case, ignored.</p>
		<p id="recipe-description">A hearty stew.</p>
		<ul>
			<li class="list-item Ingredient-line">1 lb beef</li>
			<li id="ingredient-2">2 carrots</li>
			<li class="ingredient">   </li>
			<li class="other">not an ingredient</li>
		</ul>
		<ol>
			<li class="step instructions">Brown the beef.</li>
		</ol>
		<p class="recipe-instruction">Simmer for two hours.</p>
		<div class="instruction">divs are not scanned</div>
		<table class="nutrition-table">
			<tr><th>Calories</th><td>250</td></tr>
			<tr><td>Fat Content</td><td> 10g </td></tr>
			<tr><td>Per serving</td></tr>
			<tr><td>a</td><td>b</td><td>c</td></tr>
		</table>
	</body></html>`)

	rec, err := recipe.Extract(doc)
	require.NoError(t, err)

	assert.Equal(t, "Grandma's Stew", rec.Title)
	assert.Equal(t, "A hearty stew.", rec.Description)
	assert.Equal(t, []string{"1 lb beef", "2 carrots"}, rec.Ingredients)
	assert.Equal(t, []string{"Brown the beef.", "Simmer for two hours."}, rec.Instructions)
	assert.Equal(t, map[string]string{"calories": "250", "fatcontent": "10g"}, rec.Nutrition)
	assert.Equal(t, recipe.SourceHeuristic, rec.Source)
}

func TestExtract_NoRecipe(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><h2>Blog</h2><p>Nothing to cook here.</p><li>item</li></body></html>`)

	obs := &countingObserver{}
	rec, err := recipe.NewExtractor(recipe.WithObserver(obs)).Extract(doc)
	require.ErrorIs(t, err, recipe.ErrNoRecipe)
	require.NotNil(t, rec)

	assert.Equal(t, recipe.NoTitle, rec.Title)
	assert.Equal(t, recipe.NoDescription, rec.Description)
	assert.Equal(t, []string{}, rec.Ingredients)
	assert.Equal(t, []string{}, rec.Instructions)
	assert.Nil(t, rec.Nutrition)
	assert.Equal(t, 1, obs.notFound)
}

func TestExtract_EmptyNutritionTableIsNoRecipe(t *testing.T) {
	t.Parallel()

	doc := parse(t, `<html><body><table class="nutrition-table"><tr><td>only one</td></tr></table></body></html>`)

	rec, err := recipe.Extract(doc)
	require.ErrorIs(t, err, recipe.ErrNoRecipe)
	assert.Nil(t, rec.Nutrition)
	assert.Equal(t, recipe.NoTitle, rec.Title)
}

func TestExtract_TitleOnlyIsARecipe(t *testing.T) {
	t.Parallel()

	rec, err := recipe.Extract(parse(t, `<html><body><h1>Just a title</h1></body></html>`))
	require.NoError(t, err)
	assert.Equal(t, "Just a title", rec.Title)
	assert.Empty(t, rec.Ingredients)
}

func TestExtract_Idempotent(t *testing.T) {
	t.Parallel()

	docs := map[string]string{
		"structured": ldJSON(`{"@type": "Recipe", "name": "Same", "recipeInstructions": "Stir."}`),
		"heuristic":  `<h1>Same</h1><li class="ingredient">salt</li><table class="nutrition-table"><tr><td>Calories</td><td>5</td></tr></table>`,
	}

	for name, html := range docs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			doc := parse(t, html)
			before, err := doc.Html()
			require.NoError(t, err)

			first, err := recipe.Extract(doc)
			require.NoError(t, err)
			second, err := recipe.Extract(doc)
			require.NoError(t, err)

			after, err := doc.Html()
			require.NoError(t, err)

			assert.Equal(t, first, second)
			assert.Equal(t, before, after)
		})
	}
}

func TestExtract_CustomHeuristic(t *testing.T) {
	t.Parallel()

	h := recipe.DefaultHeuristic()
	h.Ingredients = recipe.TagClassMatcher{Tags: []string{"span"}, Substr: "ingr", FoldCase: true}

	doc := parse(t, `<h1>Custom</h1><span class="INGR">flour</span><li class="ingredient">ignored</li>`)
	rec, err := recipe.NewExtractor(recipe.WithHeuristic(h)).Extract(doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"flour"}, rec.Ingredients)
}
