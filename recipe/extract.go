package recipe

import (
	"log/slog"

	"github.com/PuerkitoBio/goquery"
)

// Observer receives extraction events. Implementations must be safe for
// concurrent use.
type Observer interface {
	// BlockSkipped is called for every JSON-LD block that could not be used.
	BlockSkipped(reason string)
	// Extracted is called once per successful extraction.
	Extracted(source Source)
	// NotFound is called when neither path found recipe content.
	NotFound()
}

type nopObserver struct{}

func (nopObserver) BlockSkipped(string) {}
func (nopObserver) Extracted(Source) {}
func (nopObserver) NotFound() {}

// Extractor turns parsed documents into Records. It holds no per-call
// state and is safe for concurrent use.
type Extractor struct {
	heuristic Heuristic
	observer  Observer
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithObserver routes extraction events to o.
func WithObserver(o Observer) Option {
	return func(e *Extractor) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithHeuristic replaces the fallback matchers.
func WithHeuristic(h Heuristic) Option {
	return func(e *Extractor) {
		e.heuristic = h
	}
}

// NewExtractor creates an Extractor using DefaultHeuristic.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{
		heuristic: DefaultHeuristic(),
		observer:  nopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the recipe in doc. A JSON-LD Recipe object wins outright
// and the heuristic scan is not run. When the heuristic scan finds nothing
// either, Extract returns the defaulted record together with ErrNoRecipe.
func (e *Extractor) Extract(doc *goquery.Document) (*Record, error) {
	if v, ok := e.findStructured(doc); ok {
		e.observer.Extracted(SourceStructured)
		return fromStructured(v), nil
	}

	rec := fromHeuristic(doc, e.heuristic)
	if rec.Empty() {
		slog.Debug("recipe: no structured data and no heuristic matches")
		e.observer.NotFound()
		return rec, ErrNoRecipe
	}
	e.observer.Extracted(SourceHeuristic)
	return rec, nil
}

var defaultExtractor = NewExtractor()

// Extract runs the default Extractor on doc.
func Extract(doc *goquery.Document) (*Record, error) {
	return defaultExtractor.Extract(doc)
}
