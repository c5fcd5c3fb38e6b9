package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/use-agent/recipescrape/config"
	"github.com/use-agent/recipescrape/engine"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
	"github.com/use-agent/recipescrape/scraper"
)

func main() {
	ctx := context.Background()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct{}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	File      string        `short:"f" help:"Read HTML from a local file instead of fetching (\"-\" for stdin, as --file=-)"`
	Selector  string        `short:"s" help:"CSS selector restricting extraction to part of the page"`
	FetchMode string        `short:"m" default:"auto" enum:"auto,chrome,http" help:"Fetch strategy (auto, chrome, http)"`
	Timeout   time.Duration `short:"t" default:"30s" help:"Fetch timeout"`
	Compact   bool          `help:"Print JSON on a single line"`
	URL       string        `arg:"" optional:"" help:"Recipe page URL"`
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("recipe-extract"),
		kong.Description("Extract a recipe from a web page or local HTML file and print it as JSON"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}
	if (cli.File == "") == (cli.URL == "") {
		return fmt.Errorf("provide exactly one of a URL or --file")
	}

	rec, extractErr := cli.extract(ctx, stdin)
	if rec == nil {
		return extractErr
	}
	if err := writeJSON(stdout, rec, !cli.Compact); err != nil {
		return err
	}
	if errors.Is(extractErr, recipe.ErrNoRecipe) {
		return fmt.Errorf("no recipe found")
	}
	return extractErr
}

func (cli *CLI) extract(ctx context.Context, stdin io.Reader) (*recipe.Record, error) {
	if cli.File != "" {
		body, err := readFile(cli.File, stdin)
		if err != nil {
			return nil, err
		}
		return scraper.New(nil, nil, config.FetchConfig{}).ExtractHTML(body, "", cli.Selector)
	}

	fetchCfg := config.FetchConfig{
		DefaultTimeout:   cli.Timeout,
		MaxTimeout:       cli.Timeout,
		EscalationDelays: []time.Duration{0, 2 * time.Second},
	}
	dispatcher, stop, err := engine.NewFromConfig(fetchCfg)
	if err != nil {
		return nil, err
	}
	defer stop()

	res, err := scraper.New(dispatcher, nil, fetchCfg).Scrape(ctx, &models.ScrapeRecipeRequest{
		URL:         cli.URL,
		Timeout:     int(cli.Timeout.Seconds()),
		CSSSelector: cli.Selector,
		FetchMode:   cli.FetchMode,
	})
	if res == nil {
		return nil, err
	}
	return res.Recipe, err
}

func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any, pretty bool) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
