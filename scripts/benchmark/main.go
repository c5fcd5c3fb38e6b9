package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
)

// Default pages covering the common recipe site layouts.
var defaultTargets = []target{
	{"JSON-LD", "https://www.allrecipes.com/recipe/16354/easy-meatloaf/"},
	{"JSON-LD graph", "https://www.bbcgoodfood.com/recipes/easy-pancakes"},
	{"Blog", "https://www.budgetbytes.com/homemade-meatballs/"},
	{"Heuristic", "https://www.simplyrecipes.com/recipes/banana_bread/"},
	{"No recipe", "https://example.com"},
}

type target struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// CLI defines the benchmark flags.
type CLI struct {
	APIURL    string `name:"api-url" default:"http://localhost:8080" help:"recipescrape API base URL"`
	APIKey    string `name:"api-key" env:"RECIPESCRAPE_API_KEY" help:"API key or bearer token"`
	Runs      int    `default:"3" help:"Number of runs per URL for averaging"`
	FetchMode string `default:"auto" enum:"auto,chrome,http" help:"Fetch mode sent with every request"`
	URLs      string `name:"urls" type:"existingfile" help:"File with one URL per line (optional label after a tab)"`
	Output    string `short:"o" default:"benchmark-results.json" help:"JSON output file path"`
}

type runResult struct {
	Run          int    `json:"run"`
	TotalMs      int64  `json:"total_ms"`
	FetchMs      int64  `json:"fetch_ms"`
	ExtractionMs int64  `json:"extraction_ms"`
	StatusCode   int    `json:"status_code"`
	EngineUsed   string `json:"engine_used,omitempty"`
	Source       string `json:"source,omitempty"`
	Ingredients  int    `json:"ingredients"`
	Instructions int    `json:"instructions"`
	HasTitle     bool   `json:"has_title"`
	Success      bool   `json:"success"`
	Error        string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs      float64 `json:"total_ms"`
	FetchMs      float64 `json:"fetch_ms"`
	ExtractionMs float64 `json:"extraction_ms"`
	Ingredients  float64 `json:"ingredients"`
	Instructions float64 `json:"instructions"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Label    string       `json:"label"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	FetchMode  string      `json:"fetch_mode"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	cli := &CLI{}
	kong.Parse(cli,
		kong.Name("benchmark"),
		kong.Description("Measure recipe extraction latency and yield against a running server"),
	)
	if err := run(context.Background(), cli, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cli *CLI, out io.Writer) error {
	targets := defaultTargets
	if cli.URLs != "" {
		f, err := os.Open(cli.URLs)
		if err != nil {
			return err
		}
		targets, err = readTargets(f)
		f.Close()
		if err != nil {
			return err
		}
	}

	fmt.Fprintln(out, "=== recipescrape benchmark ===")
	fmt.Fprintf(out, "API URL:   %s\n", cli.APIURL)
	fmt.Fprintf(out, "Mode:      %s\n", cli.FetchMode)
	fmt.Fprintf(out, "Runs/URL:  %d\n", cli.Runs)
	fmt.Fprintf(out, "Output:    %s\n\n", cli.Output)

	client := &http.Client{Timeout: 150 * time.Second}
	if err := checkAPI(ctx, client, cli.APIURL); err != nil {
		return fmt.Errorf("cannot reach API at %s: %w", cli.APIURL, err)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     cli.APIURL,
		FetchMode:  cli.FetchMode,
		RunsPerURL: cli.Runs,
	}

	for _, t := range targets {
		fmt.Fprintf(out, "Benchmarking [%s] %s ...\n", t.Label, t.URL)
		ur := urlResult{URL: t.URL, Label: t.Label}

		for i := 1; i <= cli.Runs; i++ {
			fmt.Fprintf(out, "  Run %d/%d ... ", i, cli.Runs)
			rr := benchmarkURL(ctx, client, cli, t.URL, i)
			if rr.Success {
				fmt.Fprintf(out, "OK  %dms  %s/%s  %d ingredients\n", rr.TotalMs, rr.EngineUsed, rr.Source, rr.Ingredients)
			} else {
				fmt.Fprintf(out, "FAILED: %s\n", rr.Error)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Fprintln(out)
	}

	printTable(out, report.Results)

	if err := writeJSON(cli.Output, report); err != nil {
		return fmt.Errorf("writing JSON output: %w", err)
	}
	fmt.Fprintf(out, "\nDetailed results written to %s\n", cli.Output)
	return nil
}

// readTargets parses one URL per line. Blank lines and lines starting
// with # are skipped; a tab separates an optional label.
func readTargets(r io.Reader) ([]target, error) {
	var targets []target
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		t := target{URL: line, Label: "-"}
		if u, label, ok := strings.Cut(line, "\t"); ok {
			t.URL, t.Label = strings.TrimSpace(u), strings.TrimSpace(label)
		}
		targets = append(targets, t)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(targets) == 0 {
		return nil, fmt.Errorf("no URLs in file")
	}
	return targets, nil
}

func checkAPI(ctx context.Context, client *http.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/v1/health", nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(ctx context.Context, client *http.Client, cli *CLI, url string, run int) runResult {
	rr := runResult{Run: run}

	bodyBytes, err := json.Marshal(models.ScrapeRecipeRequest{
		URL:       url,
		Timeout:   120,
		FetchMode: cli.FetchMode,
	})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cli.APIURL+"/api/v1/scrape-recipe", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if cli.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cli.APIKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr models.RecipeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v (HTTP %d)", err, resp.StatusCode)
		return rr
	}
	return toRunResult(rr, &sr)
}

func toRunResult(rr runResult, sr *models.RecipeResponse) runResult {
	rr.Success = sr.Success
	rr.StatusCode = sr.StatusCode
	rr.EngineUsed = sr.EngineUsed
	rr.TotalMs = sr.Timing.TotalMs
	rr.FetchMs = sr.Timing.FetchMs
	rr.ExtractionMs = sr.Timing.ExtractionMs
	if sr.Recipe != nil {
		rr.Source = string(sr.Recipe.Source)
		rr.Ingredients = len(sr.Recipe.Ingredients)
		rr.Instructions = len(sr.Recipe.Instructions)
		rr.HasTitle = sr.Recipe.Title != recipe.NoTitle
	}
	switch {
	case sr.Error != nil:
		rr.Error = sr.Error.Message
	case !sr.Success && sr.Message != "":
		rr.Error = sr.Message
	}
	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		avg.TotalMs += float64(r.TotalMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.ExtractionMs += float64(r.ExtractionMs)
		avg.Ingredients += float64(r.Ingredients)
		avg.Instructions += float64(r.Instructions)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.FetchMs /= n
	avg.ExtractionMs /= n
	avg.Ingredients /= n
	avg.Instructions /= n
	return &avg
}

func printTable(out io.Writer, results []urlResult) {
	fmt.Fprintln(out, strings.Repeat("─", 85))
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tIngredients\tSteps\tEngine\n")
	fmt.Fprintf(w, "───\t───────────\t───────────\t─────\t──────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%dms\t%.1f\t%.1f\t%s\n",
			truncateURL(r.URL, 40),
			int64(r.Averages.TotalMs),
			r.Averages.Ingredients,
			r.Averages.Instructions,
			dominantEngine(r.Runs),
		)
	}

	w.Flush()
	fmt.Fprintln(out, strings.Repeat("─", 85))
}

// dominantEngine returns the engine that won most successful runs. Ties
// go to the engine seen first.
func dominantEngine(runs []runResult) string {
	counts := map[string]int{}
	best, bestCount := "", 0
	for _, r := range runs {
		if !r.Success {
			continue
		}
		counts[r.EngineUsed]++
		if counts[r.EngineUsed] > bestCount {
			best, bestCount = r.EngineUsed, counts[r.EngineUsed]
		}
	}
	return best
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
