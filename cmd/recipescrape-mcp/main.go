package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/recipescrape/models"
	"github.com/use-agent/recipescrape/recipe"
)

func main() {
	apiURL := os.Getenv("RECIPESCRAPE_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("RECIPESCRAPE_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "RECIPESCRAPE_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"recipescrape",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	scrapeRecipeTool := mcp.NewTool("scrape_recipe",
		mcp.WithDescription("Extract a recipe (title, description, ingredients, instructions, nutrition) from a web page. Uses embedded schema.org data when present and falls back to scanning the page markup."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the recipe page"),
		),
		mcp.WithString("css_selector",
			mcp.Description("Optional CSS selector restricting extraction to part of the page"),
		),
		mcp.WithString("fetch_mode",
			mcp.Description("Fetch strategy: 'auto' (default), 'chrome' (browser TLS fingerprint) or 'http' (plain client)"),
			mcp.Enum("auto", "chrome", "http"),
		),
	)
	s.AddTool(scrapeRecipeTool, handleScrapeRecipe(apiURL, apiKey))

	batchTool := mcp.NewTool("batch_scrape_recipes",
		mcp.WithDescription("Extract recipes from several pages in parallel."),
		mcp.WithArray("urls",
			mcp.Required(),
			mcp.Description("List of recipe page URLs"),
		),
	)
	s.AddTool(batchTool, handleBatchScrape(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiDo sends a request to the recipescrape API and returns the response body.
func apiDo(ctx context.Context, client *http.Client, method, endpoint, apiKey string, payload any) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// pollJobCompletion polls a job endpoint until status is no longer "processing" or context is cancelled.
func pollJobCompletion(ctx context.Context, client *http.Client, endpoint, apiKey string) (*models.BatchStatusResponse, error) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
			body, err := apiDo(ctx, client, http.MethodGet, endpoint, apiKey, nil)
			if err != nil {
				return nil, err
			}
			var status models.BatchStatusResponse
			if err := json.Unmarshal(body, &status); err != nil {
				return nil, fmt.Errorf("parse poll status: %w", err)
			}
			if status.Status != models.BatchProcessing {
				return &status, nil
			}
		}
	}
}

func handleScrapeRecipe(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		target, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := models.ScrapeRecipeRequest{
			URL:         target,
			CSSSelector: request.GetString("css_selector", ""),
			FetchMode:   request.GetString("fetch_mode", ""),
		}
		body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/scrape-recipe", apiKey, payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.RecipeResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(failureMessage(&resp)), nil
		}
		return mcp.NewToolResultText(formatRecipe(target, resp.Recipe)), nil
	}
}

func handleBatchScrape(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 600 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		urls, err := request.RequireStringSlice("urls")
		if err != nil {
			return mcp.NewToolResultError("urls is required and must be an array of strings"), nil
		}

		body, err := apiDo(ctx, client, http.MethodPost, apiURL+"/api/v1/batch/scrape-recipe", apiKey,
			models.BatchRequest{URLs: urls})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("batch request failed: %v", err)), nil
		}

		var created models.BatchResponse
		if err := json.Unmarshal(body, &created); err != nil || created.ID == "" {
			return mcp.NewToolResultError("batch job creation failed"), nil
		}

		status, err := pollJobCompletion(ctx, client, apiURL+"/api/v1/batch/"+url.PathEscape(created.ID), apiKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("polling batch job failed: %v", err)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Batch %s: %s (%d/%d completed)\n\n", status.ID, status.Status, status.Completed, status.Total)
		for i, r := range status.Results {
			switch {
			case r == nil:
				fmt.Fprintf(&sb, "--- [%d] no result ---\n\n", i+1)
			case r.Success:
				fmt.Fprintf(&sb, "--- [%d] ---\n%s\n", i+1, formatRecipe(r.URL, r.Recipe))
			default:
				fmt.Fprintf(&sb, "--- [%d] FAILED: %s ---\n\n", i+1, failureMessage(r))
			}
		}
		return mcp.NewToolResultText(sb.String()), nil
	}
}

func failureMessage(r *models.RecipeResponse) string {
	switch {
	case r.Error != nil:
		return fmt.Sprintf("[%s] %s", r.Error.Code, r.Error.Message)
	case r.Message != "":
		return r.Message
	default:
		return "extraction failed"
	}
}

// formatRecipe renders a record as plain text for model consumption.
func formatRecipe(source string, rec *recipe.Record) string {
	if rec == nil {
		return ""
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\nSource: %s\n\n%s\n", rec.Title, source, rec.Description)

	sb.WriteString("\nIngredients:\n")
	for _, ing := range rec.Ingredients {
		fmt.Fprintf(&sb, "- %s\n", ing)
	}

	sb.WriteString("\nInstructions:\n")
	for i, step := range rec.Instructions {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, step)
	}

	if len(rec.Nutrition) > 0 {
		sb.WriteString("\nNutrition:\n")
		for _, k := range sortedKeys(rec.Nutrition) {
			if v := rec.Nutrition[k]; v != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", k, v)
			}
		}
	}
	return sb.String()
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
