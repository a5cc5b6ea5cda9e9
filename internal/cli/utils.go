// Package cli provides output formatting for the ghostwriter command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// previewLength is how many characters of a chunk the text format shows.
const previewLength = 200

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, response *models.SearchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d results in %dms", len(response.Results), response.QueryTime)
	if response.Degraded {
		fmt.Fprintf(w, " (keyword only: %s)", response.Reason)
	} else if response.Strategy != "" {
		fmt.Fprintf(w, " (vector: %s)", response.Strategy)
	}
	fmt.Fprint(w, "\n\n")
	for i, result := range response.Results {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Rank: %d | Score: %.4f\n", i+1, result.Score)
		fmt.Fprintf(w, "ID: %s\n", result.ID)
		fmt.Fprintf(w, "\n%s\n\n", utils.Truncate(result.Content, previewLength))
	}
	return nil
}

// WriteChunks writes the output of the chunker.
func WriteChunks(w io.Writer, chunks []string, format OutputFormat) error {
	if format == OutputJSON {
		if chunks == nil {
			chunks = []string{}
		}
		return writeJSON(w, map[string][]string{"chunks": chunks})
	}
	fmt.Fprintf(w, "%d chunks\n", len(chunks))
	for i, c := range chunks {
		fmt.Fprintf(w, "\n[%d] %d chars\n%s\n", i, len([]rune(c)), utils.Truncate(c, previewLength))
	}
	return nil
}

// WriteKeywords writes extracted keywords.
func WriteKeywords(w io.Writer, keywords []string, format OutputFormat) error {
	if format == OutputJSON {
		if keywords == nil {
			keywords = []string{}
		}
		return writeJSON(w, map[string][]string{"keywords": keywords})
	}
	fmt.Fprintln(w, strings.Join(keywords, ", "))
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
