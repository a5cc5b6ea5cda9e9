package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/ghostwriter/internal/cli"
	"github.com/hyperjump/ghostwriter/internal/config"
	"github.com/hyperjump/ghostwriter/internal/indexer"
	"github.com/hyperjump/ghostwriter/internal/models"
	"github.com/hyperjump/ghostwriter/internal/server"
)

var (
	outputFormat string

	searchServerURL string
	searchType      string
	searchProjects  []string
	searchTopK      int
	searchMode      string

	ingestType    string
	ingestProject string
	ingestUser    string
	ingestName    string

	chunkType    string
	chunkSize    int
	chunkOverlap int
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE:  runServer,
}

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored chunks",
	Long: `Ranks stored chunks against the query. The default hybrid mode blends keyword
and vector scores (0.3/0.7) and falls back to keywords only when no embeddings are usable.
Multi-word queries work with or without quotes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Chunk, store, and embed a text document (\"-\" reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

var deleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document and its chunks",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var backfillCmd = &cobra.Command{
	Use:   "backfill",
	Short: "Embed every stored chunk that has no embedding yet",
	Args:  cobra.NoArgs,
	RunE:  runBackfill,
}

var chunkCmd = &cobra.Command{
	Use:   "chunk [file]",
	Short: "Print how a document would be chunked (\"-\" reads stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runChunk,
}

var keywordsCmd = &cobra.Command{
	Use:   "keywords [text]",
	Short: "Print the keywords extracted from text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.WriteKeywords(cmd.OutOrStdout(), indexer.ExtractKeywords(strings.Join(args, " ")), cli.OutputFormat(outputFormat))
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config [path]",
	Short: "Write a config file holding the defaults",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err == nil {
			return fmt.Errorf("%s already exists", args[0])
		}
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		if err := config.Save(args[0], cfg); err != nil {
			return err
		}
		cmd.Printf("Config written: %s\n", args[0])
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("ghostwriter version %s\n", version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "text", "output format: text or json")

	searchCmd.Flags().StringVar(&searchServerURL, "server", "http://localhost:8080", `server URL (empty = search storage directly)`)
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "document type: style or content (empty = both)")
	searchCmd.Flags().StringSliceVarP(&searchProjects, "project", "p", nil, "restrict to project ids")
	searchCmd.Flags().IntVarP(&searchTopK, "limit", "n", 0, "number of results (0 = configured default)")
	searchCmd.Flags().StringVar(&searchMode, "mode", "hybrid", "ranking: hybrid, keyword, or vector")

	ingestCmd.Flags().StringVarP(&ingestType, "type", "t", string(models.DocumentTypeContent), "document type: style or content")
	ingestCmd.Flags().StringVarP(&ingestProject, "project", "p", "", "project id")
	ingestCmd.Flags().StringVar(&ingestUser, "user", "", "user id")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "filename to record (defaults to the file's base name)")

	chunkCmd.Flags().StringVarP(&chunkType, "type", "t", string(models.DocumentTypeContent), "document type whose chunk size applies")
	chunkCmd.Flags().IntVar(&chunkSize, "size", 0, "chunk size override")
	chunkCmd.Flags().IntVar(&chunkOverlap, "overlap", -1, "overlap override")

	rootCmd.AddCommand(serverCmd, searchCmd, ingestCmd, deleteCmd, backfillCmd, chunkCmd, keywordsCmd, initConfigCmd, versionCmd)
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	srv := server.NewServer(components.Engine, components.Indexer, components.Backfill, components.Store, cfg, logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-sigChan:
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(ctx)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchPath maps a --mode value to its API route.
func searchPath(mode string) (string, error) {
	switch mode {
	case "hybrid", "":
		return "/api/v1/search", nil
	case "keyword":
		return "/api/v1/search/keyword", nil
	case "vector":
		return "/api/v1/search/vector", nil
	default:
		return "", fmt.Errorf("unknown search mode %q; use hybrid, keyword, or vector", mode)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	req := &models.SearchRequest{
		Query:      buildSearchQuery(args),
		Type:       models.DocumentType(searchType),
		ProjectIDs: searchProjects,
		TopK:       searchTopK,
	}
	path, err := searchPath(searchMode)
	if err != nil {
		return err
	}
	format := cli.OutputFormat(outputFormat)

	if searchServerURL != "" {
		// Use the HTTP API when the server is running (avoids a second writer on SQLite).
		response, err := searchViaHTTP(searchServerURL+path, req)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	var response *models.SearchResponse
	switch searchMode {
	case "keyword":
		response, err = components.Engine.KeywordSearch(cmd.Context(), req)
	case "vector":
		response, err = components.Engine.VectorSearch(cmd.Context(), req)
	default:
		response, err = components.Engine.Search(cmd.Context(), req)
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	return cli.WriteSearchResults(cmd.OutOrStdout(), response, format)
}

func searchViaHTTP(url string, req *models.SearchRequest) (*models.SearchResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var response models.SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &response, nil
}

// readInput returns the contents of path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	name := ingestName
	if name == "" && args[0] != "-" {
		name = filepath.Base(args[0])
	}

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	// The process exits right after; embed before returning.
	f := false
	cfg.Chunking.AsyncEmbedding = &f
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	doc, err := components.Indexer.Ingest(cmd.Context(), indexer.IngestInput{
		Filename:  name,
		Type:      models.DocumentType(ingestType),
		Content:   content,
		UserID:    ingestUser,
		ProjectID: ingestProject,
	})
	if err != nil {
		return fmt.Errorf("ingest failed: %w", err)
	}
	logger.Debug("document ingested", zap.String("doc_id", doc.ID), zap.Int("chunks", doc.ChunkCount))
	if cli.OutputFormat(outputFormat) == cli.OutputJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	}
	cmd.Printf("Document stored: %s (%d chunks)\n", doc.ID, doc.ChunkCount)
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.Indexer.DeleteDocument(cmd.Context(), args[0]); err != nil {
		return fmt.Errorf("deletion failed: %w", err)
	}
	cmd.Printf("Document deleted: %s\n", args[0])
	return nil
}

func runBackfill(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()
	components, err := initializeComponents(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer components.Close()

	res, err := components.Backfill.Run(cmd.Context())
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	cmd.Printf("Embedded %d chunk(s), %d error(s)\n", res.Indexed, res.Errors)
	return nil
}

func runChunk(cmd *cobra.Command, args []string) error {
	content, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	docType, err := models.ParseDocumentType(chunkType)
	if err != nil {
		return err
	}
	params := indexer.ChunkParamsFor(docType)
	if chunkSize > 0 {
		params.Size = chunkSize
	}
	if chunkOverlap >= 0 {
		params.Overlap = chunkOverlap
	}
	chunks, err := indexer.ChunkText(indexer.Preprocess(content), params.Size, params.Overlap)
	if err != nil {
		return err
	}
	return cli.WriteChunks(cmd.OutOrStdout(), chunks, cli.OutputFormat(outputFormat))
}
