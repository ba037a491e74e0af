// Command chartex extracts chart data from a document and writes it to
// a file, end to end, without the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/brunobiangulo/chartex"
	"github.com/brunobiangulo/chartex/export"
)

var (
	cfgFile    string
	formatFlag string
	outputPath string
	pageFlag   int
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "chartex <file>",
	Short: "Extract chart data from documents into xlsx, csv, or JSON",
	Long: `chartex converts a PDF, PPTX, or image into page images, runs each
page through a vision model, and exports the extracted chart data.`,
	Args: cobra.ExactArgs(1),
	RunE: run,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelInfo
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})))
		godotenv.Load()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "", "config file path (JSON or YAML)")
	rootCmd.Flags().StringVarP(&formatFlag, "format", "f", "xlsx", "export format: xlsx, csv, or json")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: derived from input)")
	rootCmd.Flags().IntVarP(&pageFlag, "page", "p", 0, "extract a single page instead of all pages")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable progress logging")
}

func run(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(formatFlag)
	if err != nil {
		return err
	}

	cfg, err := chartex.LoadConfig(cfgFile)
	if err != nil {
		return err
	}
	applyEnv(&cfg)

	session, err := chartex.New(cfg)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	doc, err := session.Load(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "loaded %s (%d pages)\n", doc.Filename, doc.TotalPages)

	pages := make([]int, 0, doc.TotalPages)
	if pageFlag > 0 {
		pages = append(pages, pageFlag)
	} else {
		for p := 1; p <= doc.TotalPages; p++ {
			pages = append(pages, p)
		}
	}

	var failed int
	for _, p := range pages {
		pe, err := session.ExtractPage(ctx, p)
		switch {
		case errors.Is(err, chartex.ErrNoPageImage):
			fmt.Fprintf(os.Stderr, "page %d: no image, skipped\n", p)
		case err != nil:
			failed++
			fmt.Fprintf(os.Stderr, "page %d: %v\n", p, err)
		case pe.HasCharts:
			fmt.Fprintf(os.Stderr, "page %d: %d chart(s), confidence %.2f\n", p, len(pe.Charts), pe.Confidence)
		default:
			fmt.Fprintf(os.Stderr, "page %d: no charts\n", p)
		}
	}
	if failed == len(pages) {
		return fmt.Errorf("all %d page(s) failed to extract", failed)
	}

	stem := strings.TrimSuffix(doc.Filename, "."+doc.Format)
	res, err := session.Export(format, stem)
	if err != nil {
		if errors.Is(err, export.ErrNoCharts) {
			return fmt.Errorf("no chart data found in %s", doc.Filename)
		}
		return err
	}

	out := outputPath
	if out == "" {
		out = res.Filename
	}
	if err := os.WriteFile(out, res.Data, 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Printf("wrote %s (%d bytes)\n", out, len(res.Data))
	if failed > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d page(s) failed to extract\n", failed)
	}
	return nil
}

// applyEnv mirrors the server's environment overrides so both entry
// points read the same variables.
func applyEnv(cfg *chartex.Config) {
	if v := os.Getenv("CHARTEX_VISION_PROVIDER"); v != "" {
		cfg.Vision.Provider = v
	}
	if v := os.Getenv("CHARTEX_VISION_BASE_URL"); v != "" {
		cfg.Vision.BaseURL = v
	}
	if v := os.Getenv("CHARTEX_VISION_MODEL"); v != "" {
		cfg.Vision.Model = v
	}
	if v := os.Getenv("CHARTEX_VISION_API_KEY"); v != "" {
		cfg.Vision.APIKey = v
	}
	if cfg.Vision.APIKey == "" {
		switch cfg.Vision.Provider {
		case "openai":
			cfg.Vision.APIKey = os.Getenv("OPENAI_API_KEY")
		case "openrouter":
			cfg.Vision.APIKey = os.Getenv("OPENROUTER_API_KEY")
		case "gemini":
			cfg.Vision.APIKey = os.Getenv("GEMINI_API_KEY")
		case "xai":
			cfg.Vision.APIKey = os.Getenv("XAI_API_KEY")
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
