package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/user/crawl-pilot/internal/adapter/analyzer"
	"github.com/user/crawl-pilot/internal/adapter/chromedp_scanner"
	"github.com/user/crawl-pilot/internal/entity"
	"github.com/user/crawl-pilot/pkg/utils"
)

type scanOutput struct {
	*entity.ScanResult
	SEO *entity.SEOReport `json:"seo,omitempty"`
}

func scanCMD(envFile *string) *cobra.Command {
	var withSEO bool
	scan := &cobra.Command{
		Use:   "scan <url>",
		Short: "Scan a single page and print what was found",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pageURL := args[0]
			if !utils.IsAbsoluteHTTP(pageURL) {
				return fmt.Errorf("%q is not an absolute http(s) URL", pageURL)
			}
			cfg, err := bootstrap(*envFile)
			if err != nil {
				return err
			}

			scanner, err := chromedp_scanner.NewChromedpScanner(1, cfg.PageLoadTimeout())
			if err != nil {
				return fmt.Errorf("failed to start browser: %w", err)
			}
			defer scanner.Close()

			result, err := scanner.Scan(cmd.Context(), pageURL)
			if err != nil {
				return err
			}
			out := scanOutput{ScanResult: result}
			if withSEO {
				out.SEO, err = analyzer.NewSEOAnalyzer().Analyze(cmd.Context(), result.URL, result.Markup)
				if err != nil {
					slog.Warn("SEO analysis failed", "url", result.URL, "error", err)
				}
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}
	scan.Flags().BoolVar(&withSEO, "seo", false, "also run the SEO analysis on the page")
	return scan
}
