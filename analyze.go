package main

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/landing-verdict/backend/analyzer"
)

var (
	analyzeFile   string
	analyzeFormat string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [url]",
	Short: "Print the verdict for a URL or a local HTML file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := checkFormat(analyzeFormat); err != nil {
			return err
		}
		if (len(args) == 0) == (analyzeFile == "") {
			return eris.New("analyze: pass exactly one of a url argument or --file")
		}

		a := analyzer.New(analyzer.Config{
			Fetch:          cfg.Fetch.Fetcher(),
			MaxConcurrency: cfg.Batch.MaxConcurrency,
		}, nil)
		defer a.Shutdown()

		var (
			v   *analyzer.Verdict
			err error
		)
		if analyzeFile != "" {
			html, readErr := os.ReadFile(analyzeFile)
			if readErr != nil {
				return eris.Wrapf(readErr, "analyze: read %s", analyzeFile)
			}
			v, err = a.AnalyzeHTML(cmd.Context(), "file://"+analyzeFile, string(html))
		} else {
			v, err = a.AnalyzeURL(cmd.Context(), args[0])
		}
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), v, analyzeFormat)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFile, "file", "", "analyze a local HTML or text file instead of a URL")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "json", "output format: json or yaml")
}

func checkFormat(format string) error {
	switch strings.ToLower(format) {
	case "json", "yaml":
		return nil
	}
	return eris.Errorf("analyze: unknown format %q", format)
}

// render writes v as indented JSON or YAML.
func render(w io.Writer, v any, format string) error {
	switch strings.ToLower(format) {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "analyze: encode yaml")
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "analyze: encode json")
	}
	return checkFormat(format)
}
