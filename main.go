package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/xmlforge/xmlmod/pkg/config"
	"github.com/xmlforge/xmlmod/pkg/pipeline"
	"github.com/xmlforge/xmlmod/pkg/schema"
)

const version = "0.1.0"

var (
	cfgFile   string
	inputDir  string
	outputDir string
	verbose   bool

	exitCode int
)

var rootCmd = &cobra.Command{
	Use:   "xmlmod",
	Short: "Rule-driven XML document modification",
	Long: `xmlmod parses every XML file in an input directory, applies the
configured XPath replacement rules, optionally validates the result
against an XML schema, and writes the transformed documents along with
a per-document audit log of every decision made.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVarP(&cfgFile, "config", "c", "config.json", "configuration file (JSON or YAML)")
	rootCmd.Flags().StringVar(&inputDir, "input", "", "override the configured input directory")
	rootCmd.Flags().StringVar(&outputDir, "output", "", "override the configured output directory")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if inputDir != "" {
		cfg.InputDirectory = inputDir
	}
	if outputDir != "" {
		cfg.OutputDirectory = outputDir
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	var sch *schema.Schema
	if cfg.SchemaValidation.Enabled {
		sch, err = schema.Load(cfg.SchemaValidation.SchemaPath)
		if err != nil {
			return err
		}
	}

	summary, err := pipeline.ProcessDirectory(cfg, sch, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Processed: %d, Modified: %d, Failed: %d\n",
		summary.Processed, summary.Modified, summary.Failed)
	for _, failure := range summary.Failures {
		fmt.Fprintf(os.Stderr, "  failed: %s\n", failure)
	}
	if summary.Failed > 0 {
		exitCode = 1
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
