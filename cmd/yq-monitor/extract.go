package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sangdi-IT/yq-monitor/internal/adapters/decoders/notes"
	obs "github.com/Sangdi-IT/yq-monitor/internal/infrastructure/observability"
)

var (
	extractOutput   string
	extractLogLevel string
)

var extractCmd = &cobra.Command{
	Use:   "extract <file.har>",
	Short: "Extract note cards from a HAR file into JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		harPath := args[0]
		start := time.Now()
		logger := obs.NewLogger(extractLogLevel)

		in, err := os.Open(harPath)
		if err != nil {
			return fmt.Errorf("read har: %w", err)
		}
		defer in.Close()

		x, err := notes.NewExtractor(logger)
		if err != nil {
			return err
		}
		list, err := x.Extract(in)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			return notes.ErrNoNotes
		}

		out := extractOutput
		if out == "" {
			out = filepath.Join(filepath.Dir(harPath), notes.DefaultOutputName(harPath))
		} else if filepath.Ext(out) != ".json" {
			out += ".json"
		}
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("create %s: %w", out, err)
		}
		if err := notes.Save(f, list); err != nil {
			_ = f.Close()
			return fmt.Errorf("save %s: %w", out, err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "extracted %d notes to %s in %.2fs\n", len(list), out, time.Since(start).Seconds())
		return nil
	},
}

func init() {
	extractCmd.Flags().StringVarP(&extractOutput, "output", "o", "", "output JSON file (default <har name>_content.json)")
	extractCmd.Flags().StringVar(&extractLogLevel, "log-level", "warn", "log level")
}
