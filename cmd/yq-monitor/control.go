package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sangdi-IT/yq-monitor/interfaces/go/client"
)

var (
	serverURL     string
	startInterval int
	captureOnly   bool
	clickOnly     bool
	harFilename   string
)

func defaultServerURL() string {
	if v := os.Getenv("YQ_MONITOR_URL"); v != "" {
		return v
	}
	return "http://localhost:9092"
}

func newClient() *client.Client { return client.New(serverURL) }

func requestContext() (context.Context, context.CancelFunc) {
	// a capture stop writes the export before answering
	return context.WithTimeout(context.Background(), 2*time.Minute)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start capturing feed requests and the click loop",
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureOnly && clickOnly {
			return fmt.Errorf("--capture-only and --click-only are exclusive")
		}
		ctx, cancel := requestContext()
		defer cancel()
		c := newClient()
		if !clickOnly {
			resp, err := c.StartCapture(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "capture: %s\n", resp.Status)
		}
		if !captureOnly {
			resp, err := c.StartClicking(ctx, startInterval)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clicking: %s\n", resp.Status)
		}
		return nil
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the click loop and export the captured requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		if captureOnly && clickOnly {
			return fmt.Errorf("--capture-only and --click-only are exclusive")
		}
		ctx, cancel := requestContext()
		defer cancel()
		c := newClient()
		if !captureOnly {
			resp, err := c.StopClicking(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "clicking: %s\n", resp.Status)
		}
		if !clickOnly {
			resp, err := c.StopCapture(ctx)
			if err != nil {
				return err
			}
			count := 0
			if resp.Count != nil {
				count = *resp.Count
			}
			fmt.Fprintf(cmd.OutOrStdout(), "capture: %s, %d requests saved to %s\n", resp.Status, count, resp.File)
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show capture and click loop state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		st, err := newClient().Status(ctx)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), st)
	},
}

var exportHARCmd = &cobra.Command{
	Use:   "export-har",
	Short: "Save the browser's HAR, filtered by the URL keyword",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext()
		defer cancel()
		rec, err := newClient().ExportHAR(ctx, harFilename)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), rec)
	},
}

func init() {
	for _, c := range []*cobra.Command{startCmd, stopCmd, statusCmd, exportHARCmd} {
		c.Flags().StringVar(&serverURL, "server", defaultServerURL(), "control API base URL (env YQ_MONITOR_URL)")
	}
	for _, c := range []*cobra.Command{startCmd, stopCmd} {
		c.Flags().BoolVar(&captureOnly, "capture-only", false, "only touch request capture")
		c.Flags().BoolVar(&clickOnly, "click-only", false, "only touch the click loop")
	}
	startCmd.Flags().IntVar(&startInterval, "interval", 0, "delay between actions in ms (0 keeps the current one)")
	exportHARCmd.Flags().StringVar(&harFilename, "filename", "", "file name for the saved HAR (default network-log.har)")
}
