package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/spf13/cobra"
)

var (
	generateRequestPath string
	generateOutputPath  string
	generateHTMLOnly    bool
	generateNoHistory   bool
	generateVerbose     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one slide from a JSON request file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if generateRequestPath == "" {
			return fmt.Errorf("--request is required")
		}

		reqBytes, err := os.ReadFile(generateRequestPath)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		var req generate.Request
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg, !generateNoHistory)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		var opts []synth.Option
		if generateVerbose {
			opts = append(opts, synth.WithObserver(func(ev synth.SlotEvent) {
				if ev.Feedback != "" {
					logger.Info("[Generate] %s attempt %d: %d chars, %s", ev.SlotID, ev.Attempt, ev.CharCount, ev.Feedback)
					return
				}
				logger.Info("[Generate] %s attempt %d: %d chars [%s]", ev.SlotID, ev.Attempt, ev.CharCount, ev.State)
			}))
		}

		resp, genErr := a.orchestrator.Generate(ctx, req, opts...)

		var out []byte
		if generateHTMLOnly && genErr == nil {
			out = []byte(resp.HTML)
		} else {
			out, err = json.MarshalIndent(resp, "", "  ")
			if err != nil {
				return err
			}
		}
		if generateOutputPath == "" {
			fmt.Println(string(out))
		} else if err := os.WriteFile(generateOutputPath, out, 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return genErr
	},
}

func init() {
	generateCmd.Flags().StringVar(&generateRequestPath, "request", "", "Path to JSON request file")
	generateCmd.Flags().StringVar(&generateOutputPath, "output", "", "Write output to file (default: stdout)")
	generateCmd.Flags().BoolVar(&generateHTMLOnly, "html", false, "Write only the assembled HTML")
	generateCmd.Flags().BoolVar(&generateNoHistory, "no-history", false, "Do not record the generation in history")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Log every slot attempt")
	rootCmd.AddCommand(generateCmd)
}
