package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/promptbuild"
	"github.com/kayz/slidefit/internal/structure"
	"github.com/spf13/cobra"
)

var (
	promptPreviewRequestPath string
	promptPreviewOutputPath  string
)

var promptsCmd = &cobra.Command{
	Use:   "prompts",
	Short: "Prompt tools (preview, cleanup)",
}

var promptPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Render the structure planning prompt for a request without calling a model",
	RunE: func(cmd *cobra.Command, args []string) error {
		if promptPreviewRequestPath == "" {
			return fmt.Errorf("--request is required")
		}

		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		reqBytes, err := os.ReadFile(promptPreviewRequestPath)
		if err != nil {
			return fmt.Errorf("read request: %w", err)
		}
		var req generate.Request
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			return fmt.Errorf("parse request: %w", err)
		}

		signals := req.Signals()
		hints, err := structure.DeriveHints(req.Container(), len(req.SlideSpec.TargetPoints), signals, cfg.Layout)
		if err != nil {
			return err
		}
		prompt := structure.BuildPrompt(structure.PromptContext{
			Narrative: req.Narrative(),
			Topics:    req.SlideSpec.TargetPoints,
			Signals:   signals,
			Hints:     hints,
		})
		out := promptbuild.Render(
			promptbuild.Section{Title: "System", Content: prompt.System},
			promptbuild.Section{Title: "User", Content: prompt.User},
		)

		if promptPreviewOutputPath == "" {
			fmt.Println(out)
			return nil
		}
		if err := os.WriteFile(promptPreviewOutputPath, []byte(out), 0644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	},
}

var promptCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete prompt audit files past their retention",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if !cfg.PromptBuild.AuditEnabled {
			fmt.Println("Prompt audit is disabled; nothing to clean.")
			return nil
		}
		return promptbuild.NewBuilder(cfg.PromptBuild).CleanupOldAuditFiles()
	},
}

func init() {
	promptPreviewCmd.Flags().StringVar(&promptPreviewRequestPath, "request", "", "Path to JSON request file")
	promptPreviewCmd.Flags().StringVar(&promptPreviewOutputPath, "output", "", "Write output to file (default: stdout)")
	promptsCmd.AddCommand(promptPreviewCmd, promptCleanupCmd)
	rootCmd.AddCommand(promptsCmd)
}
