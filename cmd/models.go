package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/spf13/cobra"
)

var modelBenchTimeout int

type modelBenchResult struct {
	Model   *ai.ModelConfig
	Status  string
	Detail  string
	Latency time.Duration
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Model registry tools (status, bench)",
}

var modelStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "List registry models in failover order",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadModelRegistry()
		if err != nil {
			return err
		}
		fmt.Println("Model status:")
		for i, m := range reg.ListModels() {
			marker := " "
			if i == 0 {
				marker = "*"
			}
			provider := "missing"
			if _, ok := reg.GetProvider(m.Provider); ok {
				provider = m.Provider
			}
			fmt.Printf("%s %s code=%s provider=%s intellect=%s speed=%s cost=%s\n",
				marker, m.Name, m.Code, provider, orDash(m.Intellect), orDash(m.Speed), orDash(m.Cost))
		}
		return nil
	},
}

var modelBenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Send a short generation to every model and report latency",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadModelRegistry()
		if err != nil {
			return err
		}

		results := make([]modelBenchResult, 0)
		for _, model := range reg.ListModels() {
			results = append(results, benchOneModel(reg, model))
		}
		sort.SliceStable(results, func(i, j int) bool {
			if results[i].Status == results[j].Status {
				return results[i].Model.Name < results[j].Model.Name
			}
			return results[i].Status < results[j].Status
		})

		okCount := 0
		fmt.Println("Model bench result:")
		for _, r := range results {
			if r.Status == "PASS" {
				okCount++
			}
			lat := ""
			if r.Latency > 0 {
				lat = fmt.Sprintf(" (%s)", r.Latency.Truncate(time.Millisecond))
			}
			fmt.Printf("- %s: %s%s - %s\n", r.Model.Name, r.Status, lat, r.Detail)
		}
		fmt.Printf("Summary: pass=%d fail=%d\n", okCount, len(results)-okCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelStatusCmd)
	modelsCmd.AddCommand(modelBenchCmd)

	modelBenchCmd.Flags().IntVar(&modelBenchTimeout, "timeout", 12, "Per-model bench timeout in seconds")
}

func loadModelRegistry() (*ai.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.AI.ProvidersFile == "" || cfg.AI.ModelsFile == "" {
		return nil, fmt.Errorf("ai.providers_file and ai.models_file must be set to use the model registry")
	}
	return ai.LoadRegistry(cfg.AI.ProvidersFile, cfg.AI.ModelsFile)
}

func benchOneModel(reg *ai.Registry, model *ai.ModelConfig) modelBenchResult {
	result := modelBenchResult{Model: model, Status: "FAIL", Detail: "unknown"}
	providerCfg, ok := reg.GetProvider(model.Provider)
	if !ok {
		result.Detail = "provider not found"
		return result
	}
	if strings.TrimSpace(providerCfg.APIKey) == "" && providerCfg.Type != "mock" {
		result.Detail = "provider has no api key"
		return result
	}

	gen, err := ai.NewModelGenerator(providerCfg, model)
	if err != nil {
		result.Detail = err.Error()
		return result
	}

	timeout := time.Duration(modelBenchTimeout) * time.Second
	start := time.Now()
	text, err := ai.GenerateWithTimeout(context.Background(), gen, timeout, ai.Prompt{
		System: "Reply with one short line.",
		User:   "Write a slide title about quarterly results.",
	}, ai.Constraints{TargetChars: 40, MaxTokens: 64})
	result.Latency = time.Since(start)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	if strings.TrimSpace(text) == "" {
		result.Detail = "empty response"
		return result
	}
	result.Status = "PASS"
	result.Detail = fmt.Sprintf("%d chars", len([]rune(strings.TrimSpace(text))))
	return result
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
