package cmd

import (
	"fmt"

	"github.com/kayz/slidefit/internal/ai"
	"github.com/kayz/slidefit/internal/assemble"
	"github.com/kayz/slidefit/internal/config"
	"github.com/kayz/slidefit/internal/generate"
	"github.com/kayz/slidefit/internal/layout"
	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/persist"
	"github.com/kayz/slidefit/internal/promptbuild"
	"github.com/kayz/slidefit/internal/structure"
	"github.com/kayz/slidefit/internal/synth"
	"github.com/kayz/slidefit/internal/typography"
	"github.com/kayz/slidefit/internal/variant"
)

// app is the wired pipeline shared by the commands.
type app struct {
	cfg          *config.Config
	variants     *variant.Registry
	assembler    *assemble.Assembler
	prompts      *promptbuild.Builder
	orchestrator *generate.Orchestrator
	// store is nil when history is disabled.
	store        *persist.Store
}

// newApp loads registries and builds the pipeline. withHistory opens the
// SQLite store when storage is enabled in cfg.
func newApp(cfg *config.Config, withHistory bool) (*app, error) {
	variants, err := variant.LoadRegistry(cfg.Registry.VariantsDir)
	if err != nil {
		return nil, err
	}

	typo, err := typography.LoadSource(cfg.Registry.ThemesDir, cfg.Layout.DefaultCharWidthRatio)
	if err != nil {
		return nil, err
	}

	gen, err := ai.NewGenerator(cfg.AI)
	if err != nil {
		return nil, fmt.Errorf("create generator: %w", err)
	}

	a := &app{
		cfg:       cfg,
		variants:  variants,
		assembler: assemble.NewAssembler(assemble.NewDirLoader(cfg.Registry.TemplatesDir)),
		prompts:   promptbuild.NewBuilder(cfg.PromptBuild),
	}

	deps := generate.Deps{
		Variants:     variants,
		Typography:   typo,
		Analyzer:     structure.NewAnalyzer(gen, cfg.Generation, cfg.Layout, a.prompts),
		Calculator:   layout.NewCalculator(cfg.Layout),
		Synthesizer:  synth.NewSynthesizer(gen, cfg.Generation, a.prompts),
		Assembler:    a.assembler,
		TemplatesDir: cfg.Registry.TemplatesDir,
	}
	if withHistory && cfg.Storage.Enabled {
		store, err := persist.NewStore(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.store = store
		deps.Recorder = store
	}
	a.orchestrator = generate.NewOrchestrator(deps)

	logger.Info("[App] loaded %d variants from %s (generator: %s)",
		len(variants.List()), cfg.Registry.VariantsDir, generatorName(cfg.AI))
	return a, nil
}

func (a *app) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}

func generatorName(cfg config.AIConfig) string {
	if cfg.ProvidersFile != "" && cfg.ModelsFile != "" {
		return "model registry"
	}
	if cfg.Provider == "" {
		return "mock"
	}
	return cfg.Provider
}
