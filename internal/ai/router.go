package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kayz/slidefit/internal/logger"
)

type ModelRouter struct {
	registry      *Registry
	currentModel  *ModelConfig
	failoverStats map[string]*ModelStats
	cooldowns     map[string]time.Time
	cooldownTime  time.Duration
	mu            sync.RWMutex
}

type ModelStats struct {
	successCount int
	failureCount int
	lastSuccess  time.Time
	lastFailure  time.Time
}

func NewModelRouter(registry *Registry, cooldownTime time.Duration) *ModelRouter {
	r := &ModelRouter{
		registry:      registry,
		failoverStats: make(map[string]*ModelStats),
		cooldowns:     make(map[string]time.Time),
		cooldownTime:  cooldownTime,
	}

	defaultModel := registry.GetDefaultModel()
	if defaultModel != nil {
		r.currentModel = defaultModel
	}

	return r
}

func (r *ModelRouter) GetCurrentModel() *ModelConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.currentModel
}

func (r *ModelRouter) RecordSuccess(model *ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsFor(model.Name)
	stats.successCount++
	stats.lastSuccess = time.Now()
}

func (r *ModelRouter) RecordFailure(model *ModelConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats := r.statsFor(model.Name)
	stats.failureCount++
	stats.lastFailure = time.Now()

	r.cooldowns[model.Name] = time.Now().Add(r.cooldownTime)
}

func (r *ModelRouter) statsFor(name string) *ModelStats {
	stats, ok := r.failoverStats[name]
	if !ok {
		stats = &ModelStats{}
		r.failoverStats[name] = stats
	}
	return stats
}

// Failover moves the current model to the closest-capability model that is
// not cooling down.
func (r *ModelRouter) Failover() (*ModelConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	allModels := r.registry.ListModels()
	if len(allModels) == 0 {
		return nil, fmt.Errorf("no models available")
	}

	currentIntellectRank := 0
	if r.currentModel != nil {
		currentIntellectRank = r.currentModel.IntellectRank()
	}

	type candidate struct {
		model         *ModelConfig
		intellectRank int
		speedMatch    bool
		failureRank   int
	}

	var candidates []candidate
	for _, m := range allModels {
		if r.isInCooldown(m.Name) {
			continue
		}

		failureRank := 0
		if stats := r.failoverStats[m.Name]; stats != nil {
			failureRank = stats.failureCount
		}

		candidates = append(candidates, candidate{
			model:         m,
			intellectRank: m.IntellectRank(),
			speedMatch:    r.currentModel != nil && m.Speed == r.currentModel.Speed,
			failureRank:   failureRank,
		})
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no available models for failover")
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]

		aDistance := abs(a.intellectRank - currentIntellectRank)
		bDistance := abs(b.intellectRank - currentIntellectRank)
		if aDistance != bDistance {
			return aDistance < bDistance
		}

		if a.speedMatch != b.speedMatch {
			return a.speedMatch
		}

		if a.intellectRank != b.intellectRank {
			return a.intellectRank > b.intellectRank
		}

		return a.failureRank < b.failureRank
	})

	r.currentModel = candidates[0].model
	return r.currentModel, nil
}

func (r *ModelRouter) IsInCooldown(modelName string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.isInCooldown(modelName)
}

func (r *ModelRouter) isInCooldown(modelName string) bool {
	cooldownUntil, ok := r.cooldowns[modelName]
	if !ok {
		return false
	}
	return time.Now().Before(cooldownUntil)
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// GeneratorFactory builds a Generator for one model of a provider.
type GeneratorFactory func(provider *ProviderConfig, model *ModelConfig) (Generator, error)

// RoutedGenerator sends each call to the router's current model and fails
// over after an error. The failed call itself is not retried here.
type RoutedGenerator struct {
	router  *ModelRouter
	factory GeneratorFactory
	cache   map[string]Generator
	cacheMu sync.Mutex
}

func NewRoutedGenerator(router *ModelRouter, factory GeneratorFactory) *RoutedGenerator {
	if factory == nil {
		factory = providerGenerator
	}
	return &RoutedGenerator{
		router:  router,
		factory: factory,
		cache:   make(map[string]Generator),
	}
}

func (g *RoutedGenerator) Generate(ctx context.Context, prompt Prompt, c Constraints) (string, error) {
	model := g.router.GetCurrentModel()
	if model == nil {
		return "", fmt.Errorf("no model selected")
	}
	gen, err := g.generatorFor(model)
	if err != nil {
		return "", err
	}

	text, err := gen.Generate(ctx, prompt, c)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", err
		}
		g.router.RecordFailure(model)
		if next, ferr := g.router.Failover(); ferr == nil && next.Name != model.Name {
			logger.Warn("[AI] model %s failed (%v), failing over to %s", model.Name, err, next.Name)
		}
		return "", err
	}
	g.router.RecordSuccess(model)
	return text, nil
}

func (g *RoutedGenerator) generatorFor(model *ModelConfig) (Generator, error) {
	g.cacheMu.Lock()
	defer g.cacheMu.Unlock()

	if gen, ok := g.cache[model.Name]; ok {
		return gen, nil
	}
	provider, ok := g.router.registry.GetProvider(model.Provider)
	if !ok {
		return nil, fmt.Errorf("provider not found: %s", model.Provider)
	}
	gen, err := g.factory(provider, model)
	if err != nil {
		return nil, fmt.Errorf("create generator for model %s: %w", model.Name, err)
	}
	g.cache[model.Name] = gen
	return gen, nil
}
