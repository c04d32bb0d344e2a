package ai

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type ProviderConfig struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type ModelConfig struct {
	Name      string `yaml:"name"`
	Code      string `yaml:"code"`
	Provider  string `yaml:"provider"`
	Intellect string `yaml:"intellect"`
	Speed     string `yaml:"speed"`
	Cost      string `yaml:"cost"`
}

func (m *ModelConfig) IntellectRank() int {
	switch m.Intellect {
	case "full":
		return 4
	case "excellent":
		return 3
	case "good":
		return 2
	case "usable":
		return 1
	default:
		return 0
	}
}

// Registry holds the providers and models available to the router.
type Registry struct {
	providers  map[string]*ProviderConfig
	models     map[string]*ModelConfig
	modelOrder []string
}

type providersFile struct {
	Providers []*ProviderConfig `yaml:"providers"`
}

type modelsFile struct {
	Models []*ModelConfig `yaml:"models"`
}

// LoadRegistry reads providers.yaml and models.yaml. Model order in the file is
// preserved; the first model is the default.
func LoadRegistry(providersPath, modelsPath string) (*Registry, error) {
	r := &Registry{
		providers:  make(map[string]*ProviderConfig),
		models:     make(map[string]*ModelConfig),
		modelOrder: make([]string, 0),
	}

	providersData, err := os.ReadFile(providersPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read providers file: %w", err)
	}

	var pf providersFile
	if err := yaml.Unmarshal(providersData, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse providers file: %w", err)
	}

	for _, p := range pf.Providers {
		r.providers[p.Name] = p
	}

	modelsData, err := os.ReadFile(modelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read models file: %w", err)
	}

	var mf modelsFile
	if err := yaml.Unmarshal(modelsData, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse models file: %w", err)
	}

	for _, m := range mf.Models {
		if _, ok := r.providers[m.Provider]; !ok {
			return nil, fmt.Errorf("model %s references unknown provider %s", m.Name, m.Provider)
		}
		if _, exists := r.models[m.Name]; !exists {
			r.modelOrder = append(r.modelOrder, m.Name)
		}
		r.models[m.Name] = m
	}

	if len(r.models) == 0 {
		return nil, fmt.Errorf("no models found in %s", modelsPath)
	}

	return r, nil
}

func (r *Registry) GetProvider(name string) (*ProviderConfig, bool) {
	p, ok := r.providers[name]
	return p, ok
}

func (r *Registry) GetModel(name string) (*ModelConfig, bool) {
	m, ok := r.models[name]
	return m, ok
}

func (r *Registry) ListModels() []*ModelConfig {
	models := make([]*ModelConfig, 0, len(r.modelOrder))
	for _, name := range r.modelOrder {
		if m, ok := r.models[name]; ok {
			models = append(models, m)
		}
	}
	return models
}

func (r *Registry) GetDefaultModel() *ModelConfig {
	for _, name := range r.modelOrder {
		if m, ok := r.models[name]; ok {
			return m
		}
	}
	return nil
}
