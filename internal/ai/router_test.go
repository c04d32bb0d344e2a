package ai

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testRegistry(models ...*ModelConfig) *Registry {
	r := &Registry{
		providers:  map[string]*ProviderConfig{"p": {Name: "p", Type: "mock"}},
		models:     map[string]*ModelConfig{},
		modelOrder: []string{},
	}
	for _, m := range models {
		if m.Provider == "" {
			m.Provider = "p"
		}
		r.models[m.Name] = m
		r.modelOrder = append(r.modelOrder, m.Name)
	}
	return r
}

func TestFailoverPrefersClosestIntellect(t *testing.T) {
	reg := testRegistry(
		&ModelConfig{Name: "main", Intellect: "excellent", Speed: "fast"},
		&ModelConfig{Name: "weak", Intellect: "usable", Speed: "fast"},
		&ModelConfig{Name: "peer", Intellect: "full", Speed: "fast"},
	)
	r := NewModelRouter(reg, time.Minute)
	main := r.GetCurrentModel()
	if main == nil || main.Name != "main" {
		t.Fatalf("unexpected default model: %#v", main)
	}

	r.RecordFailure(main)
	next, err := r.Failover()
	if err != nil {
		t.Fatalf("failover: %v", err)
	}
	if next.Name != "peer" {
		t.Fatalf("expected peer, got %s", next.Name)
	}
	if !r.IsInCooldown("main") {
		t.Fatalf("failed model should be cooling down")
	}
}

func TestFailoverWithEveryModelCooling(t *testing.T) {
	reg := testRegistry(&ModelConfig{Name: "only", Intellect: "good"})
	r := NewModelRouter(reg, time.Minute)
	r.RecordFailure(r.GetCurrentModel())
	if _, err := r.Failover(); err == nil {
		t.Fatalf("expected error when all models are in cooldown")
	}
}

type scriptedGenerator struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedGenerator) Generate(_ context.Context, _ Prompt, _ Constraints) (string, error) {
	i := s.calls
	s.calls++
	var err error
	if i < len(s.errs) {
		err = s.errs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", nil
}

func TestRoutedGeneratorFailsOverAfterError(t *testing.T) {
	reg := testRegistry(
		&ModelConfig{Name: "a", Intellect: "good"},
		&ModelConfig{Name: "b", Intellect: "good"},
	)
	gens := map[string]*scriptedGenerator{
		"a": {errs: []error{errors.New("boom")}},
		"b": {replies: []string{"hello"}},
	}
	routed := NewRoutedGenerator(NewModelRouter(reg, time.Minute), func(_ *ProviderConfig, m *ModelConfig) (Generator, error) {
		return gens[m.Name], nil
	})

	if _, err := routed.Generate(context.Background(), Prompt{User: "x"}, Constraints{}); err == nil {
		t.Fatalf("first call should surface the error")
	}
	text, err := routed.Generate(context.Background(), Prompt{User: "x"}, Constraints{})
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if text != "hello" || gens["b"].calls != 1 {
		t.Fatalf("expected reply from model b, got %q (b calls=%d)", text, gens["b"].calls)
	}
}

func TestLoadRegistryRejectsUnknownProvider(t *testing.T) {
	dir := t.TempDir()
	providers := filepath.Join(dir, "providers.yaml")
	models := filepath.Join(dir, "models.yaml")
	if err := os.WriteFile(providers, []byte("providers:\n  - name: ds\n    type: deepseek\n    api_key: k\n"), 0644); err != nil {
		t.Fatalf("write providers: %v", err)
	}
	if err := os.WriteFile(models, []byte("models:\n  - name: m1\n    code: deepseek-chat\n    provider: nope\n"), 0644); err != nil {
		t.Fatalf("write models: %v", err)
	}
	if _, err := LoadRegistry(providers, models); err == nil {
		t.Fatalf("expected unknown provider error")
	}

	if err := os.WriteFile(models, []byte("models:\n  - name: m1\n    code: deepseek-chat\n    provider: ds\n  - name: m2\n    code: deepseek-reasoner\n    provider: ds\n"), 0644); err != nil {
		t.Fatalf("write models: %v", err)
	}
	reg, err := LoadRegistry(providers, models)
	if err != nil {
		t.Fatalf("load registry: %v", err)
	}
	if reg.GetDefaultModel().Name != "m1" || len(reg.ListModels()) != 2 {
		t.Fatalf("unexpected registry contents: %#v", reg.ListModels())
	}
}
