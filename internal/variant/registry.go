package variant

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Registry is the read-only variant store.
type Registry struct {
	variants map[string]*Spec
	order    []string
}

// NewRegistry builds a registry from in-memory specs.
func NewRegistry(specs ...*Spec) (*Registry, error) {
	r := &Registry{variants: make(map[string]*Spec, len(specs))}
	for _, s := range specs {
		if err := r.add(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// LoadRegistry reads every *.yaml / *.yml file in dir. Each file holds one variant.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read variants dir %s: %w", dir, err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	r := &Registry{variants: make(map[string]*Spec, len(names))}
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read variant file %s: %w", path, err)
		}
		var spec Spec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("parse variant file %s: %w", path, err)
		}
		if err := r.add(&spec); err != nil {
			return nil, fmt.Errorf("invalid variant file %s: %w", path, err)
		}
	}
	return r, nil
}

func (r *Registry) add(s *Spec) error {
	if err := normalizeSpec(s); err != nil {
		return err
	}
	if _, exists := r.variants[s.ID]; exists {
		return fmt.Errorf("duplicate variant_id: %s", s.ID)
	}
	r.variants[s.ID] = s
	r.order = append(r.order, s.ID)
	return nil
}

// normalizeSpec validates structure and fills derived bounds. A baseline
// outside an explicit [min, max] is rejected here. Inverted min/max is left
// in place: it is rejected at generation time.
func normalizeSpec(s *Spec) error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return fmt.Errorf("variant_id is required")
	}
	if strings.TrimSpace(s.TemplateID) == "" {
		return fmt.Errorf("variant %s: template_id is required", s.ID)
	}
	if len(s.Slots) == 0 {
		return fmt.Errorf("variant %s: slots is required", s.ID)
	}

	seen := make(map[string]struct{}, len(s.Slots))
	for i := range s.Slots {
		slot := &s.Slots[i]
		slot.ID = strings.TrimSpace(slot.ID)
		if slot.ID == "" {
			return fmt.Errorf("variant %s: slot %d has no slot_id", s.ID, i)
		}
		if _, dup := seen[slot.ID]; dup {
			return fmt.Errorf("variant %s: duplicate slot_id: %s", s.ID, slot.ID)
		}
		seen[slot.ID] = struct{}{}

		if slot.Kind == "" {
			slot.Kind = KindBody
		}
		if slot.Format == "" {
			slot.Format = FormatText
		}
		if slot.Bounds.Baseline < 0 {
			return fmt.Errorf("variant %s: slot %s has negative baseline", s.ID, slot.ID)
		}
		slot.Bounds = slot.Bounds.Normalize()
		b := slot.Bounds
		if !b.Dynamic() && b.Min <= b.Max && (b.Baseline < b.Min || b.Baseline > b.Max) {
			return fmt.Errorf("variant %s: slot %s baseline %d is outside [%d, %d]", s.ID, slot.ID, b.Baseline, b.Min, b.Max)
		}
	}
	return nil
}

// Get returns the variant or *NotFoundError.
func (r *Registry) Get(id string) (*Spec, error) {
	s, ok := r.variants[strings.TrimSpace(id)]
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return s, nil
}

// List returns all variants in load order.
func (r *Registry) List() []*Spec {
	out := make([]*Spec, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.variants[id])
	}
	return out
}
