package assemble

import (
	"fmt"
	"strings"

	"github.com/kayz/slidefit/internal/variant"
)

// Validation describes the placeholders of one template.
type Validation struct {
	TemplateID   string   `json:"template_id"`
	Valid        bool     `json:"valid"`
	Placeholders []string `json:"placeholders"`
	Duplicates   []string `json:"duplicates"`
}

// DuplicatePlaceholderError reports a token used more than once in a template.
type DuplicatePlaceholderError struct {
	TemplateID string
	Duplicates []string
}

func (e *DuplicatePlaceholderError) Error() string {
	return fmt.Sprintf("template %s repeats placeholders: %s", e.TemplateID, strings.Join(e.Duplicates, ", "))
}

// Validate lists the placeholders of a template and flags duplicates.
func (a *Assembler) Validate(templateID string) (Validation, error) {
	tpl, err := a.Template(templateID)
	if err != nil {
		return Validation{}, err
	}

	counts := make(map[string]int)
	for _, m := range placeholderRe.FindAllStringSubmatch(tpl, -1) {
		counts[m[1]]++
	}
	placeholders := placeholderIDs(tpl)
	v := Validation{
		TemplateID:   templateID,
		Placeholders: placeholders,
		Duplicates:   []string{},
	}
	for _, id := range placeholders {
		if counts[id] > 1 {
			v.Duplicates = append(v.Duplicates, id)
		}
	}
	v.Valid = len(v.Duplicates) == 0
	return v, nil
}

// VariantCheck compares a variant's slots with its template's placeholders.
type VariantCheck struct {
	VariantID string     `json:"variant_id"`
	Template  Validation `json:"template"`
	// MissingPlaceholders are slots with no token in the template.
	MissingPlaceholders []string `json:"missing_placeholders"`
	// UnknownPlaceholders are tokens with no slot in the variant.
	UnknownPlaceholders []string `json:"unknown_placeholders"`
}

// OK reports a 1:1 match between slots and placeholders.
func (c VariantCheck) OK() bool {
	return c.Template.Valid && len(c.MissingPlaceholders) == 0 && len(c.UnknownPlaceholders) == 0
}

// Err returns the first configuration problem found, or nil.
func (c VariantCheck) Err() error {
	switch {
	case len(c.Template.Duplicates) > 0:
		return &DuplicatePlaceholderError{TemplateID: c.Template.TemplateID, Duplicates: c.Template.Duplicates}
	case len(c.UnknownPlaceholders) > 0:
		return &IncompleteAssemblyError{TemplateID: c.Template.TemplateID, Missing: c.UnknownPlaceholders}
	case len(c.MissingPlaceholders) > 0:
		return fmt.Errorf("variant %s: slots without placeholders: %s", c.VariantID, strings.Join(c.MissingPlaceholders, ", "))
	}
	return nil
}

// CheckVariant validates the template of spec against its slots.
func (a *Assembler) CheckVariant(spec *variant.Spec) (VariantCheck, error) {
	v, err := a.Validate(spec.TemplateID)
	if err != nil {
		return VariantCheck{}, err
	}
	check := VariantCheck{
		VariantID:           spec.ID,
		Template:            v,
		MissingPlaceholders: []string{},
		UnknownPlaceholders: []string{},
	}

	inTemplate := make(map[string]bool, len(v.Placeholders))
	for _, id := range v.Placeholders {
		inTemplate[id] = true
	}
	inVariant := make(map[string]bool, len(spec.Slots))
	for _, slot := range spec.Slots {
		inVariant[slot.ID] = true
		if !inTemplate[slot.ID] {
			check.MissingPlaceholders = append(check.MissingPlaceholders, slot.ID)
		}
	}
	for _, id := range v.Placeholders {
		if !inVariant[id] {
			check.UnknownPlaceholders = append(check.UnknownPlaceholders, id)
		}
	}
	return check, nil
}
