package persist

import (
	"encoding/json"
	"time"
)

// Generation is one completed slide document.
type Generation struct {
	ID           string           `json:"id"`
	VariantID    string           `json:"variant_id"`
	TemplateID   string           `json:"template_id"`
	HTML         string           `json:"html"`
	ElapsedMS    int64            `json:"elapsed_ms"`
	RetriedSlots []string         `json:"retried_slots"`
	Warnings     []string         `json:"warnings"`
	CreatedAt    time.Time        `json:"created_at"`
	Slots        []GenerationSlot `json:"slots"`
}

// GenerationSlot is the stored outcome of one slot.
type GenerationSlot struct {
	SlotID       string `json:"slot_id"`
	Text         string `json:"text"`
	CharCount    int    `json:"char_count"`
	Attempts     int    `json:"attempts"`
	WithinBounds bool   `json:"within_bounds"`
	Min          int    `json:"min"`
	Max          int    `json:"max"`
}

// Summary is a listing row without HTML or slot text.
type Summary struct {
	ID         string    `json:"id"`
	VariantID  string    `json:"variant_id"`
	TemplateID string    `json:"template_id"`
	ElapsedMS  int64     `json:"elapsed_ms"`
	SlotCount  int       `json:"slot_count"`
	Violations int       `json:"violations"`
	CreatedAt  time.Time `json:"created_at"`
}

// scanner interface for both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

// toJSON converts an object to JSON string
func toJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// fromJSON parses JSON string into an object
func fromJSON(data string, v interface{}) error {
	if data == "" || data == "[]" || data == "null" {
		return nil
	}
	return json.Unmarshal([]byte(data), v)
}
