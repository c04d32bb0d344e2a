// Package assemble substitutes generated slot text into HTML templates and
// guarantees no placeholder survives.
package assemble

import (
	"bytes"
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/yuin/goldmark"
	"golang.org/x/sync/singleflight"

	"github.com/kayz/slidefit/internal/logger"
	"github.com/kayz/slidefit/internal/variant"
)

// placeholderRe matches a slot token such as {{title}} or {{ left.body }}.
var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.-]+)\s*\}\}`)

// Token returns the placeholder token of a slot.
func Token(slotID string) string {
	return "{{" + slotID + "}}"
}

// IncompleteAssemblyError names the placeholders left without content.
type IncompleteAssemblyError struct {
	TemplateID string
	Missing    []string
}

func (e *IncompleteAssemblyError) Error() string {
	return fmt.Sprintf("template %s has unresolved placeholders: %s", e.TemplateID, strings.Join(e.Missing, ", "))
}

// Result is an assembled document body.
type Result struct {
	HTML        string
	UnusedSlots []string
}

// Assembler is the TemplateAssembler. Templates are loaded once per id and
// kept for the life of the Assembler.
type Assembler struct {
	loader Loader
	md     goldmark.Markdown

	mu    sync.RWMutex
	cache map[string]string
	group singleflight.Group
	loads atomic.Int64
}

func NewAssembler(loader Loader) *Assembler {
	return &Assembler{
		loader: loader,
		md:     goldmark.New(),
		cache:  make(map[string]string),
	}
}

// Loads is the number of times a template source was read.
func (a *Assembler) Loads() int64 {
	return a.loads.Load()
}

// Template returns the template source, reading it at most once even under
// concurrent first access.
func (a *Assembler) Template(templateID string) (string, error) {
	a.mu.RLock()
	tpl, ok := a.cache[templateID]
	a.mu.RUnlock()
	if ok {
		return tpl, nil
	}

	v, err, _ := a.group.Do(templateID, func() (any, error) {
		a.mu.RLock()
		tpl, ok := a.cache[templateID]
		a.mu.RUnlock()
		if ok {
			return tpl, nil
		}

		tpl, err := a.loader.Load(templateID)
		if err != nil {
			return "", err
		}
		a.loads.Add(1)

		a.mu.Lock()
		a.cache[templateID] = tpl
		a.mu.Unlock()
		logger.Debug("[Assemble] cached template %s (%d bytes)", templateID, len(tpl))
		return tpl, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Assemble replaces every occurrence of each slot token with its text.
// Slots without a token are reported in UnusedSlots and logged; tokens
// without a slot fail with IncompleteAssemblyError.
func (a *Assembler) Assemble(templateID string, slots map[string]string, formats map[string]variant.Format) (Result, error) {
	tpl, err := a.Template(templateID)
	if err != nil {
		return Result{}, err
	}

	rendered := make(map[string]string, len(slots))
	for id, text := range slots {
		out, err := a.render(text, formats[id])
		if err != nil {
			return Result{}, fmt.Errorf("render slot %s: %w", id, err)
		}
		rendered[id] = out
	}

	used := make(map[string]bool, len(slots))
	body := placeholderRe.ReplaceAllStringFunc(tpl, func(tok string) string {
		id := placeholderRe.FindStringSubmatch(tok)[1]
		if text, ok := rendered[id]; ok {
			used[id] = true
			return text
		}
		return tok
	})

	if HasPlaceholders(body) {
		return Result{}, &IncompleteAssemblyError{TemplateID: templateID, Missing: placeholderIDs(body)}
	}

	var unused []string
	for id := range slots {
		if !used[id] {
			unused = append(unused, id)
		}
	}
	sort.Strings(unused)
	for _, id := range unused {
		logger.Warn("[Assemble] slot %s has no placeholder in template %s", id, templateID)
	}

	return Result{HTML: body, UnusedSlots: unused}, nil
}

// render makes slot text safe for substitution. Plain text is HTML-escaped;
// markdown is rendered to inline HTML. Token delimiters are removed first.
func (a *Assembler) render(text string, format variant.Format) (string, error) {
	text = stripDelimiters(text)
	if format != variant.FormatMarkdown {
		return html.EscapeString(text), nil
	}

	var buf bytes.Buffer
	if err := a.md.Convert([]byte(text), &buf); err != nil {
		return "", err
	}
	out := strings.TrimSpace(buf.String())
	if strings.HasPrefix(out, "<p>") && strings.HasSuffix(out, "</p>") && strings.Count(out, "<p>") == 1 {
		out = strings.TrimSuffix(strings.TrimPrefix(out, "<p>"), "</p>")
	}
	return stripDelimiters(out), nil
}

var delimiterReplacer = strings.NewReplacer("{{", "", "}}", "")

func stripDelimiters(s string) string {
	for strings.Contains(s, "{{") || strings.Contains(s, "}}") {
		s = delimiterReplacer.Replace(s)
	}
	return s
}

// placeholderIDs returns the distinct slot ids referenced in s, in order of
// first appearance.
func placeholderIDs(s string) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range placeholderRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			ids = append(ids, m[1])
		}
	}
	return ids
}

// HasPlaceholders reports whether s still contains a slot token.
func HasPlaceholders(s string) bool {
	return placeholderRe.MatchString(s)
}
