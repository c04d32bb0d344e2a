package promptbuild

import (
	"path/filepath"
	"strings"

	"github.com/kayz/slidefit/internal/config"
)

// Section is one titled block of a prompt.
type Section struct {
	Title   string
	Content string
}

// Lines joins non-empty lines as a "- " bullet list.
func Lines(lines ...string) string {
	var out []string
	for _, l := range lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, "- "+strings.TrimSpace(l))
	}
	return strings.Join(out, "\n")
}

// Render assembles sections into prompt text. Empty sections are skipped and
// titled sections get a "### Title" header.
func Render(sections ...Section) string {
	var out strings.Builder
	n := 0
	for _, s := range sections {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			continue
		}
		if n > 0 {
			out.WriteString("\n\n")
		}
		n++
		if s.Title != "" {
			out.WriteString("### ")
			out.WriteString(s.Title)
			out.WriteString("\n\n")
		}
		out.WriteString(content)
	}
	return out.String()
}

// Builder records rendered prompts to the audit log when enabled.
type Builder struct {
	cfg config.PromptBuildConfig
}

// NewBuilder creates a new Builder from config.
func NewBuilder(cfg config.PromptBuildConfig) *Builder {
	if cfg.RootDir == "" {
		cfg.RootDir = "."
	}
	return &Builder{cfg: cfg}
}

func (b *Builder) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.cfg.RootDir, p)
}
