package ai

import (
	"context"
	"strings"
	"unicode"
)

const mockPlanJSON = `{"layout_shape":"single-column","sections":[{"title_hint":"Overview","point_count":3}],"structure_pattern":"standard","include_cta":false,"vocabulary_level":"general"}`

var mockWords = strings.Fields("clear focused message supports every key point with concrete evidence and practical next steps for the audience")

// MockGenerator is a deterministic local stand-in that never calls a model.
// Text replies are filled to exactly TargetChars characters.
type MockGenerator struct{}

func (MockGenerator) Generate(ctx context.Context, _ Prompt, c Constraints) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if c.JSON {
		return mockPlanJSON, nil
	}
	return fillText(c.TargetChars), nil
}

func fillText(n int) string {
	if n <= 0 {
		n = 40
	}
	var sb strings.Builder
	for i := 0; sb.Len() < n; i++ {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(mockWords[i%len(mockWords)])
	}
	out := []rune(sb.String())[:n]
	// keep the exact length while avoiding a dangling space
	if out[len(out)-1] == ' ' {
		out[len(out)-1] = '.'
	}
	out[0] = unicode.ToUpper(out[0])
	return string(out)
}
