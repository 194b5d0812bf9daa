package tutor

import (
	"strings"

	"github.com/dgallion1/coursevoice/internal/genai"
)

// estimateTokens gives a rough token count for the text parts of a prompt,
// at about 1.33 tokens per word.
func estimateTokens(parts []genai.Part) int {
	words := 0
	for _, p := range parts {
		if !p.IsBlob() {
			words += len(strings.Fields(p.Text))
		}
	}
	return int(float64(words) * 1.33)
}

func promptChars(parts []genai.Part) int {
	n := 0
	for _, p := range parts {
		if !p.IsBlob() {
			n += len([]rune(p.Text))
		}
	}
	return n
}
