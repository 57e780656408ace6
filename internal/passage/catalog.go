// Package passage provides the texts players race on.
package passage

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/NuZard84/go-typerace-socket/internal/models"
)

var defaultPassages = []string{
	"The quick brown fox jumps over the lazy dog near the riverbank where children often play during summer afternoons.",
	"Technology has revolutionized the way we communicate, work, and live our daily lives, bringing incredible opportunities.",
	"In the heart of the bustling city, where skyscrapers reach toward the clouds and people move with purpose through streets.",
	"The quick brown fox jumps over the lazy dog. This pangram contains every letter of the alphabet and is commonly used for typing practice.",
	"Technology continues to revolutionize our daily lives, creating new opportunities for communication, learning, and innovation across all industries.",
}

// DefaultPassages returns the built-in passages.
func DefaultPassages() []string {
	out := make([]string, len(defaultPassages))
	copy(out, defaultPassages)
	return out
}

// Catalog is an immutable set of passages. Choose never blocks, so it can be
// called from the gateway loop.
type Catalog struct {
	passages []string
}

// NewCatalog keeps the non-blank, de-duplicated passages and falls back to
// the built-in ones when nothing is left.
func NewCatalog(passages ...string) *Catalog {
	seen := make(map[string]bool)
	var kept []string
	for _, p := range passages {
		p = normalize(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		kept = DefaultPassages()
	}
	return &Catalog{passages: kept}
}

// Choose returns a random passage. The result is never empty.
func (c *Catalog) Choose() string {
	return c.passages[rand.IntN(len(c.passages))]
}

func (c *Catalog) Len() int {
	return len(c.passages)
}

type catalogFile struct {
	Passages []string `yaml:"passages"`
}

// LoadFile reads passages from a YAML file of the form
//
//	passages:
//	  - first text
//	  - second text
func LoadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read passages file: %w", err)
	}

	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse passages file: %w", err)
	}
	return file.Passages, nil
}

// SentenceLister is implemented by db.SentenceStore.
type SentenceLister interface {
	ListSentences(ctx context.Context, limit int) ([]models.TypingSentence, error)
}

// LoadStore fetches up to limit passages from a sentence store.
func LoadStore(ctx context.Context, store SentenceLister, limit int) ([]string, error) {
	sentences, err := store.ListSentences(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(sentences))
	for _, s := range sentences {
		out = append(out, s.Story)
	}
	return out, nil
}

// collapse runs of whitespace so the passage length matches what clients type
func normalize(p string) string {
	return strings.Join(strings.Fields(p), " ")
}
