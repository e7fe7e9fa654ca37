// Package title names published artifacts from a fixed corpus.
package title

import (
	_ "embed"
	"errors"
	"math/rand"
	"strings"
)

//go:embed titles.txt
var rawTitles string

// ErrEmptyCorpus means the bundled title list loaded empty. This is a
// configuration error and should abort startup.
var ErrEmptyCorpus = errors.New("title corpus is empty or failed to load")

// Corpus is an immutable, preloaded set of candidate titles. It is
// constructed once at startup and injected where needed; there is no
// package-level cache.
type Corpus struct {
	titles []string
}

// Load parses the embedded newline-delimited corpus.
func Load() (*Corpus, error) {
	return parse(rawTitles)
}

func parse(raw string) (*Corpus, error) {
	lines := strings.FieldsFunc(raw, func(r rune) bool { return r == '\r' || r == '\n' })
	titles := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			titles = append(titles, line)
		}
	}
	if len(titles) == 0 {
		return nil, ErrEmptyCorpus
	}
	return &Corpus{titles: titles}, nil
}

// Random returns a uniformly chosen title.
func (c *Corpus) Random() string {
	return c.titles[rand.Intn(len(c.titles))]
}

// Len reports the corpus size.
func (c *Corpus) Len() int { return len(c.titles) }
