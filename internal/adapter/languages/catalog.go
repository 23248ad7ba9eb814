package languages

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"gitlab.com/fcv-2025.net/assessment/internal/core/ports/secondary"
	"gitlab.com/fcv-2025.net/assessment/internal/domain"
)

var _ secondary.LanguageCatalog = (*Catalog)(nil)

type file struct {
	Languages []domain.Language `toml:"language"`
}

// Catalog is the immutable set of languages the compiler service accepts
type Catalog struct {
	byID  map[string]domain.Language
	order []string
}

func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open language catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

func Load(r io.Reader) (*Catalog, error) {
	var doc file
	if err := toml.NewDecoder(r).DisallowUnknownFields().Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse language catalog: %w", err)
	}
	if len(doc.Languages) == 0 {
		return nil, fmt.Errorf("language catalog is empty")
	}

	c := &Catalog{byID: make(map[string]domain.Language, len(doc.Languages))}
	for _, lang := range doc.Languages {
		if lang.ID == "" {
			return nil, fmt.Errorf("language %q has no id", lang.Name)
		}
		if _, dup := c.byID[lang.ID]; dup {
			return nil, fmt.Errorf("duplicate language id %q", lang.ID)
		}
		if lang.Name == "" {
			lang.Name = lang.ID
		}
		c.byID[lang.ID] = lang
		c.order = append(c.order, lang.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

func (c *Catalog) Get(id string) (*domain.Language, bool) {
	lang, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return &lang, true
}

// List returns the languages sorted by id
func (c *Catalog) List() []domain.Language {
	out := make([]domain.Language, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
