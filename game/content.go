/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	_ "embed"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the static pool that round content is drawn from.
type Catalog struct {
	Categories []Category     `yaml:"categories"`
	Questions  []QuestionPair `yaml:"questions"`
}

type Category struct {
	Name  string   `yaml:"name"`
	Items []string `yaml:"items"`
}

// QuestionPair holds two prompts close enough that answers to B blend in with answers to A.
type QuestionPair struct {
	A string `yaml:"a"`
	B string `yaml:"b"`
}

// DefaultCatalog returns the catalog compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalog)
}

// LoadCatalog reads a YAML catalog from fs.
func LoadCatalog(fs afero.Fs, path string) (*Catalog, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	c, err := ParseCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return c, nil
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}

	return &c, nil
}

func (c *Catalog) validate() error {
	if len(c.Categories) == 0 {
		return errors.New("catalog has no categories")
	}
	if len(c.Questions) == 0 {
		return errors.New("catalog has no question pairs")
	}

	for i, cat := range c.Categories {
		if strings.TrimSpace(cat.Name) == "" {
			return fmt.Errorf("category %d has no name", i)
		}
		if len(cat.Items) == 0 {
			return fmt.Errorf("category %q has no items", cat.Name)
		}
		for _, item := range cat.Items {
			if strings.TrimSpace(item) == "" {
				return fmt.Errorf("category %q has an empty item", cat.Name)
			}
		}
	}

	for i, q := range c.Questions {
		if strings.TrimSpace(q.A) == "" || strings.TrimSpace(q.B) == "" {
			return fmt.Errorf("question pair %d is incomplete", i)
		}
	}

	return nil
}

// ContentProvider hands out the content for a new round.
type ContentProvider interface {
	Generate(mode Mode) (Content, error)
}

type catalogProvider struct {
	catalog *Catalog
	intn    func(n int) int
}

// NewContentProvider draws uniformly at random from c, independently each round.
func NewContentProvider(c *Catalog) ContentProvider {
	return &catalogProvider{catalog: c, intn: rand.IntN}
}

func (p *catalogProvider) Generate(mode Mode) (Content, error) {
	switch mode {
	case ModeCategory:
		cat := p.catalog.Categories[p.intn(len(p.catalog.Categories))]
		return Content{
			Category: cat.Name,
			Item:     cat.Items[p.intn(len(cat.Items))],
		}, nil
	case ModeQuestion:
		q := p.catalog.Questions[p.intn(len(p.catalog.Questions))]
		return Content{QuestionA: q.A, QuestionB: q.B}, nil
	default:
		return Content{}, ErrInvalidMode
	}
}
