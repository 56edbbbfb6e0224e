/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package game

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallCatalog = `
categories:
  - name: "Colors"
    items: ["Red", "Blue"]
  - name: "Shapes"
    items: ["Circle"]
questions:
  - a: "Best season?"
    b: "Worst season?"
`

func TestDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	assert.GreaterOrEqual(t, len(c.Categories), 20)
	assert.GreaterOrEqual(t, len(c.Questions), 20)

	names := make(map[string]bool)
	for _, cat := range c.Categories {
		assert.False(t, names[cat.Name], "duplicate category %q", cat.Name)
		names[cat.Name] = true
	}
}

func TestLoadCatalog(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/etc/imposter/content.yaml", []byte(smallCatalog), 0o644))

	c, err := LoadCatalog(fs, "/etc/imposter/content.yaml")
	require.NoError(t, err)
	require.Len(t, c.Categories, 2)
	assert.Equal(t, []string{"Red", "Blue"}, c.Categories[0].Items)
	assert.Equal(t, QuestionPair{A: "Best season?", B: "Worst season?"}, c.Questions[0])

	_, err = LoadCatalog(fs, "/missing.yaml")
	assert.Error(t, err)
}

func TestParseCatalogRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "categories: [unterminated"},
		{"no categories", "questions:\n  - a: x\n    b: y\n"},
		{"no questions", "categories:\n  - name: A\n    items: [b]\n"},
		{"empty category", "categories:\n  - name: A\n    items: []\nquestions:\n  - a: x\n    b: y\n"},
		{"unnamed category", "categories:\n  - name: \" \"\n    items: [b]\nquestions:\n  - a: x\n    b: y\n"},
		{"blank item", "categories:\n  - name: A\n    items: [\"\"]\nquestions:\n  - a: x\n    b: y\n"},
		{"half a question", "categories:\n  - name: A\n    items: [b]\nquestions:\n  - a: x\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestGenerate(t *testing.T) {
	c, err := ParseCatalog([]byte(smallCatalog))
	require.NoError(t, err)

	p := &catalogProvider{catalog: c, intn: func(n int) int { return n - 1 }}

	got, err := p.Generate(ModeCategory)
	require.NoError(t, err)
	assert.Equal(t, Content{Category: "Shapes", Item: "Circle"}, got)
	assert.NoError(t, got.Validate(ModeCategory))

	got, err = p.Generate(ModeQuestion)
	require.NoError(t, err)
	assert.Equal(t, Content{QuestionA: "Best season?", QuestionB: "Worst season?"}, got)
	assert.NoError(t, got.Validate(ModeQuestion))

	_, err = p.Generate(Mode("mime"))
	assert.Equal(t, ErrInvalidMode, err)
}

func TestGenerateFromDefaultCatalog(t *testing.T) {
	c, err := DefaultCatalog()
	require.NoError(t, err)

	p := NewContentProvider(c)
	for range 50 {
		for _, m := range []Mode{ModeCategory, ModeQuestion} {
			got, err := p.Generate(m)
			require.NoError(t, err)
			assert.NoError(t, got.Validate(m))
		}
	}
}

func TestContentValidate(t *testing.T) {
	tests := []struct {
		name    string
		content Content
		mode    Mode
		want    error
	}{
		{"category ok", categoryRound, ModeCategory, nil},
		{"question ok", questionRound, ModeQuestion, nil},
		{"category missing item", Content{Category: "Fruit"}, ModeCategory, ErrInvalidContent},
		{"question missing b", Content{QuestionA: "a"}, ModeQuestion, ErrInvalidContent},
		{"mixed", Content{Category: "Fruit", Item: "Kiwi", QuestionA: "a"}, ModeCategory, ErrInvalidContent},
		{"question content in category room", questionRound, ModeCategory, ErrInvalidContent},
		{"unknown mode", categoryRound, Mode("x"), ErrInvalidMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.content.Validate(tt.mode)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, tt.want, err)
		})
	}
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Question ")
	require.NoError(t, err)
	assert.Equal(t, ModeQuestion, m)

	m, err = ParseMode("category")
	require.NoError(t, err)
	assert.Equal(t, ModeCategory, m)

	_, err = ParseMode("")
	assert.ErrorIs(t, err, ErrValidation)
}
