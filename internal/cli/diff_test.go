package cli

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestLineDiff_Golden(t *testing.T) {
	about := "['about']\nversion = \"0.1.0\"\n"
	entry := "\n['x']\nxpriv = \"k\"\n"

	tests := []struct {
		name   string
		before string
		after  string
	}{
		{"diff_add_entry", about, about + "\n['src/lib.rs']\nimmutag = \"Entry point to the library.\"\n"},
		{"diff_update_about", about + entry, "['about']\nversion = \"0.2.0\"\n" + entry},
		{"diff_init", "", about},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g.Assert(t, tt.name, []byte(lineDiff("Immutag", tt.before, tt.after)))
		})
	}
}

func TestLineDiff_Unchanged(t *testing.T) {
	doc := "['about']\nversion = \"0.1.0\"\n"
	assert.Equal(t, "--- Immutag\n+++ Immutag (dry run)\n ['about']\n version = \"0.1.0\"\n", lineDiff("Immutag", doc, doc))
}

func TestSplitLines(t *testing.T) {
	assert.Nil(t, splitLines(""))
	assert.Equal(t, []string{""}, splitLines("\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\r\nb\n"))
	assert.Equal(t, []string{"a", "b"}, splitLines("a\nb"))
}
