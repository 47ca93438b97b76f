package tomldoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

const sampleDoc = `# project registry
['about']
version = "0.1.0"   # bumped on release
name = "NAME"
author = "AUTHOR"

# entry points
['src/lib.rs']
immutag = "Entry point to the library."
tags = [
  "core", # primary
  "lib",
]

[tool.settings]
enabled = true
released = 1979-05-27 07:32:00
notes = """
multi "quoted"
line"""
path = 'C:\temp'
`

func TestParse_RoundTripsVerbatim(t *testing.T) {
	inputs := []string{
		"",
		"\n\n",
		"# only a comment",
		"a = 1",
		"a = 1\r\nb = 'x'\r\n",
		sampleDoc,
		"  [ 'indented' . \"key\" ]  # trailing\n  k = { x = 1, y = [1, 2] }\n",
		"[[items]]\nname = 'a'\n\n[[items]]\nname = 'b'\n",
		"k = '''\nraw '' \n# not a comment\n'''\n",
	}
	for _, in := range inputs {
		doc, err := ParseString(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, in, doc.String())
	}
}

func TestParse_InvalidDocumentReportsPosition(t *testing.T) {
	_, err := ParseString("['about']\nversion = \n")
	require.Error(t, err)

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
	assert.Positive(t, perr.Column)
}

func TestParse_RejectsDuplicateTables(t *testing.T) {
	_, err := ParseString("['a']\nx = 1\n['a']\ny = 2\n")
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestParse_RejectsInvalidUTF8(t *testing.T) {
	_, err := Parse([]byte{'a', ' ', '=', ' ', '"', 0xff, '"'})
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 1, perr.Line)
}

func TestDocument_Queries(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	require.NoError(t, err)

	assert.True(t, doc.HasKey("about"))
	assert.True(t, doc.HasKey("src/lib.rs"))
	assert.True(t, doc.HasKey("tool"))
	assert.False(t, doc.HasKey("src"))

	assert.True(t, doc.HasField("about", "version"))
	assert.True(t, doc.HasField("tool", "settings"))
	assert.False(t, doc.HasField("about", "license"))

	v, ok, err := doc.Value("about", "version")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0.1.0", v)

	v, ok, err = doc.Value("src/lib.rs", "tags")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{"core", "lib"}, v)

	_, ok, err = doc.Value("about", "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, []string{"about", "src/lib.rs", "tool"}, doc.TableKeys())
	assert.Equal(t, []string{"version", "name", "author"}, doc.Fields("about"))
	assert.Empty(t, doc.Fields("missing"))
}

func TestDocument_SetPreservesSurroundings(t *testing.T) {
	doc, err := ParseString(sampleDoc)
	require.NoError(t, err)

	require.NoError(t, doc.Set("about", "version", "0.2.0"))
	require.NoError(t, doc.Set("about", "license", "MIT"))

	want := `# project registry
['about']
version = "0.2.0"   # bumped on release
name = "NAME"
author = "AUTHOR"
license = "MIT"

# entry points
['src/lib.rs']
`
	assert.Equal(t, want, doc.String()[:len(want)])

	reparsed, err := ParseString(doc.String())
	require.NoError(t, err)
	assert.Equal(t, doc.String(), reparsed.String())
}

func TestDocument_SetAppendsAfterUnterminatedLine(t *testing.T) {
	doc, err := ParseString("['about']\nname = \"x\"")
	require.NoError(t, err)

	require.NoError(t, doc.Set("about", "author", "y"))
	assert.Equal(t, "['about']\nname = \"x\"\nauthor = \"y\"\n", doc.String())
}

func TestDocument_SetErrors(t *testing.T) {
	doc, err := ParseString("a.b = 1\n['t']\nx = 1\n['t'.sub]\ny = 2\n")
	require.NoError(t, err)

	assert.ErrorIs(t, doc.Set("missing", "x", "v"), ErrTableNotFound)
	assert.ErrorIs(t, doc.Set("t", "sub", "v"), ErrKeyConflict)
	assert.ErrorIs(t, doc.Set("", "a", "v"), ErrKeyConflict)
	assert.ErrorIs(t, doc.Set("", "t", "v"), ErrKeyConflict)
	assert.ErrorIs(t, doc.Set("t", "", "v"), ErrEmptyKey)
	assert.ErrorIs(t, doc.Set("t", "x", map[string]any{"nested": 1}), ErrUnsupported)
}

func TestDocument_SetScalarKinds(t *testing.T) {
	doc := New()
	require.NoError(t, doc.AddTable("t"))
	require.NoError(t, doc.Set("t", "n", int64(3)))
	require.NoError(t, doc.Set("t", "ok", true))
	require.NoError(t, doc.Set("t", "list", []string{"a", "b"}))

	assert.Equal(t, "['t']\nn = 3\nok = true\n", doc.String()[:len("['t']\nn = 3\nok = true\n")])
	v, ok, err := doc.Value("t", "list")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{"a", "b"}, v)
}

func TestDocument_AddTableSeparation(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", "['k']\n"},
		{"no trailing newline", "a = 1", "a = 1\n\n['k']\n"},
		{"single newline", "a = 1\n", "a = 1\n\n['k']\n"},
		{"blank line already", "a = 1\n\n", "a = 1\n\n['k']\n"},
		{"trailing comment", "a = 1\n# end", "a = 1\n# end\n\n['k']\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.in)
			require.NoError(t, err)
			require.NoError(t, doc.AddTable("k"))
			assert.Equal(t, tt.want, doc.String())
		})
	}
}

func TestDocument_AddTableQuoting(t *testing.T) {
	doc := New()
	require.NoError(t, doc.AddTable("it's"))
	assert.Equal(t, "[\"it's\"]\n", doc.String())

	require.ErrorIs(t, doc.AddTable("it's"), ErrDuplicateKey)
	require.ErrorIs(t, doc.AddTable(""), ErrEmptyKey)
}

func TestDocument_RemoveTable(t *testing.T) {
	in := "['about']\nversion = \"0.1.0\"\n\n['README.md']\nimmutag = \"Readme.\"\n\n['src/lib.rs']\nimmutag = \"Lib.\"\n"
	doc, err := ParseString(in)
	require.NoError(t, err)

	clone := doc.Clone()
	assert.True(t, doc.RemoveTable("README.md"))
	assert.False(t, doc.RemoveTable("README.md"))
	assert.Equal(t, "['about']\nversion = \"0.1.0\"\n\n['src/lib.rs']\nimmutag = \"Lib.\"\n", doc.String())

	// The clone is unaffected.
	assert.Equal(t, in, clone.String())
}

func TestDocument_Empty(t *testing.T) {
	assert.True(t, New().Empty())

	doc, err := ParseString("# comment\n\n")
	require.NoError(t, err)
	assert.True(t, doc.Empty())

	doc, err = ParseString("a = 1\n")
	require.NoError(t, err)
	assert.False(t, doc.Empty())
}

func TestProperty_BuiltDocumentsRoundTrip(t *testing.T) {
	keyRunes := []rune("abcXYZ019_-. /'\"\\ü€")
	valueRunes := []rune("ab z09'\"\\\n\r\t\x01\x7fé€")

	rapid.Check(t, func(t *rapid.T) {
		doc := New()
		expected := map[string]map[string]string{}

		nTables := rapid.IntRange(0, 5).Draw(t, "tables")
		for i := 0; i < nTables; i++ {
			key := rapid.StringOfN(rapid.SampledFrom(keyRunes), 1, 8, -1).Draw(t, "table")
			if _, dup := expected[key]; dup {
				continue
			}
			if err := doc.AddTable(key); err != nil {
				t.Fatalf("AddTable(%q): %v", key, err)
			}
			fields := map[string]string{}
			nFields := rapid.IntRange(0, 4).Draw(t, "fields")
			for j := 0; j < nFields; j++ {
				name := rapid.StringOfN(rapid.SampledFrom(keyRunes), 1, 6, -1).Draw(t, "field")
				value := rapid.StringOf(rapid.SampledFrom(valueRunes)).Draw(t, "value")
				if err := doc.Set(key, name, value); err != nil {
					t.Fatalf("Set(%q, %q): %v", key, name, err)
				}
				fields[name] = value
			}
			expected[key] = fields
		}

		text := doc.String()
		parsed, err := ParseString(text)
		if err != nil {
			t.Fatalf("reparse %q: %v", text, err)
		}
		if parsed.String() != text {
			t.Fatalf("round trip changed text:\n%q\n%q", text, parsed.String())
		}
		for key, fields := range expected {
			for name, want := range fields {
				got, ok, err := parsed.Value(key, name)
				if err != nil || !ok || got != want {
					t.Fatalf("Value(%q, %q) = %q, %v, %v; want %q", key, name, got, ok, err, want)
				}
			}
		}
	})
}

func TestDocument_RemoveTableKeepsNeighbourText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		key  string
		want string
	}{
		{
			name: "comment after last key of previous table",
			in:   "['a']\nxpriv = \"A\"\n# note about a\n\n['b']\nxpriv = \"B\"\n",
			key:  "b",
			want: "['a']\nxpriv = \"A\"\n# note about a\n",
		},
		{
			name: "header comment goes with its table",
			in:   "['a']\nx = 1\n\n# about b\n['b']\ny = 2\n\n['c']\nz = 3\n",
			key:  "b",
			want: "['a']\nx = 1\n\n['c']\nz = 3\n",
		},
		{
			name: "both kinds of comment",
			in:   "# file header\n\n['a']\nx = 1\n# end of a\n\n# about b\n['b']\ny = 2\n",
			key:  "b",
			want: "# file header\n\n['a']\nx = 1\n# end of a\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := ParseString(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.in, doc.String())

			require.True(t, doc.RemoveTable(tt.key))
			assert.Equal(t, tt.want, doc.String())
		})
	}
}

func TestDocument_AddThenRemoveRestoresText(t *testing.T) {
	inputs := []string{
		"['about']\nversion = \"0.1.0\"\n# trailing comment\n",
		"['about']\nversion = \"0.1.0\"\n\n# trailing comment\n\n",
		"a = 1\n# end",
		"# only a comment\n",
	}
	for _, in := range inputs {
		doc, err := ParseString(in)
		require.NoError(t, err)

		require.NoError(t, doc.AddTable("x"))
		require.NoError(t, doc.Set("x", "xpriv", "X"))
		require.True(t, doc.RemoveTable("x"))
		assert.Equal(t, in, doc.String())
	}
}

func TestDocument_RejectsInvalidUTF8(t *testing.T) {
	doc := New()
	require.NoError(t, doc.AddTable("t"))

	assert.ErrorIs(t, doc.Set("t", "k", "a\xffb"), ErrUnsupported)
	assert.ErrorIs(t, doc.Set("t", "k\xff", "v"), ErrUnsupported)
	assert.ErrorIs(t, doc.AddTable("bad\xff"), ErrUnsupported)
	assert.Equal(t, "['t']\n", doc.String())
}

func TestParse_Spans(t *testing.T) {
	doc, err := ParseString("# head\n  a . \"b c\" =\t'v' # note\r\n\n[[list]]  \nn = [\n  1, # one\n  2,\n]\n")
	require.NoError(t, err)

	kvs := doc.root.keyValues()
	require.Len(t, kvs, 1)
	assert.Equal(t, "  ", kvs[0].indent)
	assert.Equal(t, `a . "b c"`, kvs[0].rawKey)
	assert.Equal(t, []string{"a", "b c"}, kvs[0].path)
	assert.Equal(t, " =\t", kvs[0].sep)
	assert.Equal(t, "'v'", kvs[0].rawValue)
	assert.Equal(t, " # note\r\n", kvs[0].suffix)

	require.Len(t, doc.tables, 1)
	list := doc.tables[0]
	assert.True(t, list.array)
	assert.Equal(t, "\n", list.prefix)
	assert.Equal(t, "[[list]]  \n", list.header)
	arr := list.keyValues()
	require.Len(t, arr, 1)
	assert.Equal(t, "[\n  1, # one\n  2,\n]", arr[0].rawValue)
	assert.Equal(t, "\n", arr[0].suffix)
}
