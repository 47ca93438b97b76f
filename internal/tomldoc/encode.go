package tomldoc

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
)

// encodeValue renders v as the right-hand side of a key/value line.
// Strings always use the basic (double-quoted) form; other scalars and
// inline arrays are rendered by go-toml.
func encodeValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: nil", ErrUnsupported)
	case string:
		if !utf8.ValidString(x) {
			return "", fmt.Errorf("%w: string is not valid UTF-8", ErrUnsupported)
		}
		return quoteBasic(x), nil
	}

	out, err := toml.Marshal(map[string]any{"v": v})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	s := strings.TrimSuffix(string(out), "\n")
	raw, ok := strings.CutPrefix(s, "v = ")
	if !ok || strings.Contains(raw, "\n") {
		return "", fmt.Errorf("%w: %T is not an inline value", ErrUnsupported, v)
	}
	return raw, nil
}

func decodeValue(raw string) (any, error) {
	var m map[string]any
	if err := toml.Unmarshal([]byte("v = "+raw+"\n"), &m); err != nil {
		return nil, err
	}
	return m["v"], nil
}

func quoteBasic(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\t':
			b.WriteString(`\t`)
		case '\n':
			b.WriteString(`\n`)
		case '\f':
			b.WriteString(`\f`)
		case '\r':
			b.WriteString(`\r`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\u%04X`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}

// quoteKey renders a key segment. Table headers always use the quoted
// literal form, matching the files immutag has always written.
func quoteKey(key string) (string, error) {
	if !utf8.ValidString(key) {
		return "", fmt.Errorf("%w: key is not valid UTF-8", ErrUnsupported)
	}
	for _, r := range key {
		if r == '\'' || (r < 0x20 && r != '\t') || r == 0x7f {
			return quoteBasic(key), nil
		}
	}
	return "'" + key + "'", nil
}

// fieldKey renders a key segment for a key/value line, bare when possible.
func fieldKey(key string) (string, error) {
	for i := 0; i < len(key); i++ {
		if !isBareKeyChar(key[i]) {
			return quoteKey(key)
		}
	}
	if key == "" {
		return quoteBasic(key), nil
	}
	return key, nil
}

func isBareKeyChar(c byte) bool {
	return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9' || c == '_' || c == '-'
}
