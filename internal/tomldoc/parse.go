package tomldoc

import (
	"strings"
	"unicode/utf8"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
)

// Parse validates src and splits it into a lossless document tree.
func Parse(src []byte) (*Document, error) {
	if !utf8.Valid(src) {
		return nil, &ParseError{Line: 1, Column: 1, Message: "document is not valid UTF-8"}
	}
	var decoded map[string]any
	if err := toml.Unmarshal(src, &decoded); err != nil {
		return nil, fromDecodeError(err)
	}
	exprs, err := scanExpressions(src)
	if err != nil {
		return nil, err
	}
	return build(string(src), exprs), nil
}

// ParseString is Parse for string input.
func ParseString(src string) (*Document, error) {
	return Parse([]byte(src))
}

// expression locates one top-level line of the document: a table header,
// a key/value or a standalone comment. Offsets index the source.
type expression struct {
	kind      unstable.Kind
	lineStart int
	start     int // first byte of the key, or of a standalone comment
	keyEnd    int
	path      []string
	comment   int // trailing comment start, -1 if none
	end       int // comment end, -1 when the line has no comment
}

func scanExpressions(src []byte) ([]expression, error) {
	p := unstable.Parser{KeepComments: true}
	p.Reset(src)

	var exprs []expression
	for p.NextExpression() {
		n := p.Expression()
		e := expression{kind: n.Kind, comment: -1, end: -1}

		if n.Kind == unstable.Comment {
			e.start = int(n.Raw.Offset)
			e.end = e.start + int(n.Raw.Length)
		} else {
			for it := n.Key(); it.Next(); {
				k := it.Node()
				if len(e.path) == 0 {
					e.start = int(k.Raw.Offset)
				}
				e.keyEnd = int(k.Raw.Offset + k.Raw.Length)
				e.path = append(e.path, string(k.Data))
			}
			if c := n.Next(); c != nil && c.Kind == unstable.Comment {
				e.comment = int(c.Raw.Offset)
				e.end = e.comment + int(c.Raw.Length)
			}
		}

		e.lineStart = lastIndexNewline(src[:e.start]) + 1
		exprs = append(exprs, e)
	}
	if err := p.Error(); err != nil {
		return nil, fromParserError(&p, err)
	}
	return exprs, nil
}

func lastIndexNewline(b []byte) int {
	for i := len(b) - 1; i >= 0; i-- {
		if b[i] == '\n' {
			return i
		}
	}
	return -1
}

// build turns located expressions into the document tree. Text between
// expressions is kept as trivia so the tree renders back to src.
func build(src string, exprs []expression) *Document {
	doc := New()
	cur := doc.root
	pending := 0

	for i, e := range exprs {
		contentEnd := e.end
		if contentEnd < 0 {
			next := len(src)
			if i+1 < len(exprs) {
				next = exprs[i+1].lineStart
			}
			contentEnd = len(strings.TrimRight(src[:next], " \t\r\n"))
		}
		lineEnd := len(src)
		if j := strings.IndexByte(src[contentEnd:], '\n'); j >= 0 {
			lineEnd = contentEnd + j + 1
		}

		switch e.kind {
		case unstable.Comment:
			continue
		case unstable.Table, unstable.ArrayTable:
			head, prefix := splitGap(src[pending:e.lineStart])
			if head != "" {
				cur.items = append(cur.items, &item{trivia: head})
			}
			t := &Table{
				prefix: prefix,
				header: src[e.lineStart:lineEnd],
				path:   e.path,
				array:  e.kind == unstable.ArrayTable,
			}
			doc.tables = append(doc.tables, t)
			cur = t
		default:
			if gap := src[pending:e.lineStart]; gap != "" {
				cur.items = append(cur.items, &item{trivia: gap})
			}
			cur.items = append(cur.items, &item{kv: keyValueAt(src, e, contentEnd, lineEnd)})
		}
		pending = lineEnd
	}

	doc.trailer = src[pending:]
	return doc
}

func keyValueAt(src string, e expression, contentEnd, lineEnd int) *keyValue {
	eq := e.keyEnd + strings.IndexByte(src[e.keyEnd:], '=')
	valueStart := len(src) - len(strings.TrimLeft(src[eq+1:], " \t"))
	valueEnd := contentEnd
	if e.comment >= 0 {
		valueEnd = len(strings.TrimRight(src[:e.comment], " \t"))
	}
	return &keyValue{
		indent:   src[e.lineStart:e.start],
		rawKey:   src[e.start:e.keyEnd],
		path:     e.path,
		sep:      src[e.keyEnd:valueStart],
		rawValue: src[valueStart:valueEnd],
		suffix:   src[valueEnd:lineEnd],
	}
}

// splitGap divides the blank and comment lines in front of a header. The
// comment block directly above the header, and the blank lines above that
// block, go with the header; earlier lines stay with the previous section.
func splitGap(gap string) (head, prefix string) {
	lines := strings.SplitAfter(gap, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	i := len(lines)
	for i > 0 && strings.TrimSpace(lines[i-1]) != "" {
		i--
	}
	for i > 0 && strings.TrimSpace(lines[i-1]) == "" {
		i--
	}
	return strings.Join(lines[:i], ""), strings.Join(lines[i:], "")
}
