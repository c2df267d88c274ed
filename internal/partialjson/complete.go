// Package partialjson turns the growing text of a streamed JSON document into
// decodable snapshots and merges successive snapshots monotonically.
package partialjson

import (
	"strings"
)

type container struct {
	kind byte // '{' or '['
	// expectKey is true inside an object while the next string is a key.
	expectKey bool
}

type safePoint struct {
	end   int
	stack []container
}

// Complete returns the longest prefix of text that can be closed into valid
// JSON, with every open string, array and object closed. The second result is
// false when text does not yet contain a top-level object or array.
func Complete(text string) (string, bool) {
	start := strings.IndexAny(text, "{[")
	if start < 0 {
		return "", false
	}
	text = text[start:]

	var (
		stack    []container
		last     *safePoint
		inString bool
		escaped  bool
		strStart int
		isKey    bool
		done     bool
	)

	mark := func(end int) {
		snapshot := make([]container, len(stack))
		copy(snapshot, stack)
		last = &safePoint{end: end, stack: snapshot}
	}

	// valueDone records that a value finished at end inside the current container.
	valueDone := func(end int) {
		if len(stack) == 0 {
			done = true
		}
		mark(end)
	}

	i := 0
	for i < len(text) && !done {
		ch := text[i]

		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
				if isKey {
					// A key alone is not a safe cut.
					isKey = false
				} else {
					valueDone(i + 1)
				}
			}
			i++
			continue
		}

		switch ch {
		case '{', '[':
			stack = append(stack, container{kind: ch, expectKey: ch == '{'})
			mark(i + 1)
		case '}', ']':
			if len(stack) == 0 {
				return closeAt(text, last)
			}
			stack = stack[:len(stack)-1]
			valueDone(i + 1)
		case '"':
			inString = true
			strStart = i
			isKey = len(stack) > 0 && stack[len(stack)-1].kind == '{' && stack[len(stack)-1].expectKey
		case ':':
			if len(stack) > 0 {
				stack[len(stack)-1].expectKey = false
			}
		case ',':
			if len(stack) > 0 && stack[len(stack)-1].kind == '{' {
				stack[len(stack)-1].expectKey = true
			}
		case ' ', '\t', '\n', '\r':
		default:
			end, ok := scanLiteral(text, i)
			if !ok {
				// Literal or number still being written.
				return closeAt(text, last)
			}
			valueDone(end)
			i = end
			continue
		}
		i++
	}

	if inString && !isKey {
		return closeOpenString(text, strStart)
	}
	return closeAt(text, last)
}

// closeOpenString closes the unterminated value string that starts at
// strStart, then every container open before it.
func closeOpenString(text string, strStart int) (string, bool) {
	var b strings.Builder
	b.WriteString(text[:strStart])
	b.WriteString(trimEscape(text[strStart:]))
	b.WriteByte('"')
	stack := stackAt(text[:strStart])
	for j := len(stack) - 1; j >= 0; j-- {
		b.WriteByte(closer(stack[j].kind))
	}
	return b.String(), true
}

func closeAt(text string, last *safePoint) (string, bool) {
	if last == nil {
		return "", false
	}
	var b strings.Builder
	b.WriteString(strings.TrimRight(text[:last.end], " \t\r\n,"))
	for j := len(last.stack) - 1; j >= 0; j-- {
		b.WriteByte(closer(last.stack[j].kind))
	}
	return b.String(), true
}

// stackAt recomputes the open containers of a prefix that ends outside a string.
func stackAt(prefix string) []container {
	var (
		stack    []container
		inString bool
		escaped  bool
	)
	for i := 0; i < len(prefix); i++ {
		ch := prefix[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{', '[':
			stack = append(stack, container{kind: ch})
		case '}', ']':
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return stack
}

// trimEscape drops a dangling backslash or an incomplete \uXXXX sequence.
func trimEscape(s string) string {
	if idx := strings.LastIndex(s, `\u`); idx >= 0 && len(s)-idx < 6 && !isEscaped(s, idx) {
		s = s[:idx]
	}
	trailing := 0
	for j := len(s) - 1; j >= 0 && s[j] == '\\'; j-- {
		trailing++
	}
	if trailing%2 == 1 {
		s = s[:len(s)-1]
	}
	return s
}

// isEscaped reports whether the backslash at idx is itself escaped.
func isEscaped(s string, idx int) bool {
	n := 0
	for j := idx - 1; j >= 0 && s[j] == '\\'; j-- {
		n++
	}
	return n%2 == 1
}

// scanLiteral reads a number, true, false or null starting at i. It returns
// ok=false when the token runs to the end of the input, because more
// characters may still arrive.
func scanLiteral(text string, i int) (int, bool) {
	j := i
	for j < len(text) && !isDelimiter(text[j]) {
		j++
	}
	if j == len(text) {
		return j, false
	}
	return j, true
}

func isDelimiter(ch byte) bool {
	switch ch {
	case ',', '}', ']', ' ', '\t', '\n', '\r', ':':
		return true
	}
	return false
}

func closer(kind byte) byte {
	if kind == '{' {
		return '}'
	}
	return ']'
}
