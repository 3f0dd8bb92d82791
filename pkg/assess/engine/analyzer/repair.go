package analyzer

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNoJSONObject is returned when the response text contains no opening
// brace at all.
var ErrNoJSONObject = errors.New("no JSON object found in response text")

// RepairJSON extracts the first {...} span from raw and parses it,
// applying best-effort structural completion when the provider truncated
// the output. It never panics and returns an explicit error when no
// amount of repair yields a parsable object.
//
// The repair procedure: close an unterminated string, strip a dangling
// trailing comma, complete a dangling colon with null, and append the
// closing brackets and braces still open at the end of the span. If that
// fails, the last incomplete object or array fragment is stripped and the
// re-balancing is retried once more.
func RepairJSON(raw string) (map[string]interface{}, error) {
	start := strings.IndexByte(raw, '{')
	if start < 0 {
		return nil, ErrNoJSONObject
	}
	tail := raw[start:]

	// A well-formed object possibly followed by prose or fence markers:
	// the span up to the last closing brace parses directly.
	if end := strings.LastIndexByte(tail, '}'); end > 0 {
		if parsed, ok := tryParse(tail[:end+1]); ok {
			return parsed, nil
		}
	}
	if parsed, ok := tryParse(tail); ok {
		return parsed, nil
	}

	// Truncated output: complete the tail structurally. The last closing
	// brace is not trusted here, it may sit inside a string literal.
	repaired := completeTruncated(tail)
	if parsed, ok := tryParse(repaired); ok {
		return parsed, nil
	}

	stripped, ok := stripIncompleteTail(tail)
	if ok {
		repaired = completeTruncated(stripped)
		if parsed, ok := tryParse(repaired); ok {
			return parsed, nil
		}
	}

	return nil, fmt.Errorf("response JSON unparsable after repair (%d byte span)", len(tail))
}

func tryParse(span string) (map[string]interface{}, bool) {
	var parsed map[string]interface{}
	if err := json.Unmarshal([]byte(span), &parsed); err != nil {
		return nil, false
	}
	return parsed, true
}

// scanState is the result of walking a span while honoring string
// literals and backslash escapes.
type scanState struct {
	// openers holds the unmatched '{' and '[' characters in opening order.
	openers []byte
	// inString reports whether the scan ended inside a quoted string.
	inString bool
}

func scanSpan(span string) scanState {
	var st scanState
	escaped := false
	for i := 0; i < len(span); i++ {
		c := span[i]
		if st.inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				st.inString = false
			}
			continue
		}
		switch c {
		case '"':
			st.inString = true
		case '{', '[':
			st.openers = append(st.openers, c)
		case '}':
			if n := len(st.openers); n > 0 && st.openers[n-1] == '{' {
				st.openers = st.openers[:n-1]
			}
		case ']':
			if n := len(st.openers); n > 0 && st.openers[n-1] == '[' {
				st.openers = st.openers[:n-1]
			}
		}
	}
	return st
}

// completeTruncated applies the structural completion steps to a span
// that failed to parse directly.
func completeTruncated(span string) string {
	st := scanSpan(span)

	var b strings.Builder
	b.WriteString(span)
	if st.inString {
		b.WriteByte('"')
	}
	repaired := strings.TrimRight(b.String(), " \t\r\n")

	// A dangling separator at the end of the span: a comma is dropped, a
	// colon is completed with null.
	if strings.HasSuffix(repaired, ",") {
		repaired = strings.TrimRight(repaired[:len(repaired)-1], " \t\r\n")
	} else if strings.HasSuffix(repaired, ":") {
		repaired += "null"
	}

	closers := make([]byte, 0, len(st.openers))
	for i := len(st.openers) - 1; i >= 0; i-- {
		if st.openers[i] == '{' {
			closers = append(closers, '}')
		} else {
			closers = append(closers, ']')
		}
	}
	return repaired + string(closers)
}

// stripIncompleteTail removes the last incomplete object/array fragment
// preceding the end of the span by truncating at the last comma outside a
// string literal. It returns false when no such comma exists.
func stripIncompleteTail(span string) (string, bool) {
	last := -1
	inString := false
	escaped := false
	for i := 0; i < len(span); i++ {
		c := span[i]
		if inString {
			if escaped {
				escaped = false
				continue
			}
			switch c {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case ',':
			last = i
		}
	}
	if last < 0 {
		return "", false
	}
	return span[:last], true
}
