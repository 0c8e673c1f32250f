package recovery

import (
	"bytes"
	"encoding/json"
	"io"
	"regexp"
	"strings"
)

// Method names the strategy that produced a record.
type Method string

const (
	// MethodFenced means a ```json fenced block parsed.
	MethodFenced Method = "fenced"
	// MethodDirect means the whole text parsed as an object.
	MethodDirect Method = "direct"
	// MethodBrace means the span from the first '{' to the last '}' parsed.
	MethodBrace Method = "brace"
	// MethodNone means nothing parsed and the record is empty.
	MethodNone Method = "none"
)

var (
	fencedPattern = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bracePattern  = regexp.MustCompile(`(?s)\{.*\}`)
)

// Recover extracts a JSON object from raw text. It never fails: when no
// strategy yields an object the empty record is returned.
func Recover(raw string) Record {
	r, _ := RecoverWithMethod(raw)
	return r
}

// RecoverWithMethod is Recover, also reporting which strategy succeeded.
// Strategies run in order: fenced block, direct parse, greedy brace span.
func RecoverWithMethod(raw string) (Record, Method) {
	if m := fencedPattern.FindStringSubmatch(raw); m != nil {
		if r, ok := parseObject(m[1]); ok {
			return r, MethodFenced
		}
	}

	if r, ok := parseObject(strings.TrimSpace(raw)); ok {
		return r, MethodDirect
	}

	if span := bracePattern.FindString(raw); span != "" {
		if r, ok := parseObject(span); ok {
			return r, MethodBrace
		}
	}

	return Record{}, MethodNone
}

// parseObject parses text as exactly one JSON object.
func parseObject(text string) (Record, bool) {
	if text == "" {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, false
	}
	// trailing content means the text was not a single value
	var extra any
	if err := dec.Decode(&extra); err != io.EOF {
		return nil, false
	}

	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, false
	}
	return fromMap(obj), true
}
