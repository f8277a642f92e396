package translate

import (
	"cmp"
	"encoding/json"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// keys checked first when the reply wraps its lines in an object
var replyKeys = []string{"results", "translations", "lines", "data", "items"}

var codeFence = regexp.MustCompile("```(?:json|JSON)?")

// a backslash and the byte after it
var escapePair = regexp.MustCompile(`(?s)\\.`)

// parseBatchReply decodes an LLM reply and lines it up with the batch it
// answers. The result has one entry per batch item, in batch order.
func parseBatchReply(reply string, batch []TranslationItem) ([]TranslationResult, error) {
	lines, err := decodeReply(reply)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	return alignReply(lines, batch)
}

// decodeReply returns the first JSON value in reply that carries translated
// lines: a bare array, or an array under any key of a wrapper object. Code
// fences and surrounding prose are ignored.
func decodeReply(reply string) ([]TranslationResult, error) {
	reply = strings.TrimSpace(codeFence.ReplaceAllString(reply, ""))
	reply = escapeStrayBackslashes(reply)

	start := strings.IndexAny(reply, "[{")
	for start >= 0 {
		dec := json.NewDecoder(strings.NewReader(reply[start:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			if lines, ok := linesFrom(raw); ok {
				return lines, nil
			}
		}

		next := strings.IndexAny(reply[start+1:], "[{")
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, fmt.Errorf("no translated lines in reply: %s", preview(reply, 200))
}

func linesFrom(raw json.RawMessage) ([]TranslationResult, bool) {
	var lines []TranslationResult
	if err := json.Unmarshal(raw, &lines); err == nil {
		return lines, anyText(lines)
	}

	var wrapper map[string]json.RawMessage
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, false
	}

	keys := slices.Sorted(maps.Keys(wrapper))
	slices.SortStableFunc(keys, func(a, b string) int {
		return cmp.Compare(replyKeyRank(a), replyKeyRank(b))
	})
	for _, key := range keys {
		var nested []TranslationResult
		if err := json.Unmarshal(wrapper[key], &nested); err == nil && anyText(nested) {
			return nested, true
		}
	}
	return nil, false
}

func replyKeyRank(key string) int {
	if i := slices.Index(replyKeys, key); i >= 0 {
		return i
	}
	return len(replyKeys)
}

func anyText(lines []TranslationResult) bool {
	return slices.ContainsFunc(lines, func(l TranslationResult) bool {
		return l.Text != ""
	})
}

// alignReply maps reply lines onto batch items. A reply that echoes the
// batch indices is used as is; one numbered from 0 within the batch is
// mapped back through that local number. Duplicate or foreign indices are
// rejected rather than guessed, so no text lands on the wrong cue line.
func alignReply(lines []TranslationResult, batch []TranslationItem) ([]TranslationResult, error) {
	if len(lines) != len(batch) {
		return nil, fmt.Errorf("expected %d translated lines, got %d", len(batch), len(lines))
	}

	position := make(map[int]int, len(batch))
	for i, item := range batch {
		position[item.Index] = i
	}

	seen := make(map[int]bool, len(lines))
	echoed, local := true, true
	for _, line := range lines {
		if seen[line.Index] {
			return nil, fmt.Errorf("line index %d returned more than once", line.Index)
		}
		seen[line.Index] = true

		_, inBatch := position[line.Index]
		echoed = echoed && inBatch
		local = local && line.Index >= 0 && line.Index < len(batch)
	}

	aligned := make([]TranslationResult, len(batch))
	switch {
	case echoed:
		for _, line := range lines {
			aligned[position[line.Index]] = line
		}
	case local:
		for _, line := range lines {
			aligned[line.Index] = TranslationResult{Index: batch[line.Index].Index, Text: line.Text}
		}
	default:
		return nil, fmt.Errorf(
			"reply line indices do not match batch lines %d-%d",
			batch[0].Index,
			batch[len(batch)-1].Index,
		)
	}

	return aligned, nil
}

// escapeStrayBackslashes doubles every backslash that does not start a JSON
// escape, so ASS breaks like \N and \h survive decoding as literal text.
func escapeStrayBackslashes(s string) string {
	return escapePair.ReplaceAllStringFunc(s, func(pair string) string {
		if strings.IndexByte(`"\/bfnrtu`, pair[1]) >= 0 {
			return pair
		}
		return `\` + pair
	})
}

func preview(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
