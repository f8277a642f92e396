package subtitle

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bareIndexRegex = regexp.MustCompile(`^\d+$`)
	timingLineSep  = "-->"
)

// SerializeSRT renders cues as SubRip text.
func SerializeSRT(cues []Cue) string {
	var sb strings.Builder
	for i, cue := range cues {
		fmt.Fprintf(&sb, "%d\n", i+1)
		fmt.Fprintf(&sb, "%s --> %s\n",
			FormatTimestamp(cue.Start),
			FormatTimestamp(cue.End))
		sb.WriteString(strings.TrimSpace(cue.Text))
		sb.WriteString("\n\n")
	}
	return sb.String()
}

// SRT document split into lines, with the positions of the spoken-text lines
type LineSplit struct {
	Lines           []string
	TextLineIndices []int
}

// ExtractTextLines classifies every line of an SRT document. Index lines,
// timing lines and blank separators are structural; everything else is text.
func ExtractTextLines(srt string) LineSplit {
	lines := strings.Split(srt, "\n")
	split := LineSplit{Lines: lines}
	for i, line := range lines {
		if isTextLine(line) {
			split.TextLineIndices = append(split.TextLineIndices, i)
		}
	}
	return split
}

func isTextLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return false
	}
	if bareIndexRegex.MatchString(trimmed) {
		return false
	}
	return !strings.Contains(line, timingLineSep)
}

// Texts returns the text lines in document order.
func (s LineSplit) Texts() []string {
	texts := make([]string, len(s.TextLineIndices))
	for k, idx := range s.TextLineIndices {
		texts[k] = strings.TrimSuffix(s.Lines[idx], "\r")
	}
	return texts
}

// Reassemble substitutes translated[k] for the k-th text line and leaves
// every structural line untouched. Text lines without a translation keep
// their original content.
func (s LineSplit) Reassemble(translated []string) string {
	out := make([]string, len(s.Lines))
	copy(out, s.Lines)

	for k, idx := range s.TextLineIndices {
		if k >= len(translated) {
			break
		}
		replacement := translated[k]
		if strings.HasSuffix(s.Lines[idx], "\r") {
			replacement += "\r"
		}
		out[idx] = replacement
	}

	return strings.Join(out, "\n")
}

// ParseSRT reads SubRip text into cues. Block indices are not validated;
// a malformed timing line fails with a *FormatError.
func ParseSRT(srt string) ([]Cue, error) {
	srt = strings.TrimPrefix(srt, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(srt, "\r\n", "\n"), "\n")

	var cues []Cue
	var current *Cue
	var textLines []string

	closeBlock := func() {
		if current != nil && len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			cues = append(cues, *current)
		}
		current = nil
		textLines = nil
	}

	for i, line := range lines {
		lineNum := i + 1
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			closeBlock()
			continue
		}

		if current == nil {
			if strings.Contains(trimmed, timingLineSep) {
				cue, err := parseTimingLine(trimmed, lineNum)
				if err != nil {
					return nil, err
				}
				current = &cue
				continue
			}
			// index line, or stray text outside a block
			continue
		}

		textLines = append(textLines, line)
	}
	closeBlock()

	return cues, nil
}

func parseTimingLine(line string, lineNum int) (Cue, error) {
	parts := strings.SplitN(line, timingLineSep, 2)

	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return Cue{}, withLine(err, lineNum)
	}

	// positional settings may follow the end timestamp
	endField := strings.Fields(parts[1])
	if len(endField) == 0 {
		return Cue{}, &FormatError{Value: line, Line: lineNum, Reason: "missing end timestamp"}
	}
	end, err := ParseTimestamp(endField[0])
	if err != nil {
		return Cue{}, withLine(err, lineNum)
	}

	return Cue{Start: start, End: end}, nil
}

func withLine(err error, lineNum int) error {
	if fe, ok := err.(*FormatError); ok {
		fe.Line = lineNum
		return fe
	}
	return err
}
