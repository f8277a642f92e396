package subtitle

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// hours are optional in WebVTT timestamps; cue settings may follow the end time
var vttTimingRegex = regexp.MustCompile(
	`^(?:(\d{2,}):)?(\d{2}):(\d{2})\.(\d{3})\s*-->\s*(?:(\d{2,}):)?(\d{2}):(\d{2})\.(\d{3})`,
)

// ParseVTT reads WebVTT text into cues. NOTE, STYLE and REGION blocks and
// cue identifiers are skipped.
func ParseVTT(vtt string) ([]Cue, error) {
	vtt = strings.TrimPrefix(vtt, "\ufeff")
	lines := strings.Split(strings.ReplaceAll(vtt, "\r\n", "\n"), "\n")

	var cues []Cue
	var current *Cue
	var textLines []string
	skipping := false

	closeBlock := func() {
		if current != nil && len(textLines) > 0 {
			current.Text = strings.Join(textLines, "\n")
			cues = append(cues, *current)
		}
		current = nil
		textLines = nil
	}

	for i, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			closeBlock()
			skipping = false
			continue
		}
		if skipping {
			continue
		}

		if current == nil && isVTTMetaBlock(trimmed) {
			skipping = true
			continue
		}

		if strings.Contains(trimmed, timingLineSep) {
			m := vttTimingRegex.FindStringSubmatch(trimmed)
			if m == nil {
				return nil, fmt.Errorf("invalid WebVTT timing line %q at line %d", trimmed, i+1)
			}
			closeBlock()
			current = &Cue{
				Start: vttSeconds(m[1], m[2], m[3], m[4]),
				End:   vttSeconds(m[5], m[6], m[7], m[8]),
			}
			continue
		}

		if current != nil {
			textLines = append(textLines, line)
		}
	}
	closeBlock()

	return cues, nil
}

func isVTTMetaBlock(line string) bool {
	for _, prefix := range []string{"WEBVTT", "NOTE", "STYLE", "REGION"} {
		if line == prefix || strings.HasPrefix(line, prefix+" ") || strings.HasPrefix(line, prefix+"\t") {
			return true
		}
	}
	return false
}

func vttSeconds(hours, minutes, seconds, millis string) float64 {
	h, _ := strconv.Atoi(hours)
	m, _ := strconv.Atoi(minutes)
	s, _ := strconv.Atoi(seconds)
	ms, _ := strconv.Atoi(millis)
	return float64(h*3600+m*60+s) + float64(ms)/1000
}
