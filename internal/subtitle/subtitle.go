package subtitle

import (
	"math"
	"time"
)

// one timed subtitle entry, times in seconds
type Cue struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Duration returns End-Start in seconds.
func (c Cue) Duration() float64 {
	return c.End - c.Start
}

// untimed group of words destined to become one cue
type SegmentDraft struct {
	Text      string
	WordCount int
}

// represents single subtitle entry
type Entry struct {
	Index     int
	StartTime time.Duration
	EndTime   time.Duration
	Text      string
}

// represents complete subtitle track
type Subtitle struct {
	Entries  []Entry
	Language string
	Format   string
}

// represents supported subtitle formats
type Format string

const (
	FormatSRT  Format = "srt"
	FormatVTT  Format = "vtt"
	FormatASS  Format = "ass"
	FormatTTML Format = "ttml"
)

// interface for rendering subtitles
type Writer interface {
	Render(sub *Subtitle) ([]byte, error)
	Write(sub *Subtitle, path string) error
}

// FromCues builds a track from cues, numbering entries from 1.
func FromCues(cues []Cue) *Subtitle {
	entries := make([]Entry, 0, len(cues))
	for i, c := range cues {
		entries = append(entries, Entry{
			Index:     i + 1,
			StartTime: secondsToDuration(c.Start),
			EndTime:   secondsToDuration(c.End),
			Text:      c.Text,
		})
	}
	return &Subtitle{
		Entries: entries,
		Format:  string(FormatSRT),
	}
}

// Cues converts the track back to second-based cues.
func (s *Subtitle) Cues() []Cue {
	cues := make([]Cue, 0, len(s.Entries))
	for _, e := range s.Entries {
		cues = append(cues, Cue{
			Text:  e.Text,
			Start: e.StartTime.Seconds(),
			End:   e.EndTime.Seconds(),
		})
	}
	return cues
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(math.Round(clampSeconds(s)*1000)) * time.Millisecond
}
