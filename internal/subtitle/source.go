package subtitle

import "strings"

// TimingSource decides where cue timestamps come from: the transcription
// provider, or the speech-rate model applied to flat text.
type TimingSource interface {
	Resolve(cfg TimingConfig) []Cue
	isTimingSource()
}

// cues timed by the transcription provider
type ProviderSupplied struct {
	Cues []Cue
}

// flat transcript text to be timed locally; TotalDuration <= 0 when unknown
type Synthesized struct {
	Text          string
	TotalDuration float64
}

func (ProviderSupplied) isTimingSource() {}
func (Synthesized) isTimingSource()      {}

// Resolve keeps the provider timestamps, trimming text and dropping empty cues.
// Cues with a non-positive duration are given MinCueDuration.
func (p ProviderSupplied) Resolve(cfg TimingConfig) []Cue {
	cfg = cfg.WithDefaults()
	cues := make([]Cue, 0, len(p.Cues))
	for _, c := range p.Cues {
		text := strings.TrimSpace(c.Text)
		if text == "" {
			continue
		}
		start := max(c.Start, 0)
		end := c.End
		if end <= start {
			end = start + cfg.MinCueDuration
		}
		cues = append(cues, Cue{Text: text, Start: start, End: end})
	}
	return cues
}

func (s Synthesized) Resolve(cfg TimingConfig) []Cue {
	return AllocateTimings(BuildSegments(s.Text, cfg), cfg, s.TotalDuration)
}

// SourceFor returns ProviderSupplied when the provider returned segments and
// Synthesized otherwise.
func SourceFor(text string, segments []Cue, totalDuration float64) TimingSource {
	if len(segments) > 0 {
		return ProviderSupplied{Cues: segments}
	}
	return Synthesized{Text: text, TotalDuration: totalDuration}
}
