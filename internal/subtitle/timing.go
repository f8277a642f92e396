package subtitle

// AllocateTimings lays drafts out back to back from zero using the
// speech-rate model, each cue clamped to [MinCueDuration, MaxCueDuration].
//
// When totalDuration is positive and the last cue ends after it, every
// timestamp is scaled by totalDuration/lastEnd. Timings that already fit are
// left alone; a totalDuration of zero or less means the duration is unknown.
func AllocateTimings(drafts []SegmentDraft, cfg TimingConfig, totalDuration float64) []Cue {
	cfg = cfg.WithDefaults()
	if len(drafts) == 0 {
		return []Cue{}
	}

	secondsPerWord := 60 / cfg.WordsPerMinute
	cues := make([]Cue, 0, len(drafts))
	cursor := 0.0

	for _, d := range drafts {
		duration := clamp(
			float64(d.WordCount)*secondsPerWord,
			cfg.MinCueDuration,
			cfg.MaxCueDuration,
		)
		cues = append(cues, Cue{
			Text:  d.Text,
			Start: cursor,
			End:   cursor + duration,
		})
		cursor += duration
	}

	if totalDuration > 0 && cursor > totalDuration {
		ratio := totalDuration / cursor
		for i := range cues {
			cues[i].Start *= ratio
			cues[i].End *= ratio
		}
		// pin the tail so float drift never overshoots
		cues[len(cues)-1].End = totalDuration
	}

	return cues
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
