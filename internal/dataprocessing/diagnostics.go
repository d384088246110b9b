package dataprocessing

import (
	"context"
	"log/slog"
)

// Pipeline stages that remove rows
const (
	StageCensus   = "census"
	StageElection = "election"
	StageMerge    = "merge"
	StageAnalysis = "analysis"
)

// Reasons a row is removed
const (
	ReasonMissingValue       = "missing_value"
	ReasonZeroPopulation     = "zero_population"
	ReasonSingleCandidate    = "single_candidate"
	ReasonZeroVotes          = "zero_votes"
	ReasonUnknownState       = "unknown_state"
	ReasonAmbiguousKey       = "ambiguous_key"
	ReasonUnmatchedCensus    = "unmatched_census"
	ReasonUnmatchedElection  = "unmatched_election"
	ReasonCandidateNotTopTwo = "candidate_not_top_two"
)

// maxExamples caps the identifiers kept per drop entry
const maxExamples = 5

// Drop counts rows removed by one stage for one reason
type Drop struct {
	Stage    string   `json:"stage" db:"stage"`
	Reason   string   `json:"reason" db:"reason"`
	Count    int      `json:"count" db:"count"`
	Examples []string `json:"examples,omitempty" db:"-"`
}

// Diagnostics is the ordered record of every removal a stage made.
// The zero value is ready to use.
type Diagnostics struct {
	Drops []Drop `json:"drops"`
}

// Record counts one removed row. The example identifier is kept for the
// first few rows of each reason.
func (d *Diagnostics) Record(stage, reason, example string) {
	d.RecordN(stage, reason, 1, example)
}

// RecordN counts n removed rows sharing one example identifier.
func (d *Diagnostics) RecordN(stage, reason string, n int, example string) {
	if n <= 0 {
		return
	}
	if drop := d.find(stage, reason); drop != nil {
		drop.Count += n
		drop.addExample(example)
		return
	}
	drop := Drop{Stage: stage, Reason: reason, Count: n}
	drop.addExample(example)
	d.Drops = append(d.Drops, drop)
}

func (drop *Drop) addExample(example string) {
	if example == "" || len(drop.Examples) >= maxExamples {
		return
	}
	for _, e := range drop.Examples {
		if e == example {
			return
		}
	}
	drop.Examples = append(drop.Examples, example)
}

// Merge appends the drops of o, folding entries with the same stage and reason
func (d *Diagnostics) Merge(o Diagnostics) {
	for _, drop := range o.Drops {
		target := d.find(drop.Stage, drop.Reason)
		if target == nil {
			d.Drops = append(d.Drops, Drop{Stage: drop.Stage, Reason: drop.Reason})
			target = &d.Drops[len(d.Drops)-1]
		}
		target.Count += drop.Count
		for _, e := range drop.Examples {
			target.addExample(e)
		}
	}
}

func (d *Diagnostics) find(stage, reason string) *Drop {
	for i := range d.Drops {
		if d.Drops[i].Stage == stage && d.Drops[i].Reason == reason {
			return &d.Drops[i]
		}
	}
	return nil
}

// Count returns the rows removed for stage and reason
func (d Diagnostics) Count(stage, reason string) int {
	for _, drop := range d.Drops {
		if drop.Stage == stage && drop.Reason == reason {
			return drop.Count
		}
	}
	return 0
}

// Total returns the rows removed across all stages
func (d Diagnostics) Total() int {
	total := 0
	for _, drop := range d.Drops {
		total += drop.Count
	}
	return total
}

// Log writes one warning per drop entry
func (d Diagnostics) Log(ctx context.Context, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for _, drop := range d.Drops {
		logger.WarnContext(ctx, "Rows dropped",
			slog.String("stage", drop.Stage),
			slog.String("reason", drop.Reason),
			slog.Int("count", drop.Count),
			slog.Any("examples", drop.Examples))
	}
}
