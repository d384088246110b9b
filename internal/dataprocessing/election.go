package dataprocessing

import (
	"sort"

	"countyvote/pkg/contracts/domain"
)

// ElectionPartition splits tallies by geographic granularity
type ElectionPartition struct {
	Federal []domain.ElectionTally
	State   []domain.ElectionTally
	County  []domain.ElectionTally
}

// PartitionElection assigns every tally to exactly one granularity
func PartitionElection(tallies []domain.ElectionTally) ElectionPartition {
	var p ElectionPartition
	for _, t := range tallies {
		switch t.Granularity() {
		case domain.GranularityFederal:
			p.Federal = append(p.Federal, t)
		case domain.GranularityState:
			p.State = append(p.State, t)
		default:
			p.County = append(p.County, t)
		}
	}
	return p
}

// rankTallies orders by votes descending, then candidate name ascending
func rankTallies(tallies []domain.ElectionTally) {
	sort.SliceStable(tallies, func(i, j int) bool {
		if tallies[i].Votes != tallies[j].Votes {
			return tallies[i].Votes > tallies[j].Votes
		}
		return tallies[i].Candidate < tallies[j].Candidate
	})
}

// ReduceTopTwo keeps the two leading candidates of every county and adds
// their two-candidate vote share. Counties with a single candidate or no
// votes among the leaders are dropped and counted.
func ReduceTopTwo(county []domain.ElectionTally) ([]domain.TopTwoTally, Diagnostics) {
	var diag Diagnostics

	groups := make(map[string][]domain.ElectionTally)
	var order []string
	for _, t := range county {
		if _, ok := groups[t.FIPS]; !ok {
			order = append(order, t.FIPS)
		}
		groups[t.FIPS] = append(groups[t.FIPS], t)
	}

	out := make([]domain.TopTwoTally, 0, 2*len(order))
	for _, fips := range order {
		g := groups[fips]
		if len(g) < 2 {
			diag.RecordN(StageElection, ReasonSingleCandidate, len(g), fips)
			continue
		}
		rankTallies(g)
		total := g[0].Votes + g[1].Votes
		if total == 0 {
			diag.RecordN(StageElection, ReasonZeroVotes, len(g), fips)
			continue
		}
		for rank := 1; rank <= 2; rank++ {
			t := g[rank-1]
			out = append(out, domain.TopTwoTally{
				ElectionTally: t,
				Rank:          rank,
				Share:         float64(t.Votes) / float64(total),
			})
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.State != b.State {
			return a.State < b.State
		}
		if a.County != b.County {
			return a.County < b.County
		}
		if a.FIPS != b.FIPS {
			return a.FIPS < b.FIPS
		}
		return a.Rank < b.Rank
	})

	return out, diag
}

// SummarizeFederal totals the national rows per candidate, ordered by votes
func SummarizeFederal(federal []domain.ElectionTally) []domain.CandidateTotal {
	votes := make(map[string]int64)
	var all int64
	for _, t := range federal {
		votes[t.Candidate] += t.Votes
		all += t.Votes
	}

	totals := make([]domain.CandidateTotal, 0, len(votes))
	for cand, v := range votes {
		ct := domain.CandidateTotal{Candidate: cand, Votes: v}
		if all > 0 {
			ct.Share = float64(v) / float64(all)
		}
		totals = append(totals, ct)
	}
	sort.Slice(totals, func(i, j int) bool {
		if totals[i].Votes != totals[j].Votes {
			return totals[i].Votes > totals[j].Votes
		}
		return totals[i].Candidate < totals[j].Candidate
	})
	return totals
}
