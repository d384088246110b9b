package dataprocessing

import (
	"sort"
	"strings"

	"countyvote/pkg/contracts/domain"
)

// countySuffixes are stripped from the end of county names. The list is
// fixed; variants outside it do not match.
var countySuffixes = map[string]bool{
	"county":   true,
	"columbia": true,
	"city":     true,
	"parish":   true,
}

// NormalizeState maps a USPS abbreviation or a state name to the lowercase
// full name. ok is false when the state is not recognized.
func NormalizeState(s string) (name string, ok bool) {
	s = strings.TrimSpace(s)
	if full, found := stateNames[strings.ToUpper(s)]; found {
		return full, true
	}
	name = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return name, knownStates[name]
}

// NormalizeCounty lowercases a county name and strips trailing suffix
// tokens until none remain. A name made only of suffixes keeps its first
// token.
func NormalizeCounty(name string) string {
	tokens := strings.Fields(strings.ToLower(name))
	for len(tokens) > 1 && countySuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// Merge inner-joins county demographics to top-two tallies on the
// normalized (state, county) key. Rows without a partner, with an
// unrecognized state, or whose key is shared by more than one source
// county on either side are dropped and counted.
func Merge(demographics []domain.CountyDemographics, topTwo []domain.TopTwoTally) ([]domain.MergedRecord, Diagnostics) {
	var diag Diagnostics

	// census side: key -> demographics rows
	census := make(map[domain.CountyKey][]domain.CountyDemographics)
	for _, cd := range demographics {
		state, ok := NormalizeState(cd.State)
		if !ok {
			diag.Record(StageMerge, ReasonUnknownState, cd.State+"/"+cd.County)
			continue
		}
		key := domain.CountyKey{State: state, County: NormalizeCounty(cd.County)}
		census[key] = append(census[key], cd)
	}

	// election side: key -> tallies, plus the distinct source counties
	election := make(map[domain.CountyKey][]domain.TopTwoTally)
	sources := make(map[domain.CountyKey]map[string]bool)
	for _, t := range topTwo {
		state, ok := NormalizeState(t.State)
		if !ok {
			diag.Record(StageMerge, ReasonUnknownState, t.State+"/"+t.County)
			continue
		}
		key := domain.CountyKey{State: state, County: NormalizeCounty(t.County)}
		election[key] = append(election[key], t)
		if sources[key] == nil {
			sources[key] = make(map[string]bool)
		}
		sources[key][t.FIPS] = true
	}

	ambiguous := make(map[domain.CountyKey]bool)
	for key, rows := range census {
		if len(rows) > 1 {
			ambiguous[key] = true
		}
	}
	for key, fips := range sources {
		if len(fips) > 1 {
			ambiguous[key] = true
		}
	}

	var out []domain.MergedRecord
	for _, key := range sortedKeys(census) {
		rows := census[key]
		switch {
		case ambiguous[key]:
			diag.RecordN(StageMerge, ReasonAmbiguousKey, len(rows), key.String())
		case len(election[key]) == 0:
			diag.RecordN(StageMerge, ReasonUnmatchedCensus, len(rows), key.String())
		default:
			for _, t := range election[key] {
				out = append(out, domain.MergedRecord{Key: key, TopTwoTally: t, Census: rows[0]})
			}
		}
	}
	for _, key := range sortedKeys(election) {
		tallies := election[key]
		switch {
		case ambiguous[key]:
			diag.RecordN(StageMerge, ReasonAmbiguousKey, len(tallies), key.String())
		case len(census[key]) == 0:
			diag.RecordN(StageMerge, ReasonUnmatchedElection, len(tallies), key.String())
		}
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Key.State != b.Key.State {
			return a.Key.State < b.Key.State
		}
		if a.Key.County != b.Key.County {
			return a.Key.County < b.Key.County
		}
		return a.Rank < b.Rank
	})

	return out, diag
}

func sortedKeys[V any](m map[domain.CountyKey]V) []domain.CountyKey {
	keys := make([]domain.CountyKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].State != keys[j].State {
			return keys[i].State < keys[j].State
		}
		return keys[i].County < keys[j].County
	})
	return keys
}
