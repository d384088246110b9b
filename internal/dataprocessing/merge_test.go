package dataprocessing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countyvote/pkg/contracts/domain"
)

func TestNormalizeState(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"AL", "alabama", true},
		{"al", "alabama", true},
		{" DC ", "district of columbia", true},
		{"New  York", "new york", true},
		{"Puerto Rico", "puerto rico", true},
		{"WYOMING", "wyoming", true},
		{"Atlantis", "atlantis", false},
		{"US", "us", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := NormalizeState(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestNormalizeCounty(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Autauga County", "autauga"},
		{"Autauga", "autauga"},
		{"Orleans Parish", "orleans"},
		{"Baltimore city", "baltimore"},
		{"District of Columbia", "district of"},
		{"Carson City", "carson"},
		{"James City County", "james"},
		{"  Los Angeles   County ", "los angeles"},
		{"County", "county"},
		{"Dona Ana", "dona ana"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeCounty(tt.in))
		})
	}
}

func demographics(state, county string) domain.CountyDemographics {
	return domain.CountyDemographics{State: state, County: county, TotalPop: 100, Tracts: 1, WeightSum: 1}
}

func topTwo(fips, st, county string, first, second int64) []domain.TopTwoTally {
	total := float64(first + second)
	return []domain.TopTwoTally{
		{ElectionTally: tally(fips, st, county, "Alice", first), Rank: 1, Share: float64(first) / total},
		{ElectionTally: tally(fips, st, county, "Bob", second), Rank: 2, Share: float64(second) / total},
	}
}

func TestMerge_Drops(t *testing.T) {
	census := []domain.CountyDemographics{
		demographics("Maryland", "Baltimore"),
		demographics("Maryland", "Baltimore city"),
		demographics("Maryland", "Allegany"),
		demographics("Maryland", "Garrett"),
		demographics("Narnia", "Lantern"),
	}
	var election []domain.TopTwoTally
	election = append(election, topTwo("24005", "MD", "Baltimore County", 60, 40)...)
	election = append(election, topTwo("24510", "MD", "Baltimore city", 20, 80)...)
	election = append(election, topTwo("24001", "MD", "Allegany County", 70, 30)...)
	election = append(election, topTwo("24047", "MD", "Worcester County", 55, 45)...)
	election = append(election, topTwo("99001", "ZZ", "Nowhere County", 50, 50)...)

	merged, diag := Merge(census, election)

	require.Len(t, merged, 2)
	for _, m := range merged {
		assert.Equal(t, domain.CountyKey{State: "maryland", County: "allegany"}, m.Key)
		assert.Equal(t, "Allegany", m.Census.County)
	}
	assert.Equal(t, 1, merged[0].Rank)
	assert.Equal(t, 2, merged[1].Rank)

	assert.Equal(t, 2+4, diag.Count(StageMerge, ReasonAmbiguousKey))
	assert.Equal(t, 1, diag.Count(StageMerge, ReasonUnmatchedCensus))
	assert.Equal(t, 2, diag.Count(StageMerge, ReasonUnmatchedElection))
	assert.Equal(t, 1+2, diag.Count(StageMerge, ReasonUnknownState))
}

func TestMerge_NoOverlap(t *testing.T) {
	merged, diag := Merge(
		[]domain.CountyDemographics{demographics("Ohio", "Adams")},
		topTwo("39003", "OH", "Allen County", 1, 1),
	)
	assert.Empty(t, merged)
	assert.Equal(t, 1, diag.Count(StageMerge, ReasonUnmatchedCensus))
	assert.Equal(t, 2, diag.Count(StageMerge, ReasonUnmatchedElection))
}

// Four tracts in two counties against three candidates yield four merged
// rows whose demographics are the hand-computed weighted aggregates.
func TestPipeline_FourTractsTwoCountiesThreeCandidates(t *testing.T) {
	records, tallies := scenarioRecords(t)

	counties, censusDiag := NormalizeCensus(records)
	reduced, electionDiag := ReduceTopTwo(PartitionElection(tallies).County)
	merged, mergeDiag := Merge(counties, reduced)

	assert.Zero(t, censusDiag.Total()+electionDiag.Total()+mergeDiag.Total())
	require.Len(t, merged, 4)

	perCounty := make(map[domain.CountyKey][]domain.MergedRecord)
	for _, m := range merged {
		perCounty[m.Key] = append(perCounty[m.Key], m)
	}
	require.Len(t, perCounty, 2)
	for key, rows := range perCounty {
		require.Len(t, rows, 2, key.String())
		assert.InDelta(t, 1.0, rows[0].Share+rows[1].Share, 1e-12, key.String())
		assert.NotEqual(t, rows[0].Candidate, rows[1].Candidate)
	}

	autauga := perCounty[domain.CountyKey{State: "alabama", County: "autauga"}]
	assert.Equal(t, "Alice Adams", autauga[0].Candidate)
	assert.InDelta(t, 0.625, autauga[0].Share, 1e-12)
	assert.Equal(t, "Bob Brown", autauga[1].Candidate)
	assert.InDelta(t, 55000.0, autauga[1].Census.Income, 1e-9)
	assert.InDelta(t, 42.5, autauga[1].Census.Men, 1e-9)
	assert.InDelta(t, 15.0, autauga[1].Census.Minority, 1e-9)

	baldwin := perCounty[domain.CountyKey{State: "alabama", County: "baldwin"}]
	assert.Equal(t, "Bob Brown", baldwin[0].Candidate)
	assert.InDelta(t, 0.75, baldwin[0].Share, 1e-12)
	assert.InDelta(t, 60000.0, baldwin[0].Census.Income, 1e-9)
	assert.InDelta(t, 10.0, baldwin[0].Census.Minority, 1e-9)
}
