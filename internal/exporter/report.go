package exporter

import (
	"time"

	"countyvote/internal/analysis"
	"countyvote/internal/dataprocessing"
	"countyvote/pkg/contracts/domain"
)

// Report is everything one pipeline run produced. Model results are nil
// when the model was disabled or not reached.
type Report struct {
	RunID     string
	Candidate string
	Seed      int64
	StartedAt time.Time
	Duration  time.Duration

	CensusTracts   int
	ElectionRows   int
	Federal        []domain.CandidateTotal
	Counties       []domain.CountyDemographics
	Merged         []domain.MergedRecord
	RegressionRows int
	ClassRows      int
	Diagnostics    dataprocessing.Diagnostics

	Linear   *analysis.LinearResult
	Logistic *analysis.LogisticResult
	Forest   *analysis.ForestResult
	Boost    *analysis.BoostResult
	KMeans   *analysis.KMeansResult
	Elbow    []analysis.ElbowPoint
}

// MatchedCounties is the number of counties in the merged table
func (r *Report) MatchedCounties() int {
	return len(r.Merged) / 2
}
