package exporter

import (
	"fmt"
	"math"
	"time"

	"countyvote/internal/analysis"
	"countyvote/internal/dataprocessing"
	"countyvote/pkg/contracts/domain"
)

func nanValue() float64 { return math.NaN() }

func sampleMerged() []domain.MergedRecord {
	var out []domain.MergedRecord
	for i, county := range []string{"autauga", "baldwin"} {
		key := domain.CountyKey{State: "alabama", County: county}
		census := domain.CountyDemographics{State: "alabama", County: county, TotalPop: float64(400 + 100*i), Tracts: 2, WeightSum: 1}
		census.Income = 55000 + 5000*float64(i)
		census.Men = 42.5
		out = append(out,
			domain.MergedRecord{Key: key, Census: census, TopTwoTally: domain.TopTwoTally{
				ElectionTally: domain.ElectionTally{FIPS: fmt.Sprint(1001 + 2*i), State: "AL", County: county, Candidate: "Alice Adams", Votes: 70},
				Rank:          1, Share: 0.7,
			}},
			domain.MergedRecord{Key: key, Census: census, TopTwoTally: domain.TopTwoTally{
				ElectionTally: domain.ElectionTally{FIPS: fmt.Sprint(1001 + 2*i), State: "AL", County: county, Candidate: "Bob Brown", Votes: 30},
				Rank:          2, Share: 0.3,
			}},
		)
	}
	return out
}

func sampleReport() *Report {
	merged := sampleMerged()
	var diag dataprocessing.Diagnostics
	diag.RecordN(dataprocessing.StageMerge, dataprocessing.ReasonUnmatchedCensus, 3, "alaska/aleutians east")
	diag.Record(dataprocessing.StageCensus, dataprocessing.ReasonZeroPopulation, "1001020100")

	names := []string{"Income", "Men"}
	eval := analysis.Evaluate([]float64{0.9, 0.2, 0.7, 0.4}, []float64{1, 0, 0, 1}, 0.5)

	return &Report{
		RunID:          "run-1",
		Candidate:      "Alice Adams",
		Seed:           1,
		StartedAt:      time.Now().Add(-time.Minute),
		Duration:       1500 * time.Millisecond,
		CensusTracts:   4,
		ElectionRows:   11,
		Federal:        []domain.CandidateTotal{{Candidate: "Alice Adams", Votes: 62984828, Share: 0.512}, {Candidate: "Bob Brown", Votes: 60000000, Share: 0.488}},
		Counties:       []domain.CountyDemographics{merged[0].Census, merged[2].Census},
		Merged:         merged,
		RegressionRows: 2,
		ClassRows:      2,
		Diagnostics:    diag,
		Linear: &analysis.LinearResult{
			Coefficients: []analysis.Coefficient{{Name: "(Intercept)", Estimate: 0.1}, {Name: "Income", Estimate: 1e-5}, {Name: "Men", Estimate: -0.002}},
			TrainRows:    2, TestRows: 1, TrainR2: 0.93, TestRMSE: 0.04,
			WinThreshold: 0.5, ActualWins: 1, PredictedWins: 1, Agreement: 1,
		},
		Logistic: &analysis.LogisticResult{
			Coefficients: []analysis.Coefficient{{Name: "(Intercept)", Estimate: 0.3}, {Name: "Income", Estimate: 1.2}, {Name: "Men", Estimate: -0.4}},
			Iterations:   6, Converged: true, TrainRows: 3, TestRows: 4,
			Default: eval, Optimal: eval, AUC: 0.75,
			ROC: []analysis.ROCPoint{
				{Threshold: math.Inf(1), FPR: 0, TPR: 0},
				{Threshold: 0.9, FPR: 0, TPR: 0.5},
				{Threshold: 0.7, FPR: 0.5, TPR: 0.5},
				{Threshold: 0.4, FPR: 0.5, TPR: 1},
				{Threshold: 0.2, FPR: 1, TPR: 1},
			},
		},
		Forest: &analysis.ForestResult{
			Trees: 10, Mtry: 1, TrainRows: 3, TestRows: 4, OOBError: 0.2, TestError: 0.25, Test: eval,
			Importance: []analysis.Importance{{Name: "Income", Value: 0.3}, {Name: "Men", Value: 0.01}},
		},
		Boost: &analysis.BoostResult{
			MaxTrees: 3, BestTrees: 2, Depth: 2, Folds: 2, TrainRows: 3, TestRows: 4,
			CVDeviance: []float64{1.3, 1.1, 1.2}, Test: eval,
			Influence: []analysis.Importance{{Name: "Income", Value: 80}, {Name: "Men", Value: 20}},
		},
		KMeans: &analysis.KMeansResult{
			K: 2, Restarts: 5, Inertia: 1.5, Names: names,
			Elbow: []analysis.ElbowPoint{{K: 2, Inertia: 1.5}},
			Clusters: []analysis.ClusterSummary{
				{Cluster: 1, Size: 1, Won: 1, WonShare: 1, Center: []float64{-1, 0}},
				{Cluster: 2, Size: 1, Won: 0, WonShare: 0, Center: []float64{1, 0}},
			},
			Labels:    []int{0, 1},
			Keys:      []domain.CountyKey{merged[0].Key, merged[2].Key},
			Scores:    [][]float64{{-1, 0}, {1, 0}},
			Explained: []float64{1, 0},
		},
		Elbow: []analysis.ElbowPoint{{K: 2, Inertia: 1.5}, {K: 3, Inertia: 0.9}, {K: 4, Inertia: 0.4}},
	}
}
