package dataprocessing

import (
	"sort"

	"countyvote/pkg/contracts/domain"
)

// TractWeight is one tract's share of its county population
type TractWeight struct {
	TractID string
	State   string
	County  string
	Weight  float64
}

type countyKey struct {
	state, county string
}

// usableTracts filters out tracts that cannot be aggregated and returns the
// survivors with the total population of each county.
func usableTracts(records []domain.CensusRecord) ([]domain.CensusRecord, map[countyKey]float64, Diagnostics) {
	var diag Diagnostics
	kept := make([]domain.CensusRecord, 0, len(records))
	pop := make(map[countyKey]float64)

	for _, rec := range records {
		switch {
		case rec.HasMissing():
			diag.Record(StageCensus, ReasonMissingValue, rec.TractID)
			continue
		case rec.TotalPop <= 0:
			diag.Record(StageCensus, ReasonZeroPopulation, rec.TractID)
			continue
		}
		kept = append(kept, rec)
		pop[countyKey{rec.State, rec.County}] += rec.TotalPop
	}
	return kept, pop, diag
}

// TractWeights returns the population weight of every usable tract.
// Weights of the tracts of one county sum to 1.
func TractWeights(records []domain.CensusRecord) []TractWeight {
	kept, pop, _ := usableTracts(records)
	weights := make([]TractWeight, 0, len(kept))
	for _, rec := range kept {
		weights = append(weights, TractWeight{
			TractID: rec.TractID,
			State:   rec.State,
			County:  rec.County,
			Weight:  rec.TotalPop / pop[countyKey{rec.State, rec.County}],
		})
	}
	return weights
}

// tractDemographics converts one tract to the retained measures: head
// counts become percentages of the tract population, the race and
// ethnicity shares collapse into Minority, and Women, Walk, PublicWork,
// Construction and the margin-of-error columns are left out.
func tractDemographics(rec domain.CensusRecord) domain.Demographics {
	pct := func(count float64) float64 { return count / rec.TotalPop * 100 }

	return domain.Demographics{
		Men:          pct(rec.Men),
		White:        rec.White,
		Citizen:      pct(rec.Citizen),
		Income:       rec.Income,
		IncomePerCap: rec.IncomePerCap,
		Poverty:      rec.Poverty,
		ChildPoverty: rec.ChildPoverty,
		Professional: rec.Professional,
		Service:      rec.Service,
		Office:       rec.Office,
		Production:   rec.Production,
		Drive:        rec.Drive,
		Carpool:      rec.Carpool,
		Transit:      rec.Transit,
		OtherTransp:  rec.OtherTransp,
		WorkAtHome:   rec.WorkAtHome,
		MeanCommute:  rec.MeanCommute,
		Employed:     pct(rec.Employed),
		PrivateWork:  rec.PrivateWork,
		SelfEmployed: rec.SelfEmployed,
		FamilyWork:   rec.FamilyWork,
		Unemployment: rec.Unemployment,
		Minority:     rec.Hispanic + rec.Black + rec.Native + rec.Asian + rec.Pacific,
	}
}

// NormalizeCensus aggregates tracts into one population-weighted row per
// county. Tracts with a missing measure or no population are dropped and
// counted; a county left without tracts is absent from the output.
func NormalizeCensus(records []domain.CensusRecord) ([]domain.CountyDemographics, Diagnostics) {
	kept, pop, diag := usableTracts(records)

	byCounty := make(map[countyKey]*domain.CountyDemographics, len(pop))
	for _, rec := range kept {
		key := countyKey{rec.State, rec.County}
		weight := rec.TotalPop / pop[key]

		cd, ok := byCounty[key]
		if !ok {
			cd = &domain.CountyDemographics{
				State:    rec.State,
				County:   rec.County,
				TotalPop: pop[key],
			}
			byCounty[key] = cd
		}
		cd.Tracts++
		cd.WeightSum += weight
		cd.Demographics = cd.Demographics.Add(tractDemographics(rec).Scale(weight))
	}

	out := make([]domain.CountyDemographics, 0, len(byCounty))
	for _, cd := range byCounty {
		out = append(out, *cd)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].County < out[j].County
	})

	return out, diag
}
