// Package dataprocessing turns the raw census and election files into the
// merged county table the models consume.
//
// # Architecture
//
// The package is organized into four stages:
//
// 1. Loader: reads census tracts and election tallies from CSV or XLSX
// 2. Census normalizer: aggregates tracts into population-weighted counties
// 3. Election reducer: partitions tallies and keeps the top two per county
// 4. Merger: joins both sides on a normalized (state, county) key
//
// Every stage after loading returns its output together with a Diagnostics
// value counting the rows it removed and why.
//
// # Usage
//
//	in, err := dataprocessing.LoadInputs(ctx, "census.csv", "pres16results.csv")
//	if err != nil {
//	    return err
//	}
//	counties, diag := dataprocessing.NormalizeCensus(in.Census)
//	part := dataprocessing.PartitionElection(in.Election)
//	topTwo, reduceDiag := dataprocessing.ReduceTopTwo(part.County)
//	merged, mergeDiag := dataprocessing.Merge(counties, topTwo)
//
// # Data Flow
//
//	census file   → LoadCensus   → NormalizeCensus ┐
//	                                               ├→ Merge → []MergedRecord
//	election file → LoadElection → ReduceTopTwo    ┘
//
// # Error Handling
//
// Loaders fail on the first malformed row with a MALFORMED_ROW error that
// names the file, line and column. Blank or NA census measures are not
// errors; the tract is dropped later by NormalizeCensus. Nothing after the
// loader returns an error: removals are reported through Diagnostics.
package dataprocessing
