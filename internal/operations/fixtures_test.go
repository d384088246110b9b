package operations_test

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"countyvote/internal/config"
)

var censusHeader = []string{
	"CensusTract", "State", "County", "TotalPop", "Men", "Women", "Hispanic",
	"White", "Black", "Native", "Asian", "Pacific", "Citizen", "Income",
	"IncomeErr", "IncomePerCap", "IncomePerCapErr", "Poverty", "ChildPoverty",
	"Professional", "Service", "Office", "Construction", "Production", "Drive",
	"Carpool", "Transit", "Walk", "OtherTransp", "WorkAtHome", "MeanCommute",
	"Employed", "PrivateWork", "PublicWork", "SelfEmployed", "FamilyWork",
	"Unemployment",
}

var electionHeader = []string{"county", "fips", "cand", "st", "pct_report", "votes", "total_votes", "pct", "lead"}

const (
	leader   = "Alice Adams"
	opponent = "Bob Brown"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeCSV(t *testing.T, dir, name string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}

// countyFixture writes n single-tract Alabama counties with random
// demographics. The leader wins wherever White is above 50.
func countyFixture(t *testing.T, n int) (censusPath, electionPath string) {
	t.Helper()
	dir := t.TempDir()
	rng := rand.New(rand.NewPCG(7, 11))

	var tracts, votes [][]string
	for i := 0; i < n; i++ {
		county := fmt.Sprintf("County%03d", i)
		fips := strconv.Itoa(1001 + 2*i)

		row := make([]string, len(censusHeader))
		white := 0.0
		for j, col := range censusHeader {
			switch col {
			case "CensusTract":
				row[j] = fips + "001"
			case "State":
				row[j] = "Alabama"
			case "County":
				row[j] = county
			case "TotalPop":
				row[j] = "1000"
			case "Men", "Women", "Citizen", "Employed":
				row[j] = strconv.Itoa(200 + rng.IntN(300))
			case "Income", "IncomePerCap":
				row[j] = strconv.Itoa(20000 + rng.IntN(60000))
			case "White":
				white = 10 + 80*rng.Float64()
				row[j] = strconv.FormatFloat(white, 'f', 2, 64)
			default:
				row[j] = strconv.FormatFloat(1+30*rng.Float64(), 'f', 2, 64)
			}
		}
		tracts = append(tracts, row)

		lead, trail := int64(600+rng.IntN(300)), int64(200+rng.IntN(300))
		if white <= 50 {
			lead, trail = trail, lead
		}
		name := county + " County"
		votes = append(votes,
			[]string{name, fips, leader, "AL", "1", strconv.FormatInt(lead, 10), "0", "0", ""},
			[]string{name, fips, opponent, "AL", "1", strconv.FormatInt(trail, 10), "0", "0", ""},
		)
	}
	votes = append(votes,
		[]string{"", "US", leader, "US", "1", "50000", "0", "0", ""},
		[]string{"", "US", opponent, "US", "1", "40000", "0", "0", ""},
	)

	return writeCSV(t, dir, "census.csv", censusHeader, tracts),
		writeCSV(t, dir, "election.csv", electionHeader, votes)
}

// testConfig is a small, fast configuration writing under t.TempDir()
func testConfig(t *testing.T, censusPath, electionPath string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Data.CensusPath = censusPath
	cfg.Data.ElectionPath = electionPath
	cfg.Analysis.Candidate = leader
	cfg.Analysis.Seed = 3
	cfg.Analysis.Forest.Trees = 15
	cfg.Analysis.Boost.Trees = 20
	cfg.Analysis.Boost.Folds = 3
	cfg.Analysis.Boost.MinLeaf = 5
	cfg.Analysis.KMeans.Restarts = 2
	cfg.Analysis.KMeans.SweepMax = 6
	cfg.Output.Dir = filepath.Join(t.TempDir(), "reports")
	cfg.Output.Console = false
	cfg.Output.Plots = false
	return cfg
}
