package dataprocessing

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"countyvote/pkg/contracts/domain"
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

// tract describes one census row; unset measures default to 1
type tract struct {
	id, state, county string
	pop               float64
	values            map[string]string
}

func (tr tract) row() []string {
	row := make([]string, len(censusHeader))
	for i, col := range censusHeader {
		switch col {
		case "CensusTract":
			row[i] = tr.id
		case "State":
			row[i] = tr.state
		case "County":
			row[i] = tr.county
		case "TotalPop":
			row[i] = strconv.FormatFloat(tr.pop, 'f', -1, 64)
		default:
			if v, ok := tr.values[col]; ok {
				row[i] = v
			} else {
				row[i] = "1"
			}
		}
	}
	return row
}

// vote describes one election row
type vote struct {
	county, fips, cand, st string
	votes                  int64
}

func (v vote) row() []string {
	county := v.county
	if county == "" {
		county = "NA"
	}
	return []string{county, v.fips, v.cand, v.st, "1", strconv.FormatInt(v.votes, 10), "0", "0", ""}
}

func writeCSV(t *testing.T, name string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	return path
}

func writeXLSX(t *testing.T, name, sheet string, header []string, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	return path
}

func tractRows(tracts ...tract) [][]string {
	rows := make([][]string, len(tracts))
	for i, tr := range tracts {
		rows[i] = tr.row()
	}
	return rows
}

func voteRows(votes ...vote) [][]string {
	rows := make([][]string, len(votes))
	for i, v := range votes {
		rows[i] = v.row()
	}
	return rows
}

// scenarioTracts is a 4-tract, 2-county census table with hand-checkable
// aggregates: Autauga weights 0.25/0.75, Baldwin 0.5/0.5.
var scenarioTracts = []tract{
	{"1001001", "Alabama", "Autauga", 100, map[string]string{
		"Men": "50", "Women": "50", "Hispanic": "10", "Black": "20", "White": "70",
		"Native": "0", "Asian": "0", "Pacific": "0", "Income": "40000", "Employed": "40", "Citizen": "80",
	}},
	{"1001002", "Alabama", "Autauga", 300, map[string]string{
		"Men": "120", "Women": "180", "Hispanic": "5", "Black": "5", "White": "90",
		"Native": "0", "Asian": "0", "Pacific": "0", "Income": "60000", "Employed": "150", "Citizen": "240",
	}},
	{"1003001", "Alabama", "Baldwin", 200, map[string]string{
		"Men": "100", "Women": "100", "Hispanic": "2", "Black": "8", "White": "90",
		"Native": "0", "Asian": "0", "Pacific": "0", "Income": "50000", "Employed": "80", "Citizen": "150",
	}},
	{"1003002", "Alabama", "Baldwin", 200, map[string]string{
		"Men": "90", "Women": "110", "Hispanic": "4", "Black": "6", "White": "90",
		"Native": "0", "Asian": "0", "Pacific": "0", "Income": "70000", "Employed": "120", "Citizen": "170",
	}},
}

// scenarioVotes is a 3-candidate, 2-county election table plus national and
// state rows.
var scenarioVotes = []vote{
	{"", "US", "Alice Adams", "US", 1700},
	{"", "US", "Bob Brown", "US", 1100},
	{"", "US", "Carol Cruz", "US", 150},
	{"", "AL", "Alice Adams", "AL", 700},
	{"", "AL", "Bob Brown", "AL", 900},
	{"Autauga County", "1001", "Alice Adams", "AL", 500},
	{"Autauga County", "1001", "Bob Brown", "AL", 300},
	{"Autauga County", "1001", "Carol Cruz", "AL", 100},
	{"Baldwin County", "1003", "Alice Adams", "AL", 200},
	{"Baldwin County", "1003", "Bob Brown", "AL", 600},
	{"Baldwin County", "1003", "Carol Cruz", "AL", 50},
}

func scenarioRecords(t *testing.T) ([]domain.CensusRecord, []domain.ElectionTally) {
	t.Helper()
	in, err := LoadInputs(t.Context(),
		writeCSV(t, "census.csv", censusHeader, tractRows(scenarioTracts...)),
		writeCSV(t, "election.csv", electionHeader, voteRows(scenarioVotes...)))
	require.NoError(t, err)
	return in.Census, in.Election
}
