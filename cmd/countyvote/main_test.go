package main

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

func writeCSV(t *testing.T, path string, header []string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	w := csv.NewWriter(f)
	require.NoError(t, w.Write(header))
	require.NoError(t, w.WriteAll(rows))
	w.Flush()
	require.NoError(t, w.Error())
}

func tractRow(id, state, county string) []string {
	row := make([]string, len(censusHeader))
	for i := range row {
		row[i] = "10"
	}
	row[0], row[1], row[2], row[3] = id, state, county, "100"
	return row
}

// fixture writes a two-county census and election pair
func fixture(t *testing.T) (census, election string) {
	t.Helper()
	dir := t.TempDir()
	census = filepath.Join(dir, "census.csv")
	election = filepath.Join(dir, "election.csv")

	writeCSV(t, census, censusHeader, [][]string{
		tractRow("1001001", "Alabama", "Autauga"),
		tractRow("1003001", "Alabama", "Baldwin"),
	})
	writeCSV(t, election, []string{"county", "fips", "cand", "st", "pct_report", "votes", "total_votes", "pct", "lead"}, [][]string{
		{"Autauga County", "1001", "Alice Adams", "AL", "1", "500", "0", "0", ""},
		{"Autauga County", "1001", "Bob Brown", "AL", "1", "300", "0", "0", ""},
		{"Baldwin County", "1003", "Alice Adams", "AL", "1", "200", "0", "0", ""},
		{"Baldwin County", "1003", "Bob Brown", "AL", "1", "600", "0", "0", ""},
	})
	return census, election
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(t.Context())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	var names []string
	for _, c := range newRootCmd().Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"report", "merge", "elbow"}, names)
}

func TestVersionFlag(t *testing.T) {
	stdout, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "countyvote version")
}

func TestMergeCommand(t *testing.T) {
	census, election := fixture(t)
	out := filepath.Join(t.TempDir(), "reports")

	stdout, _, err := execute(t, "merge",
		"--census", census,
		"--election", election,
		"--out", out,
		"--candidate", "Alice Adams",
		"--seed", "9")
	require.NoError(t, err)

	assert.Contains(t, stdout, `candidate="Alice Adams"`)
	assert.Contains(t, stdout, "seed=9")
	assert.Contains(t, stdout, "Counties (matched)")

	data, err := os.ReadFile(filepath.Join(out, "tables", "merged.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 5)
}

func TestCommand_Errors(t *testing.T) {
	census, election := fixture(t)

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "missing census file",
			args:    []string{"merge", "--census", filepath.Join(t.TempDir(), "none.csv"), "--election", election, "--out", t.TempDir()},
			wantErr: "load",
		},
		{
			name:    "unexpected argument",
			args:    []string{"merge", "extra"},
			wantErr: "unknown command",
		},
		{
			name:    "bad config file",
			args:    []string{"merge", "--config", filepath.Join(t.TempDir(), "absent.yaml"), "--census", census, "--election", election},
			wantErr: "config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
