package dataprocessing

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"

	apperrors "countyvote/internal/errors"
	"countyvote/pkg/contracts/domain"
)

var validate = validator.New()

// ctxCheckEvery is how many rows are read between cancellation checks
const ctxCheckEvery = 1000

// table is a header plus the data rows of one input file
type table struct {
	path   string
	header []string
	rows   []tableRow
}

type tableRow struct {
	line   int
	fields []string
}

// cell returns the trimmed field at i, or "" when the row is short
func (r tableRow) cell(i int) string {
	if i < 0 || i >= len(r.fields) {
		return ""
	}
	return strings.TrimSpace(r.fields[i])
}

// columns maps normalized header names to their index
type columns map[string]int

func newColumns(header []string) columns {
	c := make(columns, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := c[key]; !dup {
			c[key] = i
		}
	}
	return c
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer("_", "", " ", "", "-", "").Replace(h)
}

// find returns the index of the first alias present in the header
func (c columns) find(aliases ...string) (int, bool) {
	for _, a := range aliases {
		if i, ok := c[normalizeHeader(a)]; ok {
			return i, true
		}
	}
	return -1, false
}

// readTable reads a CSV or XLSX file by extension. For XLSX the sheet named
// sheetHint is preferred, falling back to the first sheet.
func readTable(ctx context.Context, path, sheetHint string) (*table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return readCSV(ctx, path)
	case ".xlsx", ".xlsm":
		return readXLSX(ctx, path, sheetHint)
	default:
		return nil, apperrors.NewValidationError(fmt.Sprintf("unsupported input format %q for %s", filepath.Ext(path), path))
	}
}

func readCSV(ctx context.Context, path string) (*table, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewNotFoundError(path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err == io.EOF {
		return nil, apperrors.NewMalformedRowError(path, 1, "", errors.New("file has no header row"))
	}
	if err != nil {
		return nil, csvError(path, err)
	}

	t := &table{path: path, header: header}
	for {
		if len(t.rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, csvError(path, err)
		}
		line, _ := r.FieldPos(0)
		t.rows = append(t.rows, tableRow{line: line, fields: record})
	}
	return t, nil
}

func csvError(path string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return apperrors.NewMalformedRowError(path, pe.Line, "", pe.Err)
	}
	return fmt.Errorf("failed to read %s: %w", path, err)
}

func readXLSX(ctx context.Context, path, sheetHint string) (*table, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, apperrors.NewNotFoundError(path)
	}
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, apperrors.NewMalformedRowError(path, 1, "", errors.New("workbook has no sheets"))
	}
	sheet := sheets[0]
	for _, name := range sheets {
		if strings.EqualFold(strings.TrimSpace(name), sheetHint) {
			sheet = name
			break
		}
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s of %s: %w", sheet, path, err)
	}
	if len(rows) == 0 {
		return nil, apperrors.NewMalformedRowError(path, 1, "", errors.New("sheet has no header row"))
	}

	slog.DebugContext(ctx, "Reading workbook sheet",
		slog.String("file", path),
		slog.String("sheet", sheet),
		slog.Int("rows", len(rows)))

	t := &table{path: path, header: rows[0]}
	for i, row := range rows[1:] {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		if blankRow(row) {
			continue
		}
		t.rows = append(t.rows, tableRow{line: i + 2, fields: row})
	}
	return t, nil
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// isMissing reports whether a cell holds no value
func isMissing(raw string) bool {
	switch strings.ToUpper(raw) {
	case "", "NA", "N/A", "NAN", "NULL":
		return true
	}
	return false
}

// parseNumber parses a numeric cell. Missing cells return missing=true and
// no error; anything else that is not a finite number is an error.
func parseNumber(raw string) (v float64, missing bool, err error) {
	if isMissing(raw) {
		return 0, true, nil
	}
	v, err = strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false, fmt.Errorf("non-finite value %q", raw)
	}
	return v, false, nil
}

// validationColumn names the first field that failed struct validation
func validationColumn(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field()
	}
	return ""
}

// censusMeasure binds a numeric census column to its record field
type censusMeasure struct {
	name    string
	aliases []string
	field   func(*domain.CensusRecord) *float64
}

var censusMeasures = []censusMeasure{
	{"TotalPop", []string{"TotalPop", "Population"}, func(r *domain.CensusRecord) *float64 { return &r.TotalPop }},
	{"Men", nil, func(r *domain.CensusRecord) *float64 { return &r.Men }},
	{"Women", nil, func(r *domain.CensusRecord) *float64 { return &r.Women }},
	{"Hispanic", nil, func(r *domain.CensusRecord) *float64 { return &r.Hispanic }},
	{"White", nil, func(r *domain.CensusRecord) *float64 { return &r.White }},
	{"Black", nil, func(r *domain.CensusRecord) *float64 { return &r.Black }},
	{"Native", nil, func(r *domain.CensusRecord) *float64 { return &r.Native }},
	{"Asian", nil, func(r *domain.CensusRecord) *float64 { return &r.Asian }},
	{"Pacific", nil, func(r *domain.CensusRecord) *float64 { return &r.Pacific }},
	{"Citizen", []string{"Citizen", "VotingAgeCitizen"}, func(r *domain.CensusRecord) *float64 { return &r.Citizen }},
	{"Income", nil, func(r *domain.CensusRecord) *float64 { return &r.Income }},
	{"IncomeErr", nil, func(r *domain.CensusRecord) *float64 { return &r.IncomeErr }},
	{"IncomePerCap", nil, func(r *domain.CensusRecord) *float64 { return &r.IncomePerCap }},
	{"IncomePerCapErr", nil, func(r *domain.CensusRecord) *float64 { return &r.IncomePerCapErr }},
	{"Poverty", nil, func(r *domain.CensusRecord) *float64 { return &r.Poverty }},
	{"ChildPoverty", nil, func(r *domain.CensusRecord) *float64 { return &r.ChildPoverty }},
	{"Professional", nil, func(r *domain.CensusRecord) *float64 { return &r.Professional }},
	{"Service", nil, func(r *domain.CensusRecord) *float64 { return &r.Service }},
	{"Office", nil, func(r *domain.CensusRecord) *float64 { return &r.Office }},
	{"Construction", nil, func(r *domain.CensusRecord) *float64 { return &r.Construction }},
	{"Production", nil, func(r *domain.CensusRecord) *float64 { return &r.Production }},
	{"Drive", nil, func(r *domain.CensusRecord) *float64 { return &r.Drive }},
	{"Carpool", nil, func(r *domain.CensusRecord) *float64 { return &r.Carpool }},
	{"Transit", nil, func(r *domain.CensusRecord) *float64 { return &r.Transit }},
	{"Walk", nil, func(r *domain.CensusRecord) *float64 { return &r.Walk }},
	{"OtherTransp", nil, func(r *domain.CensusRecord) *float64 { return &r.OtherTransp }},
	{"WorkAtHome", nil, func(r *domain.CensusRecord) *float64 { return &r.WorkAtHome }},
	{"MeanCommute", nil, func(r *domain.CensusRecord) *float64 { return &r.MeanCommute }},
	{"Employed", nil, func(r *domain.CensusRecord) *float64 { return &r.Employed }},
	{"PrivateWork", nil, func(r *domain.CensusRecord) *float64 { return &r.PrivateWork }},
	{"PublicWork", nil, func(r *domain.CensusRecord) *float64 { return &r.PublicWork }},
	{"SelfEmployed", nil, func(r *domain.CensusRecord) *float64 { return &r.SelfEmployed }},
	{"FamilyWork", nil, func(r *domain.CensusRecord) *float64 { return &r.FamilyWork }},
	{"Unemployment", nil, func(r *domain.CensusRecord) *float64 { return &r.Unemployment }},
}

// LoadCensus reads tract-level census rows from a CSV or XLSX file.
// Blank or NA measures are listed in CensusRecord.Missing; any other bad
// value is a MALFORMED_ROW error.
func LoadCensus(ctx context.Context, path string) ([]domain.CensusRecord, error) {
	t, err := readTable(ctx, path, "census")
	if err != nil {
		return nil, err
	}
	cols := newColumns(t.header)

	tractIdx, ok := cols.find("CensusTract", "TractId", "Tract", "GeoID")
	if !ok {
		return nil, missingColumn(path, "CensusTract")
	}
	stateIdx, ok := cols.find("State")
	if !ok {
		return nil, missingColumn(path, "State")
	}
	countyIdx, ok := cols.find("County")
	if !ok {
		return nil, missingColumn(path, "County")
	}
	measureIdx := make([]int, len(censusMeasures))
	for i, m := range censusMeasures {
		aliases := m.aliases
		if aliases == nil {
			aliases = []string{m.name}
		}
		idx, ok := cols.find(aliases...)
		if !ok {
			return nil, missingColumn(path, m.name)
		}
		measureIdx[i] = idx
	}

	records := make([]domain.CensusRecord, 0, len(t.rows))
	withMissing := 0
	for _, row := range t.rows {
		rec := domain.CensusRecord{
			TractID: row.cell(tractIdx),
			State:   row.cell(stateIdx),
			County:  row.cell(countyIdx),
		}
		for i, m := range censusMeasures {
			v, missing, err := parseNumber(row.cell(measureIdx[i]))
			if err != nil {
				return nil, apperrors.NewMalformedRowError(path, row.line, m.name, err)
			}
			if missing {
				rec.Missing = append(rec.Missing, m.name)
				continue
			}
			*m.field(&rec) = v
		}
		if err := validate.Struct(rec); err != nil {
			return nil, apperrors.NewMalformedRowError(path, row.line, validationColumn(err), err)
		}
		if rec.HasMissing() {
			withMissing++
		}
		records = append(records, rec)
	}

	slog.InfoContext(ctx, "Loaded census tracts",
		slog.String("file", path),
		slog.Int("tracts", len(records)),
		slog.Int("with_missing", withMissing))

	return records, nil
}

// LoadElection reads election tallies from a CSV or XLSX file. Vote counts
// are required: a blank count is a MALFORMED_ROW error.
func LoadElection(ctx context.Context, path string) ([]domain.ElectionTally, error) {
	t, err := readTable(ctx, path, "election")
	if err != nil {
		return nil, err
	}
	cols := newColumns(t.header)

	fipsIdx, ok := cols.find("fips", "geo", "GeoID", "fips_code")
	if !ok {
		return nil, missingColumn(path, "fips")
	}
	candIdx, ok := cols.find("cand", "candidate")
	if !ok {
		return nil, missingColumn(path, "cand")
	}
	stateIdx, ok := cols.find("st", "state", "state_abbr")
	if !ok {
		return nil, missingColumn(path, "st")
	}
	countyIdx, ok := cols.find("county", "county_name")
	if !ok {
		return nil, missingColumn(path, "county")
	}
	votesIdx, ok := cols.find("votes", "vote_count")
	if !ok {
		return nil, missingColumn(path, "votes")
	}

	tallies := make([]domain.ElectionTally, 0, len(t.rows))
	for _, row := range t.rows {
		county := row.cell(countyIdx)
		if isMissing(county) {
			county = ""
		}
		state := row.cell(stateIdx)
		if isMissing(state) {
			state = ""
		}

		v, missing, err := parseNumber(row.cell(votesIdx))
		if err == nil && missing {
			err = errors.New("vote count is missing")
		}
		if err == nil && v != math.Trunc(v) {
			err = fmt.Errorf("vote count %v is not a whole number", v)
		}
		if err != nil {
			return nil, apperrors.NewMalformedRowError(path, row.line, "votes", err)
		}

		tally := domain.ElectionTally{
			FIPS:      row.cell(fipsIdx),
			State:     state,
			County:    county,
			Candidate: row.cell(candIdx),
			Votes:     int64(v),
		}
		if err := validate.Struct(tally); err != nil {
			return nil, apperrors.NewMalformedRowError(path, row.line, validationColumn(err), err)
		}
		tallies = append(tallies, tally)
	}

	slog.InfoContext(ctx, "Loaded election tallies",
		slog.String("file", path),
		slog.Int("tallies", len(tallies)))

	return tallies, nil
}

func missingColumn(path, column string) error {
	return apperrors.NewMalformedRowError(path, 1, column, errors.New("required column not found in header"))
}

// Inputs holds both raw datasets for one run
type Inputs struct {
	Census   []domain.CensusRecord
	Election []domain.ElectionTally
}

// LoadInputs loads the census and election files concurrently. The first
// failure cancels the other load.
func LoadInputs(ctx context.Context, censusPath, electionPath string) (*Inputs, error) {
	g, gctx := errgroup.WithContext(ctx)
	var in Inputs

	g.Go(func() error {
		records, err := LoadCensus(gctx, censusPath)
		if err != nil {
			return fmt.Errorf("load census: %w", err)
		}
		in.Census = records
		return nil
	})
	g.Go(func() error {
		tallies, err := LoadElection(gctx, electionPath)
		if err != nil {
			return fmt.Errorf("load election: %w", err)
		}
		in.Election = tallies
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &in, nil
}
