package domain

// NationalFIPS is the reserved geographic code for nationwide totals.
const NationalFIPS = "US"

// Granularity is the geographic level an election tally belongs to.
type Granularity string

const (
	GranularityFederal Granularity = "federal"
	GranularityState   Granularity = "state"
	GranularityCounty  Granularity = "county"
)

// ElectionTally is one candidate's vote count in one geographic unit.
// County is empty for state-level and national rows.
type ElectionTally struct {
	FIPS      string `json:"fips" db:"fips" validate:"required"`
	State     string `json:"state" db:"state" validate:"required_unless=FIPS US"`
	County    string `json:"county,omitempty" db:"county"`
	Candidate string `json:"candidate" db:"candidate" validate:"required"`
	Votes     int64  `json:"votes" db:"votes" validate:"min=0"`
}

// Granularity classifies the tally by its geographic code and county field.
func (t ElectionTally) Granularity() Granularity {
	switch {
	case t.FIPS == NationalFIPS:
		return GranularityFederal
	case t.County == "":
		return GranularityState
	default:
		return GranularityCounty
	}
}

// TopTwoTally is a county tally that ranked first or second in its county.
type TopTwoTally struct {
	ElectionTally

	// Rank is 1 for the county winner and 2 for the runner-up.
	Rank int `json:"rank" db:"rank" validate:"oneof=1 2"`
	// Share is Votes divided by the combined votes of the top two.
	Share float64 `json:"share" db:"share" validate:"min=0,max=1"`
}

// IsWinner reports whether the tally won its county.
func (t TopTwoTally) IsWinner() bool {
	return t.Rank == 1
}

// CandidateTotal is a candidate's aggregate result at one level.
type CandidateTotal struct {
	Candidate string  `json:"candidate"`
	Votes     int64   `json:"votes"`
	Share     float64 `json:"share"`
}
