package domain

// CensusRecord represents one census tract as loaded from the raw dataset.
// Counts (Men, Women, Employed, Citizen, TotalPop) are head counts; the
// remaining measures are already percentages or dollar amounts.
type CensusRecord struct {
	TractID  string  `json:"tract_id" db:"tract_id" validate:"required"`
	State    string  `json:"state" db:"state" validate:"required"`
	County   string  `json:"county" db:"county" validate:"required"`
	TotalPop float64 `json:"total_pop" db:"total_pop" validate:"min=0"`

	Men             float64 `json:"men" db:"men" validate:"min=0"`
	Women           float64 `json:"women" db:"women" validate:"min=0"`
	Hispanic        float64 `json:"hispanic" db:"hispanic"`
	White           float64 `json:"white" db:"white"`
	Black           float64 `json:"black" db:"black"`
	Native          float64 `json:"native" db:"native"`
	Asian           float64 `json:"asian" db:"asian"`
	Pacific         float64 `json:"pacific" db:"pacific"`
	Citizen         float64 `json:"citizen" db:"citizen" validate:"min=0"`
	Income          float64 `json:"income" db:"income"`
	IncomeErr       float64 `json:"income_err" db:"income_err"`
	IncomePerCap    float64 `json:"income_per_cap" db:"income_per_cap"`
	IncomePerCapErr float64 `json:"income_per_cap_err" db:"income_per_cap_err"`
	Poverty         float64 `json:"poverty" db:"poverty"`
	ChildPoverty    float64 `json:"child_poverty" db:"child_poverty"`
	Professional    float64 `json:"professional" db:"professional"`
	Service         float64 `json:"service" db:"service"`
	Office          float64 `json:"office" db:"office"`
	Construction    float64 `json:"construction" db:"construction"`
	Production      float64 `json:"production" db:"production"`
	Drive           float64 `json:"drive" db:"drive"`
	Carpool         float64 `json:"carpool" db:"carpool"`
	Transit         float64 `json:"transit" db:"transit"`
	Walk            float64 `json:"walk" db:"walk"`
	OtherTransp     float64 `json:"other_transp" db:"other_transp"`
	WorkAtHome      float64 `json:"work_at_home" db:"work_at_home"`
	MeanCommute     float64 `json:"mean_commute" db:"mean_commute"`
	Employed        float64 `json:"employed" db:"employed" validate:"min=0"`
	PrivateWork     float64 `json:"private_work" db:"private_work"`
	PublicWork      float64 `json:"public_work" db:"public_work"`
	SelfEmployed    float64 `json:"self_employed" db:"self_employed"`
	FamilyWork      float64 `json:"family_work" db:"family_work"`
	Unemployment    float64 `json:"unemployment" db:"unemployment"`

	// Missing names the columns that were blank or NA in the source row.
	Missing []string `json:"missing,omitempty" db:"-"`
}

// HasMissing reports whether any measurement was absent at load time.
func (r CensusRecord) HasMissing() bool {
	return len(r.Missing) > 0
}

// Demographics holds the measures retained after census normalization.
// Field order matches DemographicColumns.
type Demographics struct {
	Men          float64 `json:"men" db:"men"`
	White        float64 `json:"white" db:"white"`
	Citizen      float64 `json:"citizen" db:"citizen"`
	Income       float64 `json:"income" db:"income"`
	IncomePerCap float64 `json:"income_per_cap" db:"income_per_cap"`
	Poverty      float64 `json:"poverty" db:"poverty"`
	ChildPoverty float64 `json:"child_poverty" db:"child_poverty"`
	Professional float64 `json:"professional" db:"professional"`
	Service      float64 `json:"service" db:"service"`
	Office       float64 `json:"office" db:"office"`
	Production   float64 `json:"production" db:"production"`
	Drive        float64 `json:"drive" db:"drive"`
	Carpool      float64 `json:"carpool" db:"carpool"`
	Transit      float64 `json:"transit" db:"transit"`
	OtherTransp  float64 `json:"other_transp" db:"other_transp"`
	WorkAtHome   float64 `json:"work_at_home" db:"work_at_home"`
	MeanCommute  float64 `json:"mean_commute" db:"mean_commute"`
	Employed     float64 `json:"employed" db:"employed"`
	PrivateWork  float64 `json:"private_work" db:"private_work"`
	SelfEmployed float64 `json:"self_employed" db:"self_employed"`
	FamilyWork   float64 `json:"family_work" db:"family_work"`
	Unemployment float64 `json:"unemployment" db:"unemployment"`
	Minority     float64 `json:"minority" db:"minority"`
}

// DemographicColumns lists the retained measures in Values order.
var DemographicColumns = []string{
	"Men", "White", "Citizen", "Income", "IncomePerCap", "Poverty",
	"ChildPoverty", "Professional", "Service", "Office", "Production",
	"Drive", "Carpool", "Transit", "OtherTransp", "WorkAtHome",
	"MeanCommute", "Employed", "PrivateWork", "SelfEmployed", "FamilyWork",
	"Unemployment", "Minority",
}

// Values returns the measures in DemographicColumns order.
func (d Demographics) Values() []float64 {
	return []float64{
		d.Men, d.White, d.Citizen, d.Income, d.IncomePerCap, d.Poverty,
		d.ChildPoverty, d.Professional, d.Service, d.Office, d.Production,
		d.Drive, d.Carpool, d.Transit, d.OtherTransp, d.WorkAtHome,
		d.MeanCommute, d.Employed, d.PrivateWork, d.SelfEmployed, d.FamilyWork,
		d.Unemployment, d.Minority,
	}
}

// Scale returns a copy with every measure multiplied by w.
func (d Demographics) Scale(w float64) Demographics {
	return Demographics{
		Men: d.Men * w, White: d.White * w, Citizen: d.Citizen * w,
		Income: d.Income * w, IncomePerCap: d.IncomePerCap * w,
		Poverty: d.Poverty * w, ChildPoverty: d.ChildPoverty * w,
		Professional: d.Professional * w, Service: d.Service * w,
		Office: d.Office * w, Production: d.Production * w,
		Drive: d.Drive * w, Carpool: d.Carpool * w, Transit: d.Transit * w,
		OtherTransp: d.OtherTransp * w, WorkAtHome: d.WorkAtHome * w,
		MeanCommute: d.MeanCommute * w, Employed: d.Employed * w,
		PrivateWork: d.PrivateWork * w, SelfEmployed: d.SelfEmployed * w,
		FamilyWork: d.FamilyWork * w, Unemployment: d.Unemployment * w,
		Minority: d.Minority * w,
	}
}

// Add returns the field-wise sum of d and o.
func (d Demographics) Add(o Demographics) Demographics {
	return Demographics{
		Men: d.Men + o.Men, White: d.White + o.White, Citizen: d.Citizen + o.Citizen,
		Income: d.Income + o.Income, IncomePerCap: d.IncomePerCap + o.IncomePerCap,
		Poverty: d.Poverty + o.Poverty, ChildPoverty: d.ChildPoverty + o.ChildPoverty,
		Professional: d.Professional + o.Professional, Service: d.Service + o.Service,
		Office: d.Office + o.Office, Production: d.Production + o.Production,
		Drive: d.Drive + o.Drive, Carpool: d.Carpool + o.Carpool, Transit: d.Transit + o.Transit,
		OtherTransp: d.OtherTransp + o.OtherTransp, WorkAtHome: d.WorkAtHome + o.WorkAtHome,
		MeanCommute: d.MeanCommute + o.MeanCommute, Employed: d.Employed + o.Employed,
		PrivateWork: d.PrivateWork + o.PrivateWork, SelfEmployed: d.SelfEmployed + o.SelfEmployed,
		FamilyWork: d.FamilyWork + o.FamilyWork, Unemployment: d.Unemployment + o.Unemployment,
		Minority: d.Minority + o.Minority,
	}
}

// CountyDemographics is the population-weighted aggregate of a county's tracts.
type CountyDemographics struct {
	State     string  `json:"state" db:"state" validate:"required"`
	County    string  `json:"county" db:"county" validate:"required"`
	TotalPop  float64 `json:"total_pop" db:"total_pop" validate:"min=0"`
	Tracts    int     `json:"tracts" db:"tracts" validate:"min=1"`
	WeightSum float64 `json:"weight_sum" db:"weight_sum"` // 1 within rounding

	Demographics
}
