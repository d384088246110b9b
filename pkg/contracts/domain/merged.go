package domain

// CountyKey is the normalized (state, county) join key.
type CountyKey struct {
	State  string `json:"state"`
	County string `json:"county"`
}

// String renders the key as "state/county".
func (k CountyKey) String() string {
	return k.State + "/" + k.County
}

// MergedRecord joins one top-two tally with its county demographics.
// Each matched county yields exactly two records.
type MergedRecord struct {
	Key CountyKey `json:"key"`

	TopTwoTally
	Census CountyDemographics `json:"census"`
}
