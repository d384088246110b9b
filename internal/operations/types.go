package operations

// Step identifiers, in pipeline order
const (
	StepIDLoad      = "load"
	StepIDNormalize = "normalize"
	StepIDMerge     = "merge"
	StepIDDatasets  = "datasets"
	StepIDLinear    = "linear"
	StepIDLogistic  = "logistic"
	StepIDForest    = "forest"
	StepIDBoost     = "boost"
	StepIDKMeans    = "kmeans"
	StepIDElbow     = "elbow"
	StepIDExport    = "export"
	StepIDStore     = "store"
)

// Step names
const (
	StepNameLoad      = "Load Inputs"
	StepNameNormalize = "Normalize Census and Election"
	StepNameMerge     = "Merge Counties"
	StepNameDatasets  = "Build Model Tables"
	StepNameLinear    = "Linear Regression"
	StepNameLogistic  = "Logistic Regression"
	StepNameForest    = "Random Forest"
	StepNameBoost     = "Boosted Trees"
	StepNameKMeans    = "K-means Clustering"
	StepNameElbow     = "K-means Elbow Sweep"
	StepNameExport    = "Export Report"
	StepNameStore     = "Store Report"
)

// Mode selects which steps a run executes
type Mode string

const (
	// ModeReport runs the whole pipeline
	ModeReport Mode = "report"
	// ModeMerge stops after the merged table is exported
	ModeMerge Mode = "merge"
	// ModeElbow runs the inertia sweep only
	ModeElbow Mode = "elbow"
)
