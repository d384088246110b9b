package operations

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"countyvote/internal/analysis"
	"countyvote/internal/dataprocessing"
	apperrors "countyvote/internal/errors"
	"countyvote/internal/exporter"
	"countyvote/internal/store"
	"countyvote/internal/validation"
)

// LoadStep reads the census and election files
type LoadStep struct {
	BaseStage
}

// NewLoadStep creates the load step
func NewLoadStep() *LoadStep {
	return &LoadStep{BaseStage: NewBaseStage(StepIDLoad, StepNameLoad)}
}

// Execute implements Step
func (s *LoadStep) Execute(ctx context.Context, state *RunState) error {
	data := state.Config.Data
	v := validation.NewFileValidator(nil)
	for _, path := range []string{data.CensusPath, data.ElectionPath} {
		if err := v.ValidateInputFile(path); err != nil {
			return err
		}
	}

	in, err := dataprocessing.LoadInputs(ctx, data.CensusPath, data.ElectionPath)
	if err != nil {
		return err
	}
	state.Inputs = in
	state.Report.CensusTracts = len(in.Census)
	state.Report.ElectionRows = len(in.Election)
	state.note(s.ID(), fmt.Sprintf("%d tracts, %d election rows", len(in.Census), len(in.Election)))
	return nil
}

// NormalizeStep aggregates tracts to counties and reduces the election
// tallies to the top two candidates per county. The two sides run
// concurrently.
type NormalizeStep struct {
	BaseStage
}

// NewNormalizeStep creates the normalize step
func NewNormalizeStep() *NormalizeStep {
	return &NormalizeStep{BaseStage: NewBaseStage(StepIDNormalize, StepNameNormalize)}
}

// Execute implements Step
func (s *NormalizeStep) Execute(ctx context.Context, state *RunState) error {
	if state.Inputs == nil {
		return apperrors.NewValidationError("no inputs loaded")
	}

	var censusDiag, electionDiag dataprocessing.Diagnostics
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		state.Report.Counties, censusDiag = dataprocessing.NormalizeCensus(state.Inputs.Census)
		return nil
	})
	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		part := dataprocessing.PartitionElection(state.Inputs.Election)
		state.Report.Federal = dataprocessing.SummarizeFederal(part.Federal)
		state.TopTwo, electionDiag = dataprocessing.ReduceTopTwo(part.County)
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	state.Report.Diagnostics.Merge(censusDiag)
	state.Report.Diagnostics.Merge(electionDiag)
	state.note(s.ID(), fmt.Sprintf("%d counties, %d top-two rows", len(state.Report.Counties), len(state.TopTwo)))
	return nil
}

// MergeStep joins county demographics with the top-two tallies
type MergeStep struct {
	BaseStage
}

// NewMergeStep creates the merge step
func NewMergeStep() *MergeStep {
	return &MergeStep{BaseStage: NewBaseStage(StepIDMerge, StepNameMerge)}
}

// Execute implements Step
func (s *MergeStep) Execute(ctx context.Context, state *RunState) error {
	merged, diag := dataprocessing.Merge(state.Report.Counties, state.TopTwo)
	state.Report.Diagnostics.Merge(diag)
	if len(merged) == 0 {
		return apperrors.NewUnmatchedKeyError("no county matched between census and election data")
	}
	state.Report.Merged = merged
	state.note(s.ID(), fmt.Sprintf("%d counties matched", state.Report.MatchedCounties()))
	return nil
}

// DatasetsStep builds the regression and classification tables
type DatasetsStep struct {
	BaseStage
}

// NewDatasetsStep creates the datasets step
func NewDatasetsStep() *DatasetsStep {
	return &DatasetsStep{BaseStage: NewBaseStage(StepIDDatasets, StepNameDatasets)}
}

// Execute implements Step
func (s *DatasetsStep) Execute(ctx context.Context, state *RunState) error {
	candidate := state.Config.Analysis.Candidate
	reg, diag := analysis.BuildRegressionSet(state.Report.Merged, candidate)
	state.Report.Diagnostics.Merge(diag)
	state.Regression = reg
	state.Classification = analysis.BuildClassificationSet(state.Report.Merged, candidate)

	state.Report.RegressionRows = reg.Len()
	state.Report.ClassRows = state.Classification.Len()
	state.note(s.ID(), fmt.Sprintf("%d regression rows, %d classification rows", reg.Len(), state.Classification.Len()))
	return nil
}

// modelStep fits one model. Disabled models are skipped.
type modelStep struct {
	BaseStage
	enabled func(state *RunState) bool
	fit     func(ctx context.Context, state *RunState) (string, error)
}

// SkipReason implements Skipper
func (s *modelStep) SkipReason(state *RunState) string {
	if !s.enabled(state) {
		return "disabled in configuration"
	}
	return ""
}

// Execute implements Step
func (s *modelStep) Execute(ctx context.Context, state *RunState) error {
	msg, err := s.fit(ctx, state)
	if err != nil {
		return err
	}
	state.note(s.ID(), msg)
	return nil
}

func (r *RunState) split(ds *analysis.Dataset) (train, test *analysis.Dataset) {
	return analysis.Split(ds, r.Config.Analysis.TrainFraction, r.Config.Analysis.Seed)
}

// NewLinearStep fits OLS on the candidate's two-candidate share
func NewLinearStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDLinear, StepNameLinear),
		enabled:   func(state *RunState) bool { return state.Config.Analysis.Linear.Enabled },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			train, test := state.split(state.Regression)
			res, err := analysis.FitLinear(ctx, train, test, state.Config.Analysis.Linear.WinThreshold)
			if err != nil {
				return "", err
			}
			state.Report.Linear = res
			return fmt.Sprintf("train R² %.3f", res.TrainR2), nil
		},
	}
}

// NewLogisticStep fits the logistic regression classifier
func NewLogisticStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDLogistic, StepNameLogistic),
		enabled:   func(state *RunState) bool { return state.Config.Analysis.Logistic.Enabled },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			cfg := state.Config.Analysis.Logistic
			train, test := state.split(state.Classification)
			res, err := analysis.FitLogistic(ctx, train, test, cfg.Threshold, cfg.MaxIter)
			if err != nil {
				return "", err
			}
			state.Report.Logistic = res
			return fmt.Sprintf("AUC %.3f", res.AUC), nil
		},
	}
}

// NewForestStep fits the random forest classifier
func NewForestStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDForest, StepNameForest),
		enabled:   func(state *RunState) bool { return state.Config.Analysis.Forest.Enabled },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			train, test := state.split(state.Classification)
			res, err := analysis.FitForest(ctx, train, test, state.Config.Analysis.Forest, state.Config.Analysis.Seed)
			if err != nil {
				return "", err
			}
			state.Report.Forest = res
			return fmt.Sprintf("OOB error %.3f", res.OOBError), nil
		},
	}
}

// NewBoostStep fits the boosted trees classifier
func NewBoostStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDBoost, StepNameBoost),
		enabled:   func(state *RunState) bool { return state.Config.Analysis.Boost.Enabled },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			train, test := state.split(state.Classification)
			res, err := analysis.FitBoost(ctx, train, test, state.Config.Analysis.Boost, state.Config.Analysis.Seed)
			if err != nil {
				return "", err
			}
			state.Report.Boost = res
			return fmt.Sprintf("%d trees", res.BestTrees), nil
		},
	}
}

// NewKMeansStep clusters the counties and runs the elbow sweep
func NewKMeansStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDKMeans, StepNameKMeans),
		enabled:   func(state *RunState) bool { return state.Config.Analysis.KMeans.Enabled },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			res, err := analysis.FitKMeans(ctx, state.Classification, state.Config.Analysis.KMeans, state.Config.Analysis.Seed)
			if err != nil {
				return "", err
			}
			state.Report.KMeans = res
			state.Report.Elbow = res.Elbow
			return fmt.Sprintf("k=%d inertia %.1f", res.K, res.Inertia), nil
		},
	}
}

// NewElbowStep runs the inertia sweep without a final clustering
func NewElbowStep() Step {
	return &modelStep{
		BaseStage: NewBaseStage(StepIDElbow, StepNameElbow),
		enabled:   func(*RunState) bool { return true },
		fit: func(ctx context.Context, state *RunState) (string, error) {
			points, err := analysis.ElbowSweep(ctx, state.Classification, state.Config.Analysis.KMeans, state.Config.Analysis.Seed)
			if err != nil {
				return "", err
			}
			state.Report.Elbow = points
			return fmt.Sprintf("%d cluster counts", len(points)), nil
		},
	}
}

// ExportStep writes the CSV tables, the text summary and, when enabled,
// the workbook and plots.
type ExportStep struct {
	BaseStage
}

// NewExportStep creates the export step
func NewExportStep() *ExportStep {
	return &ExportStep{BaseStage: NewBaseStage(StepIDExport, StepNameExport)}
}

// Execute implements Step
func (s *ExportStep) Execute(ctx context.Context, state *RunState) error {
	paths := state.Paths
	if err := validation.NewFileValidator(nil).ValidateOutputDirectory(paths.ReportsDir); err != nil {
		return err
	}
	if err := paths.EnsureDirectories(); err != nil {
		return apperrors.NewStorageError("failed to create report directories", err)
	}

	tables := exporter.NewTableExporter(exporter.NewCSVWriter(paths))
	written, err := tables.ExportAll(state.Report)
	if err != nil {
		return apperrors.NewStorageError("failed to export tables", err)
	}
	files := len(written)

	if err := exporter.WriteSummaryFile(paths.SummaryText, state.Report); err != nil {
		return apperrors.NewStorageError("failed to write summary", err)
	}
	files++

	out := state.Config.Output
	if out.Workbook && state.Mode == ModeReport {
		if err := exporter.WriteWorkbook(paths.WorkbookFile, state.Report); err != nil {
			return apperrors.NewStorageError("failed to write workbook", err)
		}
		files++
	}
	if out.Plots && state.Mode != ModeMerge {
		plots, err := exporter.WritePlots(paths, state.Report)
		if err != nil {
			return apperrors.NewStorageError("failed to render plots", err)
		}
		files += len(plots)
	}

	slog.InfoContext(ctx, "Report written",
		slog.String("dir", paths.ReportsDir),
		slog.Int("files", files))
	state.note(s.ID(), fmt.Sprintf("%d files in %s", files, paths.ReportsDir))
	return nil
}

// StoreStep saves the run into a SQLite database
type StoreStep struct {
	BaseStage
}

// NewStoreStep creates the store step
func NewStoreStep() *StoreStep {
	return &StoreStep{BaseStage: NewBaseStage(StepIDStore, StepNameStore)}
}

// SkipReason implements Skipper
func (s *StoreStep) SkipReason(state *RunState) string {
	if state.Config.Output.SQLitePath == "" {
		return "no sqlite path configured"
	}
	return ""
}

// Execute implements Step
func (s *StoreStep) Execute(ctx context.Context, state *RunState) error {
	db, err := store.Create(ctx, state.Config.Output.SQLitePath)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.SaveReport(ctx, state.Report); err != nil {
		return err
	}
	state.note(s.ID(), db.Path())
	return nil
}
