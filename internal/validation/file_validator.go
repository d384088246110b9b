package validation

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "countyvote/internal/errors"
)

// InputExtensions are the dataset formats the loader reads
var InputExtensions = []string{".csv", ".xlsx"}

// FileValidator checks input and output locations before a run touches them
type FileValidator struct {
	logger *slog.Logger
}

// NewFileValidator creates a new file validator
func NewFileValidator(logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		logger: logger,
	}
}

// ValidateInputFile checks that path is a readable, non-empty regular file
// with a supported extension. Excel lock files (~$name.xlsx) are rejected.
func (v *FileValidator) ValidateInputFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("Input file does not exist",
			slog.String("file", path))
		return apperrors.NewNotFoundError("input file " + path)
	}
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("cannot stat %s: %v", path, err))
	}
	if info.IsDir() {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a directory, not a file", path))
	}
	if info.Size() == 0 {
		return apperrors.NewValidationError(fmt.Sprintf("%s is empty", path))
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !supported(ext) {
		v.logger.Error("Unsupported input format",
			slog.String("file", path),
			slog.String("extension", ext))
		return apperrors.NewValidationError(fmt.Sprintf("%s has unsupported extension %q (want %s)",
			path, ext, strings.Join(InputExtensions, " or ")))
	}
	if strings.HasPrefix(filepath.Base(path), "~$") {
		return apperrors.NewValidationError(fmt.Sprintf("%s is a temporary Excel file", path))
	}

	file, err := os.Open(path)
	if err != nil {
		return apperrors.NewValidationError(fmt.Sprintf("%s is not readable: %v", path, err))
	}
	file.Close()

	v.logger.Debug("Input file validated",
		slog.String("file", path),
		slog.Int64("size", info.Size()))
	return nil
}

func supported(ext string) bool {
	for _, e := range InputExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ValidateOutputDirectory creates dir if needed and checks it is writable
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("failed to create output directory "+dir, err)
	}

	probe, err := os.CreateTemp(dir, ".write_test")
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return apperrors.NewStorageError("output directory "+dir+" is not writable", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)

	return nil
}
