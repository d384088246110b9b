package exporter

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"countyvote/internal/config"
)

// setupTestEnv returns a writer rooted in a fresh reports directory
func setupTestEnv(t *testing.T) (*CSVWriter, *config.Paths) {
	t.Helper()

	paths := config.NewPaths(filepath.Join(t.TempDir(), "reports"))
	require.NoError(t, paths.EnsureDirectories())
	return NewCSVWriter(paths), paths
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSpace(string(content)), "\n")
}

func TestNewCSVWriter(t *testing.T) {
	paths := &config.Paths{}
	writer := NewCSVWriter(paths)

	assert.NotNil(t, writer)
	assert.Equal(t, paths, writer.paths)
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, paths := setupTestEnv(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, filePath string)
	}{
		{
			name:     "basic write with headers",
			filePath: "test_basic.csv",
			options: WriteOptions{
				Headers: []string{"State", "County", "Share"},
				Records: [][]string{
					{"alabama", "autauga", "0.7"},
					{"alabama", "baldwin", "0.6"},
				},
			},
			validate: func(t *testing.T, filePath string) {
				lines := readLines(t, filePath)
				assert.Len(t, lines, 3)
				assert.Equal(t, "State,County,Share", lines[0])
				assert.Equal(t, "alabama,autauga,0.7", lines[1])
			},
		},
		{
			name:     "write with BOM prefix",
			filePath: "test_bom.csv",
			options: WriteOptions{
				Headers:   []string{"Candidate", "Votes"},
				Records:   [][]string{{"Alice Adams", "100"}},
				BOMPrefix: true,
			},
			validate: func(t *testing.T, filePath string) {
				content, err := os.ReadFile(filePath)
				require.NoError(t, err)
				assert.True(t, bytes.HasPrefix(content, []byte{0xEF, 0xBB, 0xBF}))
				assert.Contains(t, string(content[3:]), "Alice Adams,100")
			},
		},
		{
			name:     "quotes fields with commas",
			filePath: "test_quoted.csv",
			options: WriteOptions{
				Records: [][]string{{"new york", "Kings, County"}},
			},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{`new york,"Kings, County"`}, readLines(t, filePath))
			},
		},
		{
			name:     "empty records",
			filePath: "test_empty.csv",
			options:  WriteOptions{Headers: []string{"Col1", "Col2"}},
			validate: func(t *testing.T, filePath string) {
				assert.Equal(t, []string{"Col1,Col2"}, readLines(t, filePath))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, writer.WriteCSV(tt.filePath, tt.options))
			tt.validate(t, paths.GetTablePath(tt.filePath))
		})
	}
}

func TestCSVWriter_OverwritesExisting(t *testing.T) {
	writer, paths := setupTestEnv(t)

	require.NoError(t, writer.WriteSimpleCSV("x.csv", []string{"a"}, [][]string{{"1"}, {"2"}}))
	require.NoError(t, writer.WriteSimpleCSV("x.csv", []string{"a"}, [][]string{{"3"}}))

	assert.Equal(t, []string{"a", "3"}, readLines(t, paths.GetTablePath("x.csv")))
}

func TestCSVWriter_ResolvePath(t *testing.T) {
	writer, paths := setupTestEnv(t)
	abs := filepath.Join(t.TempDir(), "abs.csv")

	assert.Equal(t, paths.GetTablePath("a.csv"), writer.resolvePath("a.csv"))
	assert.Equal(t, abs, writer.resolvePath(abs))
	assert.Equal(t, paths.MergedCSV, writer.resolvePath(paths.MergedCSV))
}

func TestStreamWriter(t *testing.T) {
	writer, paths := setupTestEnv(t)

	stream, err := writer.CreateStreamWriter("stream.csv", []string{"k", "v"})
	require.NoError(t, err)
	for _, rec := range [][]string{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		require.NoError(t, stream.WriteRecord(rec))
	}
	assert.Equal(t, 3, stream.Rows())
	require.NoError(t, stream.Close())

	assert.Equal(t, []string{"k,v", "a,1", "b,2", "c,3"}, readLines(t, paths.GetTablePath("stream.csv")))
}

func TestCSVWriter_UnwritableDirectory(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	writer := NewCSVWriter(config.NewPaths(dir))
	err := writer.WriteSimpleCSV(filepath.Join(blocker, "out.csv"), nil, nil)
	assert.Error(t, err)
}
