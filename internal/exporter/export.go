package exporter

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"deliverystats/pkg/contracts/domain"
)

// Encode writes a report result in the given format. CSV carries a BOM,
// JSON carries the catalogue entry and parameters alongside the table.
func Encode(w io.Writer, f Format, result *domain.ReportResult) error {
	switch f {
	case FormatCSV:
		return WriteTableCSV(w, result.Table, true)
	case FormatXLSX:
		return WriteTableXLSX(w, result.Table, string(result.Report.ID))
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(result)
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
}

// FileWriter saves report results under a base directory
type FileWriter struct {
	dir    string
	logger *slog.Logger
}

// NewFileWriter creates a writer rooted at dir
func NewFileWriter(dir string, logger *slog.Logger) *FileWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileWriter{dir: dir, logger: logger}
}

// Save writes result to <dir>/<report>_<input>.<format> and returns the path
func (w *FileWriter) Save(result *domain.ReportResult, f Format) (string, error) {
	path := w.resolvePath(FileName(result, f))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := Encode(file, f, result); err != nil {
		file.Close()
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	w.logger.Info("report exported",
		slog.String("report", string(result.Report.ID)),
		slog.String("file_path", path),
		slog.Int("record_count", result.Table.Len()))
	return path, nil
}

// resolvePath places relative names under the writer's directory
func (w *FileWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) || w.dir == "" {
		return name
	}
	return filepath.Join(w.dir, name)
}
