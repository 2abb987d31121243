package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"session-export/internal/common"
	"session-export/internal/header"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// Columns is the CSV header row.
var Columns = []string{
	"file path", "container path", "tag", "original value", "new value", "change source", "status", "reason",
}

// Record is one row of the export log.
type Record struct {
	FilePath      string
	ContainerPath string
	Tag           string
	OriginalValue string
	NewValue      string
	ChangeSource  string
	Status        Status
	Reason        string
}

func (r Record) row() []string {
	return []string{
		r.FilePath, r.ContainerPath, r.Tag, r.OriginalValue, r.NewValue, r.ChangeSource, r.Status.String(), r.Reason,
	}
}

// Log accumulates records for one run. It is owned by a single
// orchestrator and is not safe for concurrent use.
type Log struct {
	path    string
	records []Record
}

// New returns a Log that Flush writes to path.
func New(path string) *Log {
	return &Log{path: path}
}

// FileName returns the sanitized log file name for a session.
func FileName(subject, session string) string {
	return common.SanitizeFilename(fmt.Sprintf("%s-%s_export_log.csv", subject, session))
}

// Path returns where Flush writes.
func (l *Log) Path() string {
	return l.path
}

// Add appends a record.
func (l *Log) Add(r Record) {
	l.records = append(l.records, r)
}

// AddFile records a file's outcome: one row per change, or a single
// status row when nothing changed.
func (l *Log) AddFile(filePath, containerPath string, changes []header.Change, status Status, reason string) {
	if len(changes) == 0 {
		l.Add(Record{FilePath: filePath, ContainerPath: containerPath, Status: status, Reason: reason})
		return
	}

	for _, c := range changes {
		l.Add(Record{
			FilePath:      filePath,
			ContainerPath: containerPath,
			Tag:           c.Tag,
			OriginalValue: c.Original.String(),
			NewValue:      c.New.String(),
			ChangeSource:  c.Source.String(),
			Status:        status,
			Reason:        reason,
		})
	}
}

// Records returns the accumulated records.
func (l *Log) Records() []Record {
	return l.records
}

// Count returns how many distinct files ended in status.
func (l *Log) Count(status Status) int {
	seen := map[[2]string]bool{}

	for _, r := range l.records {
		if r.Status == status {
			seen[[2]string{r.ContainerPath, r.FilePath}] = true
		}
	}

	return len(seen)
}

// WriteCSV writes the header row and every record to w.
func (l *Log) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, r := range l.records {
		if err := cw.Write(r.row()); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}

	cw.Flush()

	return cw.Error()
}

// Flush writes the log to its path, creating the directory as needed. It
// may be called more than once; each call rewrites the whole file.
func (l *Log) Flush() error {
	if err := os.MkdirAll(filepath.Dir(l.path), dirPerm); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("creating export log %s: %w", l.path, err)
	}

	if err := l.WriteCSV(f); err != nil {
		_ = f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("closing export log %s: %w", l.path, err)
	}

	return nil
}
