package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"session-export/internal/audit"
	"session-export/internal/common"
	"session-export/internal/header"
	"session-export/internal/ledger"
	"session-export/internal/mapping"
	"session-export/internal/platform"
	"session-export/internal/policy"
)

// Options are the per-run settings.
type Options struct {
	SessionID string
	// ExportProject and ArchiveProject are "group/project" paths.
	ExportProject  string
	ArchiveProject string
	ArchivePolicy  ArchivePolicy

	ForceExport       bool
	CheckGearRules    bool
	ExportAttachments bool

	// OutputDir receives the audit log.
	OutputDir string
}

// Deps are the collaborators of an Exporter. Logger may be nil.
type Deps struct {
	Client platform.Client
	Mapper *mapping.Mapper
	Policy *policy.Engine
	Ledger *ledger.Ledger
	Logger *Logger
}

// FileResult is the outcome of one file.
type FileResult struct {
	// Name is the destination file name.
	Name string
	// Container is the destination container path.
	Container string
	Status    audit.Status
	Changes   []header.Change
	Reason    string
	Err       error
}

// Summary describes a finished run.
type Summary struct {
	RunID   string
	Session string
	Files   []FileResult
	// Skipped is set when preflight decided not to export.
	Skipped bool
	// Archived and Tagged report whether the final phases ran.
	Archived bool
	Tagged   bool
	// LogPath is where the audit log was written.
	LogPath string
}

// Count returns how many files ended in status.
func (s *Summary) Count(status audit.Status) int {
	n := 0

	for _, f := range s.Files {
		if f.Status == status {
			n++
		}
	}

	return n
}

// Exporter runs session exports.
type Exporter struct {
	client platform.Client
	mapper *mapping.Mapper
	policy *policy.Engine
	ledger *ledger.Ledger
	log    *Logger
	opts   Options
}

// New checks deps and returns an Exporter.
func New(opts Options, deps Deps) (*Exporter, error) {
	var missing []error

	if deps.Client == nil {
		missing = append(missing, errors.New("platform client is required"))
	}

	if deps.Mapper == nil {
		missing = append(missing, errors.New("mapper is required"))
	}

	if deps.Policy == nil {
		missing = append(missing, errors.New("policy engine is required"))
	}

	if deps.Ledger == nil {
		missing = append(missing, errors.New("ledger is required"))
	}

	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	if deps.Logger == nil {
		deps.Logger = DiscardLogger()
	}

	return &Exporter{
		client: deps.Client,
		mapper: deps.Mapper,
		policy: deps.Policy,
		ledger: deps.Ledger,
		log:    deps.Logger,
		opts:   opts,
	}, nil
}

// Run exports the configured session. Per-file failures are reported in
// the Summary, not as an error; the returned error is one of
// ConfigurationError, PreflightError or FatalAPIError (or an internal
// failure). The Summary is returned whenever the audit log was started.
func (x *Exporter) Run(ctx context.Context) (summary *Summary, err error) {
	r := &run{
		Exporter: x,
		id:       uuid.NewString(),
		modality: map[string]*platform.Modality{},
	}

	if err := r.load(ctx); err != nil {
		return nil, err
	}

	logName := audit.FileName(
		common.FirstNonEmpty(r.subject.Label, r.subject.Code, r.subject.ID),
		common.FirstNonEmpty(r.session.Label, r.session.ID),
	)
	r.audit = audit.New(filepath.Join(x.opts.OutputDir, logName))
	summary = &Summary{RunID: r.id, Session: r.sourcePath(), LogPath: r.audit.Path()}

	defer func() {
		if ferr := r.audit.Flush(); ferr != nil {
			x.log.Errorf("writing export log: %v", ferr)
			err = errors.Join(err, ferr)
		}

		status := ledger.RunCompleted

		switch {
		case err != nil:
			status = ledger.RunFailed
		case summary.Skipped:
			status = ledger.RunSkipped
		}

		if lerr := x.ledger.FinishRun(context.WithoutCancel(ctx), r.id, status, err); lerr != nil {
			x.log.Warnf("%v", lerr)
		}
	}()

	if err := x.ledger.StartRun(ctx, r.id, x.opts.SessionID); err != nil {
		return summary, err
	}

	x.log.Infof("run %s: exporting %s to %s", r.id, summary.Session, x.opts.ExportProject)

	decision, err := r.preflight(ctx)
	if err != nil {
		return summary, err
	}

	switch decision.Action {
	case policy.Abort:
		x.log.Errorf("preflight: %s", decision.Reason)
		return summary, &PreflightError{Reason: decision.Reason}
	case policy.Skip:
		x.log.Infof("preflight: %s", decision.Reason)
		r.audit.Add(audit.Record{ContainerPath: summary.Session, Status: audit.StatusSkipped, Reason: decision.Reason})
		summary.Skipped = true

		return summary, nil
	}

	dest, err := r.copyHierarchy(ctx, r.exportProject)
	if err != nil {
		return summary, err
	}

	r.dest = dest

	if err := r.exportFiles(ctx); err != nil {
		summary.Files = r.results
		return summary, err
	}

	summary.Files = r.results

	if failed := r.failures(); failed > 0 {
		x.log.Warnf("%d file(s) failed; skipping archival and tagging", failed)
		return summary, nil
	}

	archived, err := r.archive(ctx)
	summary.Files = r.results

	if err != nil {
		return summary, err
	}

	if failed := r.failures(); failed > 0 {
		x.log.Warnf("%d file(s) could not be archived; skipping tagging", failed)
		return summary, nil
	}

	summary.Archived = archived

	if err := r.tag(ctx); err != nil {
		return summary, err
	}

	summary.Tagged = true

	x.log.Infof("run %s finished: %d succeeded, %d skipped",
		r.id, summary.Count(audit.StatusSuccess), summary.Count(audit.StatusSkipped))

	return summary, nil
}

// run carries the state of one Exporter.Run.
type run struct {
	*Exporter

	id    string
	audit *audit.Log

	exportProject  *platform.Container
	archiveProject *platform.Container
	sourceProject  *platform.Container

	subject      *platform.Container
	session      *platform.Container
	acquisitions []platform.Container

	dest     *copied
	archived *copied

	modality map[string]*platform.Modality
	results  []FileResult
}

func (r *run) sourcePath() string {
	return fmt.Sprintf("%s/%s/%s/%s",
		r.sourceProject.Parents.Group, r.sourceProject.Label, r.subject.Label, r.session.Label)
}

func (r *run) record(res FileResult) {
	r.results = append(r.results, res)
	r.audit.AddFile(res.Name, res.Container, res.Changes, res.Status, res.Reason)

	switch res.Status {
	case audit.StatusFailed:
		r.log.Errorf("%s/%s: %s", res.Container, res.Name, res.Reason)
	case audit.StatusSkipped:
		r.log.Infof("%s/%s: skipped: %s", res.Container, res.Name, res.Reason)
	default:
		r.log.Infof("%s/%s: exported with %d change(s)", res.Container, res.Name, len(res.Changes))
	}
}

// fatal wraps a platform failure that stops the run.
func fatal(op string, err error) error {
	var fe *FatalAPIError
	if errors.As(err, &fe) {
		return err
	}

	return &FatalAPIError{Op: op, Err: err}
}
