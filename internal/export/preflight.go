package export

import (
	"context"
	"errors"
	"fmt"

	"session-export/internal/platform"
	"session-export/internal/policy"
)

// load resolves the projects and the source hierarchy and checks that
// they do not conflict.
func (r *run) load(ctx context.Context) error {
	opts := r.opts

	if opts.ArchiveProject != "" && opts.ArchivePolicy == ArchiveUnset {
		return &ConfigurationError{Err: errors.New("archive project is set but no archive policy is given")}
	}

	if opts.ArchiveProject == "" && opts.ArchivePolicy == ArchiveCopy {
		return &ConfigurationError{Err: fmt.Errorf("archive policy %s needs an archive project", ArchiveCopy)}
	}

	var err error

	if r.exportProject, err = r.lookupProject(ctx, opts.ExportProject); err != nil {
		return err
	}

	if opts.ArchiveProject != "" {
		if r.archiveProject, err = r.lookupProject(ctx, opts.ArchiveProject); err != nil {
			return err
		}

		if r.archiveProject.ID == r.exportProject.ID {
			return &ConfigurationError{Err: errors.New("archive project and export project are the same")}
		}
	}

	r.session, err = r.client.Get(ctx, platform.Ref{Type: platform.Session, ID: opts.SessionID})
	if platform.IsNotFound(err) {
		return &ConfigurationError{Err: fmt.Errorf("session %s: %w", opts.SessionID, err)}
	}

	if err != nil {
		return fatal("loading session", err)
	}

	if r.session.Parents.Project == r.exportProject.ID {
		return &ConfigurationError{Err: errors.New("export project is the session's own project")}
	}

	if r.archiveProject != nil && r.session.Parents.Project == r.archiveProject.ID {
		return &ConfigurationError{Err: errors.New("archive project is the session's own project")}
	}

	if r.subject, err = r.client.Get(ctx, platform.Ref{Type: platform.Subject, ID: r.session.Parents.Subject}); err != nil {
		return fatal("loading subject", err)
	}

	if r.sourceProject, err = r.client.Get(ctx, platform.Ref{Type: platform.Project, ID: r.session.Parents.Project}); err != nil {
		return fatal("loading source project", err)
	}

	if r.acquisitions, err = r.client.Children(ctx, r.session.Ref(), platform.Acquisition); err != nil {
		return fatal("listing acquisitions", err)
	}

	return nil
}

func (r *run) lookupProject(ctx context.Context, path string) (*platform.Container, error) {
	p, err := r.client.LookupProject(ctx, path)
	if platform.IsNotFound(err) {
		return nil, &ConfigurationError{Err: fmt.Errorf("project %s does not exist: %w", path, err)}
	}

	if err != nil {
		return nil, fatal("looking up project "+path, err)
	}

	return p, nil
}

// preflight asks the policy engine what to do with the session.
func (r *run) preflight(ctx context.Context) (policy.Decision, error) {
	in := policy.Input{
		CheckGearRules: r.opts.CheckGearRules,
		ForceExport:    r.opts.ForceExport,
		Exported:       r.session.HasTag(platform.TagExported),
	}

	if r.opts.CheckGearRules {
		rules, err := r.client.Rules(ctx, r.exportProject.ID)
		if err != nil {
			return policy.Decision{}, fatal("listing gear rules", err)
		}

		in.Rules = policy.RulesFrom(rules)
	}

	r.log.Dump("preflight input", in)

	decision, err := r.policy.Evaluate(ctx, in)
	if err != nil {
		return policy.Decision{}, fmt.Errorf("evaluating preflight policy: %w", err)
	}

	return decision, nil
}
