package export

import (
	"context"

	"session-export/internal/audit"
	"session-export/internal/common"
	"session-export/internal/platform"
)

// archive copies the untouched originals into the archive project. It
// reports whether anything was archived; failed files are recorded.
func (r *run) archive(ctx context.Context) (bool, error) {
	if r.opts.ArchivePolicy != ArchiveCopy || r.archiveProject == nil {
		return false, nil
	}

	d, err := r.copyHierarchy(ctx, r.archiveProject)
	if err != nil {
		return false, err
	}

	r.archived = d

	for i := range r.acquisitions {
		src := &r.acquisitions[i]
		for _, f := range src.Files {
			if err := r.archiveFile(ctx, src, d.acquisitions[src.ID], f); err != nil {
				return false, err
			}
		}
	}

	if r.opts.ExportAttachments {
		for _, f := range r.session.Files {
			if err := r.archiveFile(ctx, r.session, d.session, f); err != nil {
				return false, err
			}
		}
	}

	r.log.Infof("archived originals to %s", r.archiveProject.Label)

	return true, nil
}

func (r *run) archiveFile(ctx context.Context, src, dest *platform.Container, f platform.File) error {
	name := common.SanitizeFilename(f.Name)
	sourceID := fileSourceID(src, f)

	if existing, ok := dest.File(name); ok && originOf(existing.Info) == OriginID(sourceID) {
		r.log.Debugf("%s already archived", name)
		return nil
	}

	res := FileResult{Name: name, Container: r.archived.path(dest)}

	data, err := r.client.Download(ctx, src.Ref(), f.Name)
	if err != nil {
		if platform.IsFatal(err) {
			return fatal("downloading "+f.Name, err)
		}

		r.record(res.failed(&UploadError{File: f.Name, Err: err}))

		return nil
	}

	cls, err := r.classification(ctx, f)
	if err != nil {
		return err
	}

	info := withOrigin(f.Info, sourceID)

	err = r.client.Upload(ctx, dest.Ref(), platform.Upload{
		Name:    name,
		Content: data,
		Metadata: platform.FileMetadata{
			Type:           f.Type,
			Modality:       f.Modality,
			Classification: cls,
			Info:           info,
			Tags:           f.Tags,
		},
	})
	if err != nil {
		if platform.IsFatal(err) {
			return fatal("archiving "+name, err)
		}

		r.record(res.failed(&UploadError{File: name, Err: err}))

		return nil
	}

	dest.Files = append(dest.Files, platform.File{Name: name, Info: info})
	r.log.Debugf("archived %s/%s", res.Container, name)

	return nil
}

// tag marks the source session and its copies as exported.
func (r *run) tag(ctx context.Context) error {
	refs := []platform.Ref{r.session.Ref(), r.dest.session.Ref()}
	if r.archived != nil {
		refs = append(refs, r.archived.session.Ref())
	}

	for _, ref := range refs {
		err := r.client.AddTag(ctx, ref, platform.TagExported)
		if err == nil {
			continue
		}

		if platform.IsFatal(err) {
			return fatal("tagging "+ref.String(), err)
		}

		r.log.Warnf("tagging %s: %v", ref, err)
	}

	return nil
}

func (r *run) failures() int {
	n := 0

	for _, res := range r.results {
		if res.Status == audit.StatusFailed {
			n++
		}
	}

	return n
}
