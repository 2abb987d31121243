package export

import (
	"context"
	"maps"
	"slices"

	"session-export/internal/audit"
	"session-export/internal/common"
	"session-export/internal/dicomfile"
	"session-export/internal/header"
	"session-export/internal/ledger"
	"session-export/internal/mapping"
	"session-export/internal/platform"
)

// customClassification is accepted for every modality.
const customClassification = "Custom"

func (res FileResult) skipped(reason string) FileResult {
	res.Status = audit.StatusSkipped
	res.Reason = reason

	return res
}

func (res FileResult) failed(err error) FileResult {
	res.Status = audit.StatusFailed
	res.Reason = err.Error()
	res.Err = err
	res.Changes = nil

	return res
}

// exportFiles processes every acquisition file, then the session
// attachments. Only fatal errors are returned.
func (r *run) exportFiles(ctx context.Context) error {
	for i := range r.acquisitions {
		src := &r.acquisitions[i]
		dest := r.dest.acquisitions[src.ID]
		h := mapping.Hierarchy{Subject: r.subject, Session: r.session, Acquisition: src}

		for _, f := range src.Files {
			res, err := r.exportFile(ctx, src, dest, f, &h)
			if err != nil {
				return err
			}

			r.record(res)
		}
	}

	if !r.opts.ExportAttachments {
		return nil
	}

	for _, f := range r.session.Files {
		res, err := r.exportFile(ctx, r.session, r.dest.session, f, nil)
		if err != nil {
			return err
		}

		r.record(res)
	}

	return nil
}

// exportFile copies one file. DICOM files are reconciled when h is set;
// everything else is copied verbatim.
func (r *run) exportFile(
	ctx context.Context,
	src, dest *platform.Container,
	f platform.File,
	h *mapping.Hierarchy,
) (FileResult, error) {
	name := common.SanitizeFilename(f.Name)
	sourceID := fileSourceID(src, f)
	res := FileResult{Name: name, Container: r.dest.path(dest), Status: audit.StatusSuccess}

	if existing, ok := dest.File(name); ok && originOf(existing.Info) == OriginID(sourceID) {
		return res.skipped("already exported"), nil
	}

	data, err := r.client.Download(ctx, src.Ref(), f.Name)
	if err != nil {
		if platform.IsFatal(err) {
			return res, fatal("downloading "+f.Name, err)
		}

		return res.failed(&UploadError{File: f.Name, Err: err}), nil
	}

	info := withOrigin(f.Info, sourceID)
	out := data

	if h != nil && (f.IsDICOM() || dicomfile.IsDICOMName(f.Name)) {
		var final *header.Header

		out, res.Changes, final, err = r.reconcile(f, data, *h)
		if err != nil {
			return res.failed(&ParseError{File: f.Name, Err: err}), nil
		}

		setHeader(info, final.Map())
	}

	checksum := ledger.Checksum(out)
	key := ledger.Key(checksum, dest.ID)

	prev, err := r.ledger.Lookup(ctx, key)
	if err != nil {
		return res, err
	}

	if prev != nil {
		if _, ok := dest.File(prev.FileName); ok {
			return res.skipped("uploaded by run " + prev.RunID), nil
		}
	}

	cls, err := r.classification(ctx, f)
	if err != nil {
		return res, err
	}

	upload := platform.Upload{
		Name:    name,
		Content: out,
		Metadata: platform.FileMetadata{
			Type:           f.Type,
			Modality:       f.Modality,
			Classification: cls,
			Info:           info,
			Tags:           f.Tags,
		},
	}

	if err := r.client.Upload(ctx, dest.Ref(), upload); err != nil {
		if platform.IsFatal(err) {
			return res, fatal("uploading "+name, err)
		}

		return res.failed(&UploadError{File: name, Err: err}), nil
	}

	dest.Files = append(dest.Files, platform.File{Name: name, Info: info})

	err = r.ledger.Record(ctx, ledger.Upload{
		Key:             key,
		RunID:           r.id,
		OriginFileID:    f.ID,
		DestContainerID: dest.ID,
		FileName:        name,
		Checksum:        checksum,
	})
	if err != nil {
		r.log.Warnf("%v", err)
	}

	return res, nil
}

// reconcile applies edits and mapped values to every instance of a DICOM
// file. It returns the encoded file, the distinct changes and the final
// header of the first instance.
func (r *run) reconcile(f platform.File, data []byte, h mapping.Hierarchy) ([]byte, []header.Change, *header.Header, error) {
	doc, err := dicomfile.Parse(data)
	if err != nil {
		return nil, nil, nil, err
	}

	if doc.IsArchive() {
		r.log.Debugf("%s: archive of %d instances", f.Name, len(doc.Instances()))
	}

	edits := structuredEdits(f.Info)
	mapped := r.mapper.Map(h)
	opts := header.Options{KnownTag: dicomfile.KnownKeyword, IsNumeric: dicomfile.NumericKeyword}

	var (
		changes []header.Change
		final   *header.Header
	)

	for _, inst := range doc.Instances() {
		res := header.Reconcile(inst.Header(), edits, mapped, opts)

		for _, s := range res.Skipped {
			r.log.Warnf("%s: %s %s not applied: %s", f.Name, s.Source, s.Tag, s.Reason)
		}

		if final == nil {
			final = res.Final
		}

		if !res.Changed() {
			continue
		}

		r.log.Dump(f.Name+" "+inst.Name, res.Changes)

		if err := inst.Apply(res.Changes); err != nil {
			return nil, nil, nil, err
		}

		for _, c := range res.Changes {
			if !slices.ContainsFunc(changes, func(o header.Change) bool { return sameChange(o, c) }) {
				changes = append(changes, c)
			}
		}
	}

	out, err := doc.Bytes()
	if err != nil {
		return nil, nil, nil, err
	}

	return out, changes, final, nil
}

// classification keeps the entries the file's modality allows.
func (r *run) classification(ctx context.Context, f platform.File) (map[string][]string, error) {
	if len(f.Classification) == 0 {
		return nil, nil
	}

	schema, err := r.modalitySchema(ctx, f.Modality)
	if err != nil {
		return nil, err
	}

	out := map[string][]string{}

	for _, key := range slices.Sorted(maps.Keys(f.Classification)) {
		for _, v := range f.Classification[key] {
			if key != customClassification && !slices.Contains(schema[key], v) {
				r.log.Warnf("%s: dropping classification %s=%s not allowed for modality %q", f.Name, key, v, f.Modality)
				continue
			}

			out[key] = append(out[key], v)
		}
	}

	if len(out) == 0 {
		return nil, nil
	}

	return out, nil
}

func (r *run) modalitySchema(ctx context.Context, name string) (map[string][]string, error) {
	if name == "" {
		return nil, nil
	}

	if m, ok := r.modality[name]; ok {
		return m.Classification, nil
	}

	m, err := r.client.Modality(ctx, name)
	if err != nil {
		if platform.IsFatal(err) {
			return nil, fatal("loading modality "+name, err)
		}

		r.log.Warnf("modality %s: %v", name, err)
		m = &platform.Modality{ID: name}
	}

	r.modality[name] = m

	return m.Classification, nil
}

func sameChange(a, b header.Change) bool {
	return a.Tag == b.Tag && a.Source == b.Source && a.Original.Equal(b.Original) && a.New.Equal(b.New)
}

func fileSourceID(src *platform.Container, f platform.File) string {
	if f.ID != "" {
		return f.ID
	}

	return src.ID + "/" + f.Name
}

func originOf(info map[string]any) string {
	exp, _ := info["export"].(map[string]any)
	id, _ := exp[originKey].(string)

	return id
}

func structuredEdits(info map[string]any) map[string]any {
	hdr, _ := info["header"].(map[string]any)
	edits, _ := hdr["dicom"].(map[string]any)

	return edits
}

func setHeader(info map[string]any, values map[string]any) {
	hdr, _ := info["header"].(map[string]any)
	if hdr == nil {
		hdr = map[string]any{}
		info["header"] = hdr
	}

	hdr["dicom"] = values
}
