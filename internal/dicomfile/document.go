package dicomfile

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

var zipMagic = []byte("PK\x03\x04")

// Document is a parsed DICOM file: a single instance or a zip of them.
type Document struct {
	raw       []byte
	archive   *zip.Reader
	instances []*Instance
}

// IsDICOMName reports whether a file name looks like DICOM content.
func IsDICOMName(name string) bool {
	lower := strings.ToLower(name)
	for _, suffix := range []string{".dcm", ".dicom", ".dcm.zip", ".dicom.zip"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}

	return false
}

// Parse reads data as a DICOM instance, or as a zip archive of instances
// when it carries the zip signature.
func Parse(data []byte) (*Document, error) {
	doc := &Document{raw: data}

	if !bytes.HasPrefix(data, zipMagic) {
		inst, err := parseInstance("", data)
		if err != nil {
			return nil, err
		}

		doc.instances = []*Instance{inst}

		return doc, nil
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening archive: %w", ErrParse, err)
	}

	doc.archive = zr

	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}

		member, err := readMember(f)
		if err != nil {
			return nil, fmt.Errorf("%w: reading member %s: %w", ErrParse, f.Name, err)
		}

		inst, err := parseInstance(f.Name, member)
		if err != nil {
			return nil, err
		}

		doc.instances = append(doc.instances, inst)
	}

	if len(doc.instances) == 0 {
		return nil, fmt.Errorf("%w: archive has no DICOM members", ErrParse)
	}

	return doc, nil
}

func readMember(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return io.ReadAll(rc)
}

// Instances returns the parsed instances in file order.
func (d *Document) Instances() []*Instance {
	return d.instances
}

// IsArchive reports whether the document came from a zip archive.
func (d *Document) IsArchive() bool {
	return d.archive != nil
}

// Modified reports whether any instance was changed.
func (d *Document) Modified() bool {
	for _, inst := range d.instances {
		if inst.Modified() {
			return true
		}
	}

	return false
}

// Bytes serializes the document. Unmodified documents return the parsed
// bytes unchanged; unmodified archive members are copied without
// recompression.
func (d *Document) Bytes() ([]byte, error) {
	if !d.Modified() {
		return d.raw, nil
	}

	if d.archive == nil {
		return d.instances[0].Bytes()
	}

	byName := make(map[string]*Instance, len(d.instances))
	for _, inst := range d.instances {
		byName[inst.Name] = inst
	}

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, f := range d.archive.File {
		inst, ok := byName[f.Name]
		if !ok || !inst.Modified() {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copying member %s: %w", f.Name, err)
			}

			continue
		}

		data, err := inst.Bytes()
		if err != nil {
			return nil, fmt.Errorf("member %s: %w", f.Name, err)
		}

		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.Name,
			Comment:  f.Comment,
			Method:   f.Method,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, fmt.Errorf("creating member %s: %w", f.Name, err)
		}

		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("writing member %s: %w", f.Name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	return buf.Bytes(), nil
}
