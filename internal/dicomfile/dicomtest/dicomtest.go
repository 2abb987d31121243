// Package dicomtest builds small synthetic DICOM files for tests.
package dicomtest

import (
	"archive/zip"
	"bytes"
	"slices"
	"strconv"
	"testing"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// Element is a keyword and its text components. Integer and float VRs
// are converted from the text.
type Element struct {
	Keyword string
	Values  []string
}

// E is shorthand for a single Element.
func E(keyword string, values ...string) Element {
	return Element{Keyword: keyword, Values: values}
}

// Instance encodes a minimal explicit VR little endian instance holding
// the given elements after the mandatory file meta group.
func Instance(tb testing.TB, elems ...Element) []byte {
	tb.Helper()

	ds := dicom.Dataset{Elements: []*dicom.Element{
		mustNew(tb, tag.FileMetaInformationVersion, []byte{0, 1}),
		mustNew(tb, tag.MediaStorageSOPClassUID, []string{"1.2.840.10008.5.1.4.1.1.4"}),
		mustNew(tb, tag.MediaStorageSOPInstanceUID, []string{"1.2.826.0.1.3680043.2.1125.1"}),
		mustNew(tb, tag.TransferSyntaxUID, []string{"1.2.840.10008.1.2.1"}),
	}}

	for _, e := range elems {
		info, err := tag.FindByName(e.Keyword)
		if err != nil {
			tb.Fatalf("unknown keyword %s: %v", e.Keyword, err)
		}

		ds.Elements = append(ds.Elements, mustNew(tb, info.Tag, typed(tb, info, e.Values)))
	}

	slices.SortStableFunc(ds.Elements, func(a, b *dicom.Element) int {
		if a.Tag.Group != b.Tag.Group {
			return int(a.Tag.Group) - int(b.Tag.Group)
		}

		return int(a.Tag.Element) - int(b.Tag.Element)
	})

	var buf bytes.Buffer
	if err := dicom.Write(&buf, ds, dicom.SkipVRVerification()); err != nil {
		tb.Fatalf("writing dataset: %v", err)
	}

	return buf.Bytes()
}

// Archive zips the given members, in order, into one archive.
func Archive(tb testing.TB, members map[string][]byte, order ...string) []byte {
	tb.Helper()

	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, name := range order {
		w, err := zw.Create(name)
		if err != nil {
			tb.Fatalf("creating member %s: %v", name, err)
		}

		if _, err := w.Write(members[name]); err != nil {
			tb.Fatalf("writing member %s: %v", name, err)
		}
	}

	if err := zw.Close(); err != nil {
		tb.Fatalf("closing archive: %v", err)
	}

	return buf.Bytes()
}

func typed(tb testing.TB, info tag.Info, values []string) any {
	tb.Helper()

	switch tag.GetVRKind(info.Tag, info.VR) {
	case tag.VRUInt16List, tag.VRUInt32List, tag.VRInt16List, tag.VRInt32List:
		ints := make([]int, 0, len(values))

		for _, v := range values {
			n, err := strconv.Atoi(v)
			if err != nil {
				tb.Fatalf("%s: %v", info.Name, err)
			}

			ints = append(ints, n)
		}

		return ints
	case tag.VRFloat32List, tag.VRFloat64List:
		floats := make([]float64, 0, len(values))

		for _, v := range values {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				tb.Fatalf("%s: %v", info.Name, err)
			}

			floats = append(floats, f)
		}

		return floats
	default:
		return values
	}
}

func mustNew(tb testing.TB, t tag.Tag, data any) *dicom.Element {
	tb.Helper()

	elem, err := dicom.NewElement(t, data)
	if err != nil {
		tb.Fatalf("new element %v: %v", t, err)
	}

	return elem
}
