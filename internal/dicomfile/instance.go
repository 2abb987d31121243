package dicomfile

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"

	"session-export/internal/header"
)

// ErrParse marks data the codec could not read.
var ErrParse = errors.New("unreadable DICOM data")

// Instance is one parsed DICOM dataset.
type Instance struct {
	// Name is the archive member name, empty for a bare file.
	Name string

	raw     []byte
	dataset dicom.Dataset
	header  *header.Header
	dirty   bool
}

func parseInstance(name string, data []byte) (*Instance, error) {
	ds, err := dicom.Parse(bytes.NewReader(data), int64(len(data)), nil)
	if err != nil {
		if name != "" {
			return nil, fmt.Errorf("%w: member %s: %w", ErrParse, name, err)
		}

		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	return &Instance{
		Name:    name,
		raw:     data,
		dataset: ds,
		header:  extractHeader(ds),
	}, nil
}

// Header returns the flat header of the instance as parsed.
func (i *Instance) Header() *header.Header {
	return i.header
}

// Modified reports whether Apply changed the dataset.
func (i *Instance) Modified() bool {
	return i.dirty
}

// Apply writes changes into the dataset. Every element is built before
// any is swapped in, so a failing change leaves the dataset untouched.
func (i *Instance) Apply(changes []header.Change) error {
	if len(changes) == 0 {
		return nil
	}

	elems := make([]*dicom.Element, 0, len(changes))

	for _, c := range changes {
		elem, err := i.buildElement(c.Tag, c.New)
		if err != nil {
			return fmt.Errorf("building %s: %w", c.Tag, err)
		}

		elems = append(elems, elem)
	}

	for _, elem := range elems {
		i.put(elem)
	}

	i.dirty = true

	return nil
}

// Bytes serializes the instance, returning the parsed bytes when nothing
// was applied.
func (i *Instance) Bytes() ([]byte, error) {
	if !i.dirty {
		return i.raw, nil
	}

	var buf bytes.Buffer
	if err := dicom.Write(&buf, i.dataset, dicom.SkipVRVerification()); err != nil {
		return nil, fmt.Errorf("writing DICOM dataset: %w", err)
	}

	return buf.Bytes(), nil
}

func (i *Instance) buildElement(keyword string, v header.Value) (*dicom.Element, error) {
	info, err := lookup(keyword)
	if err != nil {
		return nil, err
	}

	vr := info.VR
	if existing, err := i.dataset.FindElementByTag(info.Tag); err == nil && existing.RawValueRepresentation != "" {
		vr = existing.RawValueRepresentation
	}

	data, err := convert(tag.GetVRKind(info.Tag, vr), v)
	if err != nil {
		return nil, fmt.Errorf("VR %s: %w", vr, err)
	}

	elem, err := dicom.NewElement(info.Tag, data)
	if err != nil {
		return nil, err
	}

	elem.RawValueRepresentation = vr
	elem.ValueRepresentation = tag.GetVRKind(info.Tag, vr)

	return elem, nil
}

// put replaces the element with the same tag or inserts it so top-level
// elements stay in ascending tag order.
func (i *Instance) put(elem *dicom.Element) {
	for idx, existing := range i.dataset.Elements {
		if existing.Tag == elem.Tag {
			i.dataset.Elements[idx] = elem
			return
		}

		if tagLess(elem.Tag, existing.Tag) {
			i.dataset.Elements = append(i.dataset.Elements[:idx],
				append([]*dicom.Element{elem}, i.dataset.Elements[idx:]...)...)

			return
		}
	}

	i.dataset.Elements = append(i.dataset.Elements, elem)
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}

	return a.Element < b.Element
}

func convert(kind tag.VRKind, v header.Value) (any, error) {
	switch kind {
	case tag.VRStringList, tag.VRString, tag.VRDate:
		return []string(v), nil
	case tag.VRUInt16List, tag.VRUInt32List, tag.VRInt16List, tag.VRInt32List:
		ints := make([]int, 0, len(v))

		for _, s := range v {
			n, err := strconv.Atoi(s)
			if err != nil {
				return nil, fmt.Errorf("integer value %q: %w", s, err)
			}

			ints = append(ints, n)
		}

		return ints, nil
	case tag.VRFloat32List, tag.VRFloat64List:
		floats := make([]float64, 0, len(v))

		for _, s := range v {
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("float value %q: %w", s, err)
			}

			floats = append(floats, f)
		}

		return floats, nil
	default:
		return nil, errors.New("value representation cannot be edited")
	}
}

// extractHeader collects the editable top-level elements. File meta,
// private tags, sequences and binary payloads stay out of the header.
func extractHeader(ds dicom.Dataset) *header.Header {
	h := header.New()

	for _, elem := range ds.Elements {
		if elem.Tag.Group == tag.MetadataGroup || elem.Value == nil {
			continue
		}

		name := keyword(elem.Tag)
		if name == "" {
			continue
		}

		var v header.Value

		switch elem.Value.ValueType() {
		case dicom.Strings:
			v = header.Value(dicom.MustGetStrings(elem.Value))
		case dicom.Ints:
			for _, n := range dicom.MustGetInts(elem.Value) {
				v = append(v, strconv.Itoa(n))
			}
		case dicom.Floats:
			for _, f := range dicom.MustGetFloats(elem.Value) {
				v = append(v, header.FormatNumber(f))
			}
		default:
			continue
		}

		h.Set(name, v)
	}

	return h
}
