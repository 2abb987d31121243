// Package mapping holds the correspondence table between hierarchy fields
// and DICOM keywords, and the Mapper that evaluates it.
//
// The table is an explicit enumerated list: every entry names the field
// paths it reads and the keyword it writes, so the mapping can be reviewed
// and tested without the platform.
//
// # Schema Overview
//
// The built-in table can be replaced with a YAML file of the same shape:
//
//	version: "1"
//	entries:
//	  - tag: PatientID
//	    source: [subject.label, subject.code]  # first value present wins
//	  - tag: PatientSex
//	    source: subject.sex
//	    transform: patient_sex
//	  - tag: PatientAge
//	    source: session.age
//	    transform: dicom_age
//	  - tag: InstitutionName
//	    source: session.info.site.name         # custom fields via info.*
//
// # Paths
//
// A path is "<level>.<field>" where level is subject, session or
// acquisition. Fields under "info." walk the container's custom metadata.
//
// # Missing values
//
// A source that is unset, blank, or that its transform cannot convert is
// skipped. An entry with no usable source produces no keyword at all;
// the Mapper never emits empty values.
package mapping
