// Package dicomfile adapts github.com/suyashkumar/dicom to the flat header
// model in package header.
//
// A Document is either a single DICOM instance or a zip archive of
// instances (the usual shape of an uploaded acquisition). Changes are
// applied per instance; a Document whose instances were not modified
// serializes back to the exact bytes it was parsed from.
package dicomfile
