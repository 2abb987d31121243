// Package match ranks near-miss names so validation errors can suggest
// the identifier the user probably meant (for example "PatientId" for
// the DICOM keyword "PatientID").
package match
