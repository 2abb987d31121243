// Package export copies a session into another project.
//
// A run has four phases:
//
//  1. Preflight resolves the projects, loads the source hierarchy and asks
//     the policy engine whether to proceed, skip or abort.
//  2. The destination subject, session and acquisitions are matched or
//     created in the export project.
//  3. Every file is downloaded, DICOM headers are reconciled against the
//     structured edits and the mapped hierarchy fields, and the result is
//     uploaded. Each file ends in a FileResult; one failing file does not
//     stop the others.
//  4. When every file succeeded the originals are archived and the
//     sessions are tagged EXPORTED.
//
// Every outcome is recorded in the audit log, which is written even when
// the run aborts.
package export
