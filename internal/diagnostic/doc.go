// Package diagnostic collects structured validation findings for the
// session exporter.
//
// Configuration and correspondence table validation report every problem
// they find instead of stopping at the first one:
//   - Errors block the run (the CLI exits with a configuration error)
//   - Warnings are logged and the run continues
//   - Infos explain defaults that were applied
package diagnostic
