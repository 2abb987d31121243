// Package platform defines the hierarchical data platform the exporter
// talks to: the container model (group → project → subject → session →
// acquisition, each holding files), the Client contract and the error
// classification shared by its implementations.
//
// Implementations:
//   - httpapi: REST client for a live platform
//   - platformtest: in-memory platform for tests
package platform
