// Package audit accumulates per-file outcomes and header changes of an
// export run and writes them as the CSV export log.
package audit
