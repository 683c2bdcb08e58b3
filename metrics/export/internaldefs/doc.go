// Package internaldefs holds the metric names and bucket bounds shared by
// the goSession exporters.
//
// Both the Prometheus and OTel exporters read these tables, so a renamed
// metric changes every exporter at once.
//
// # What this package must NOT do
//
//   - Import an exporter package.
//   - Perform I/O.
package internaldefs
