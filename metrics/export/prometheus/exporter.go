package prometheus

import (
	"bytes"
	"net/http"

	goSession "github.com/MrEthical07/goSession"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// MetricsSource is satisfied by *goSession.Client.
type MetricsSource interface {
	MetricsSnapshot() goSession.MetricsSnapshot
	AuditDropped() uint64
}

const (
	auditDroppedName = "gosession_audit_dropped_total"
	auditDroppedHelp = "Audit events dropped because the dispatch buffer was full."
)

var textFormat = expfmt.NewFormat(expfmt.TypeTextPlain)

// Exporter renders client metrics in Prometheus text exposition format from
// a private registry holding one Collector.
type Exporter struct {
	source   MetricsSource
	registry *prom.Registry
}

// NewExporter reads from client.
func NewExporter(client *goSession.Client) *Exporter {
	return NewExporterFromSource(client)
}

func NewExporterFromSource(source MetricsSource) *Exporter {
	reg := prom.NewPedanticRegistry()
	reg.MustRegister(NewCollectorFromSource(source))
	return &Exporter{source: source, registry: reg}
}

// Handler serves Render.
func (e *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(textFormat))
		_, _ = w.Write([]byte(e.Render()))
	})
}

// Render returns the current metrics, or "" when the client records none.
func (e *Exporter) Render() string {
	if e == nil || e.source == nil {
		return ""
	}
	snapshot := e.source.MetricsSnapshot()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && e.source.AuditDropped() == 0 {
		return ""
	}

	families, err := e.registry.Gather()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, textFormat)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return ""
		}
	}
	return buf.String()
}
