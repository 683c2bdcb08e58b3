package internaldefs

import (
	"strings"
	"testing"

	goSession "github.com/MrEthical07/goSession"
)

func TestEveryCounterHasOneDefinition(t *testing.T) {
	seenID := map[goSession.MetricID]bool{}
	seenName := map[string]bool{}
	for _, def := range CounterDefs {
		if def.ID == goSession.MetricProviderLatency {
			t.Fatalf("%s: histogram id used as a counter", def.Name)
		}
		if seenID[def.ID] || seenName[def.Name] {
			t.Fatalf("duplicate definition %s", def.Name)
		}
		if !strings.HasPrefix(def.Name, "gosession_") || !strings.HasSuffix(def.Name, "_total") {
			t.Fatalf("unexpected counter name %s", def.Name)
		}
		seenID[def.ID] = true
		seenName[def.Name] = true
	}
	if len(CounterDefs) != int(goSession.MetricProviderLatency) {
		t.Fatalf("expected %d counters, got %d", goSession.MetricProviderLatency, len(CounterDefs))
	}
}

func TestBucketTablesAgree(t *testing.T) {
	if len(HistogramBoundValues)+1 != len(NormalizeBuckets(nil)) {
		t.Fatal("bucket tables out of sync")
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(NormalizeBuckets([]uint64{1, 2, 3}))
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	if NormalizeBuckets(nil) != ([8]uint64{}) {
		t.Fatal("nil must normalize to zeros")
	}
}
