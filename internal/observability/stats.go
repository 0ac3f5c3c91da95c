package observability

import (
	"sync"
	"sync/atomic"
)

type StatsSnapshot struct {
	PagesFetched      uint64            `json:"pages_fetched"`
	DetailsFetched    uint64            `json:"details_fetched"`
	LinksDiscovered   uint64            `json:"links_discovered"`
	RecordsExtracted  uint64            `json:"records_extracted"`
	FetchRetries      uint64            `json:"fetch_retries"`
	ErrorsTotal       uint64            `json:"errors_total"`
	RunsCompleted     uint64            `json:"runs_completed"`
	RunSecondsAvg     float64           `json:"run_seconds_avg"`
	ErrorsByType      map[string]uint64 `json:"errors_by_type,omitempty"`
	ErrorsByComponent map[string]uint64 `json:"errors_by_component,omitempty"`
}

const (
	ComponentHarvest = "harvest"
	ComponentExtract = "extract"
	ComponentStore   = "store"
	ComponentQueue   = "queue"
)

var (
	pagesFetched     uint64
	detailsFetched   uint64
	linksDiscovered  uint64
	recordsExtracted uint64
	fetchRetries     uint64
	errorsTotal      uint64

	runCount uint64
	runNanos uint64

	statsMu           sync.Mutex
	errorsByType      = map[string]uint64{}
	errorsByComponent = map[string]uint64{}
)

// IncFetch counts one completed fetch attempt sequence for a component.
func IncFetch(component string, ok bool) {
	outcome := "success"
	if ok {
		switch component {
		case ComponentHarvest:
			atomic.AddUint64(&pagesFetched, 1)
		case ComponentExtract:
			atomic.AddUint64(&detailsFetched, 1)
		}
	} else {
		outcome = "failure"
	}
	fetchesTotal.WithLabelValues(component, outcome).Inc()
}

func IncRetry(component, reason string) {
	atomic.AddUint64(&fetchRetries, 1)
	fetchRetriesTotal.WithLabelValues(component, orUnknown(reason)).Inc()
}

func AddLinksDiscovered(n int) {
	if n <= 0 {
		return
	}
	atomic.AddUint64(&linksDiscovered, uint64(n))
	linksDiscoveredTotal.Add(float64(n))
}

func IncRecordsExtracted() {
	atomic.AddUint64(&recordsExtracted, 1)
	recordsExtractedTotal.Inc()
}

func ObserveRunDuration(stage string, seconds float64) {
	if seconds <= 0 {
		return
	}
	atomic.AddUint64(&runCount, 1)
	atomic.AddUint64(&runNanos, uint64(seconds*1e9))
	runDuration.WithLabelValues(stage).Observe(seconds)
}

func IncError(errType, component string) {
	errType = orUnknown(errType)
	component = orUnknown(component)
	atomic.AddUint64(&errorsTotal, 1)
	statsMu.Lock()
	errorsByType[errType]++
	errorsByComponent[component]++
	statsMu.Unlock()
	unitFailuresTotal.WithLabelValues(component, errType).Inc()
}

func Snapshot() StatsSnapshot {
	statsMu.Lock()
	errorsTypeCopy := copyMap(errorsByType)
	errorsComponentCopy := copyMap(errorsByComponent)
	statsMu.Unlock()

	count := atomic.LoadUint64(&runCount)
	avg := 0.0
	if count > 0 {
		avg = float64(atomic.LoadUint64(&runNanos)) / float64(count) / 1e9
	}

	return StatsSnapshot{
		PagesFetched:      atomic.LoadUint64(&pagesFetched),
		DetailsFetched:    atomic.LoadUint64(&detailsFetched),
		LinksDiscovered:   atomic.LoadUint64(&linksDiscovered),
		RecordsExtracted:  atomic.LoadUint64(&recordsExtracted),
		FetchRetries:      atomic.LoadUint64(&fetchRetries),
		ErrorsTotal:       atomic.LoadUint64(&errorsTotal),
		RunsCompleted:     count,
		RunSecondsAvg:     avg,
		ErrorsByType:      errorsTypeCopy,
		ErrorsByComponent: errorsComponentCopy,
	}
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func copyMap(src map[string]uint64) map[string]uint64 {
	if len(src) == 0 {
		return map[string]uint64{}
	}
	out := make(map[string]uint64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
