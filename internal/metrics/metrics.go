package metrics

import (
	"runtime"
	"runtime/debug"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registry = prometheus.NewRegistry()

	sessionsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "deskd",
		Name:      "sessions_running",
		Help:      "Number of command sessions currently running.",
	})

	sessionsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskd",
		Name:      "sessions_started_total",
		Help:      "Total number of command sessions created.",
	})

	sessionsFinished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "deskd",
		Name:      "sessions_finished_total",
		Help:      "Total number of sessions reaching a terminal state, by status.",
	}, []string{"status"})

	outputBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskd",
		Name:      "output_bytes_total",
		Help:      "Total bytes of process output captured across all sessions.",
	})

	reads = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskd",
		Name:      "reads_total",
		Help:      "Total number of read_output calls served.",
	})

	terminations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "deskd",
		Name:      "terminations_total",
		Help:      "Total number of force_terminate calls that stopped a session.",
	})

	buildInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "deskd",
		Name:      "build_info",
		Help:      "Build metadata for the running deskd binary.",
	}, []string{"go_version", "vcs", "vcs_revision", "vcs_time", "vcs_modified"})

	buildInfoOnce sync.Once
)

func init() {
	registry.MustRegister(sessionsRunning, sessionsStarted, sessionsFinished, outputBytes, reads, terminations, buildInfo)
}

// Registry returns the Prometheus registry containing all deskd metrics.
func Registry() *prometheus.Registry {
	return registry
}

// IncSessionsStarted counts a newly created session.
func IncSessionsStarted() {
	sessionsStarted.Inc()
}

// AddRunningSessions adjusts the running-session gauge.
func AddRunningSessions(n int) {
	sessionsRunning.Add(float64(n))
}

// IncSessionsFinished counts a session reaching the given terminal status.
func IncSessionsFinished(status string) {
	if status == "" {
		status = "unknown"
	}
	sessionsFinished.WithLabelValues(status).Inc()
}

// AddOutputBytes counts captured process output.
func AddOutputBytes(n int) {
	if n <= 0 {
		return
	}
	outputBytes.Add(float64(n))
}

// IncReads counts a served read_output call.
func IncReads() {
	reads.Inc()
}

// IncTerminations counts a force termination.
func IncTerminations() {
	terminations.Inc()
}

// EmitBuildInfo publishes build metadata about the running binary.
func EmitBuildInfo() {
	buildInfoOnce.Do(func() {
		labels := prometheus.Labels{
			"go_version":   runtime.Version(),
			"vcs":          "",
			"vcs_revision": "",
			"vcs_time":     "",
			"vcs_modified": "",
		}
		if info, ok := debug.ReadBuildInfo(); ok {
			if info.GoVersion != "" {
				labels["go_version"] = info.GoVersion
			}
			for _, setting := range info.Settings {
				switch setting.Key {
				case "vcs":
					labels["vcs"] = setting.Value
				case "vcs.revision":
					labels["vcs_revision"] = setting.Value
				case "vcs.time":
					labels["vcs_time"] = setting.Value
				case "vcs.modified":
					labels["vcs_modified"] = setting.Value
				}
			}
		}
		buildInfo.With(labels).Set(1)
	})
}
