package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"

	"github.com/shirou/gopsutil/process"
)

// StatsProvider supplies the engine-side counters and state for /inspect.
type StatsProvider func() map[string]any

// StartDebugServer exposes a JSON inspection endpoint combining engine stats
// with the process's own OS-level metrics. Best effort: failures to collect
// self stats leave those fields absent rather than failing the page.
func StartDebugServer(port int, endpoint string, provider StatsProvider) {
	mux := http.NewServeMux()

	mux.HandleFunc(endpoint, func(w http.ResponseWriter, r *http.Request) {
		data := make(map[string]any)
		if provider != nil {
			data = provider()
		}

		if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
			if memInfo, err := p.MemoryInfo(); err == nil {
				data["self_rss_bytes"] = memInfo.RSS
			}
			if cpuPercent, err := p.CPUPercent(); err == nil {
				data["self_cpu_percent"] = cpuPercent
			}
			if status, err := p.Status(); err == nil {
				data["self_status"] = status
			}
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		_ = encoder.Encode(data)
	})

	go func() {
		_ = http.ListenAndServe(fmt.Sprintf("0.0.0.0:%d", port), mux)
	}()
}
