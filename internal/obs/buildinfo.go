package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "essentials_build_info",
			Help: "Always 1; labels carry the running API version and its storage backend.",
		},
		[]string{"version", "commit", "store"},
	)
)

// Storage backends reported on essentials_build_info.
const (
	StoreMongo  = "mongodb"
	StoreMemory = "memory"
)

// InitBuildInfo publishes the build labels and which store (StoreMongo or StoreMemory) serves requests.
func InitBuildInfo(version, commit, store string) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.WithLabelValues(version, commit, store).Set(1)
}
