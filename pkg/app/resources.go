package app

import (
	"os"
	"runtime"
	"time"

	"meshrelay.dev/pkg/utils/context"
	"meshrelay.dev/pkg/utils/log"
)

// MonitorResources periodically logs resource usage metrics such as the number
// of active goroutines and CGO calls at 15-minute intervals, and exits when the
// provided context signals cancellation. An instance runs this alongside its
// admission pipeline so an operator watching logs can correlate goroutine
// growth with a stuck broadcast fan-out or a subscriber leak.
func MonitorResources(c context.T) {
	tick := time.NewTicker(time.Minute * 15)
	defer tick.Stop()
	log.I.Ln("running process", os.Args[0], os.Getpid())
	for {
		select {
		case <-c.Done():
			log.D.Ln("shutting down resource monitor")
			return
		case <-tick.C:
			log.D.Ln(
				"# goroutines", runtime.NumGoroutine(),
				"# cgo calls", runtime.NumCgoCall(),
			)
		}
	}
}
