// Package telemetry provides setup for reporting trace spans and stats of the slam front end.
package telemetry

import (
	"time"

	"go.viam.com/utils/perf"
)

// Flag enables telemetry when passed to the module binary.
const Flag = "--telemetry"

// reportingInterval is how often collected spans and stats are printed.
const reportingInterval = time.Second

// Enabled reports whether args ask for telemetry.
func Enabled(args []string) bool {
	for _, arg := range args[min(1, len(args)):] {
		if arg == Flag {
			return true
		}
	}
	return false
}

// SetupTelemetry sets up telemetry so the trace spans of the sensor adapters, the engine calls and
// the publishers are reported.
func SetupTelemetry() (perf.Exporter, error) {
	exporter := perf.NewDevelopmentExporterWithOptions(perf.DevelopmentExporterOptions{
		ReportingInterval: reportingInterval,
	})
	if err := exporter.Start(); err != nil {
		return nil, err
	}
	return exporter, nil
}
