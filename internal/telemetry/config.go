package telemetry

// Config holds OpenTelemetry tracing configuration.
type Config struct {
	// Enabled indicates whether tracing is enabled. When false, Init
	// installs a no-op tracer and every span created through Tracer is a
	// zero-cost no-op.
	Enabled bool

	// ServiceName is the name of the service reported on the resource
	// attached to every span.
	ServiceName string

	// ServiceVersion is the version of the service reported alongside
	// ServiceName.
	ServiceVersion string

	// SampleRate is the trace sampling rate, 0.0 to 1.0. 1.0 samples every
	// trace, 0.0 samples none.
	SampleRate float64
}
