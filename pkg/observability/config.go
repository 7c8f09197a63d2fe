package observability

import "github.com/oveliahealth/ovelia_backend/config"

// Config describes how the service identifies itself and where traces go.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// OTLP HTTP endpoint for traces, e.g. "localhost:4318". Empty leaves
	// the exporter off; spans still exist locally so requests get trace IDs.
	OTLPEndpoint string
	OTLPInsecure bool

	// SamplingRate in [0,1]. Zero samples everything.
	SamplingRate float64
}

// FromCentralConfig maps the application config onto the package Config.
func FromCentralConfig(cfg *config.Config) Config {
	return Config{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Environment:    cfg.Server.Environment,
		OTLPEndpoint:   cfg.Observability.Tracing.OTLPEndpoint,
		OTLPInsecure:   cfg.Observability.Tracing.OTLPInsecure,
		SamplingRate:   cfg.Observability.Tracing.SamplingRate,
	}
}
