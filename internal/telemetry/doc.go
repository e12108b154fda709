// Package telemetry sets up OpenTelemetry tracing and metrics for MediChat.
//
// Traces and metrics are exported over OTLP (gRPC or HTTP) to a collector.
// Telemetry is off by default; when it is on and a provider cannot be built,
// the instance is marked degraded and the global no-op providers stay in
// place, so the service keeps running.
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Observability, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
