/*
Package httpserver runs the CivicSeal API process.

It mounts the API routes on a chi router together with the operational
endpoints, and runs a separate Prometheus listener when a metrics address is
configured.

Operational endpoints:

  - GET /livez     process liveness
  - GET /readyz    readiness; 503 while draining
  - GET /drain     mark the server not ready so load balancers stop routing
  - GET /undrain   mark the server ready again
  - /debug/*       pprof, when enabled

Every route is wrapped with the slog request logger from go-utils/httplogger.
*/
package httpserver
