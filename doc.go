/*
Package fastbackend is a small HTTP backend built on a custom HTTP/1.1 engine.

The server exposes four routes:

	GET  /health        status, service name and version
	GET  /metrics       fixed CPU, memory and request counters
	POST /api/process   echoes a JSON body as {"status":"processed","data":...}
	POST /api/grpc      returns the raw request bytes as application/octet-stream

Every response passes through access logging and then CORS. CORS preflight
requests (OPTIONS on any path) are answered with 204. Unknown routes return
404 with an empty body.

# Layout

	app/              wires config, logger, engine, middleware and handlers
	apperror/         typed errors and their HTTP rendering
	buildinfo/        service name and version
	cmd/fast-backend/ cobra CLI (serve, routes, version)
	config/           viper configuration (HOST, PORT, config file, .env)
	core/             connection engine and listener tuning
	core/codec/       JSON and protobuf body codecs
	core/http/        request parsing, response encoding and handler context
	core/http2/       optional h2c server
	core/middleware/  pipeline, access log, CORS and panic recovery
	core/observability/ Prometheus collectors for the admin listener
	core/pools/       tiered byte buffer pool
	core/router/      exact method and path routing
	handler/          the four endpoint handlers
	logger/           zap-backed structured logging

# Running

	go run ./cmd/fast-backend
	HOST=127.0.0.1 PORT=9000 go run ./cmd/fast-backend
	go run ./cmd/fast-backend --protocol h2c --log-level debug

A bind failure is logged and the process exits with status 1.
*/
package fastbackend
