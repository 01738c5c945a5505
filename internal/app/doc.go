// Package app provides application initialization and lifecycle management
// for the StaffPulse service. It wires configuration, observability, the
// report store, the upload pipeline and the HTTP surface together and owns
// graceful shutdown.
//
// # Initialization Flow
//
// The typical initialization sequence:
//
//	1. Load configuration from environment and files
//	2. Initialize logging and OpenTelemetry
//	3. Open the report store and start the WebSocket hub
//	4. Load the authorization directory
//	5. Assemble the upload pipeline (validate, extract, persist, analyze)
//	6. Build services, handlers and the chi router
//	7. Configure the HTTP server
//
// # Usage
//
// The main entry point is typically:
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := application.Run(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM and then ensures:
//
//	- Active requests are completed within the shutdown timeout
//	- WebSocket connections are closed cleanly
//	- Store connections are released
//	- OpenTelemetry providers are flushed
//
// # Error Handling
//
// All initialization errors are returned to the caller. The package never
// calls os.Exit() directly, leaving exit control to the main function.
package app
