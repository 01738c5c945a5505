// Package http implements the HTTP request handlers for the StaffPulse web
// service. It is a thin layer between the chi router and the service layer:
// handlers parse and validate the request, resolve routing parameters, call
// one service method, and render the response.
//
// # Architecture Principles
//
// Handlers in this package follow these principles:
//
//	1. Thin handlers - minimal logic, delegate to services
//	2. HTTP-only concerns - request parsing, response formatting
//	3. Error transformation - convert service errors to HTTP responses
//	4. No business logic - all logic belongs in the service layer
//	5. Consistent patterns - standardized request/response handling
//
// # Request Flow
//
// A typical request flows through these layers:
//
//	HTTP Request → Chi Router → Middleware → Handler → Service → Store
//	                                              ↓
//	HTTP Response ← Handler ← Service Response ←─┘
//
// # Handlers
//
//	- ReportHandler: upload, list, get, delete, CSV export
//	- InsightHandler: per-sheet findings and metrics
//	- AssistantHandler: report Q&A
//	- HealthHandler: health/ready/live probes, version, stats
//	- MetricsHandler: Prometheus exposition
//
// # Response Shape
//
// Successful responses use a JSON envelope:
//
//	{
//	    "status": "success",
//	    "data": { ... }
//	}
//
// Failures render RFC 7807 Problem Details through the shared ErrorHandler:
//
//	{
//	    "type": "/errors/not-found",
//	    "title": "Not Found",
//	    "status": 404,
//	    "detail": "report not found",
//	    "instance": "/api/reports/42"
//	}
//
// # Authorization
//
// The PrincipalResolver middleware stores the caller's principal in the
// request context before any handler runs; handlers pass it through to the
// service layer, which applies sheet-set filtering. Role checks (uploader,
// admin) are route-group middleware, not handler code.
//
// # Testing
//
// Handlers are tested with httptest against real services wired to the
// in-memory store, asserting status codes, envelope shape, and problem
// bodies.
package http
