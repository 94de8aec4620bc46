// Package app composes the marketplace services into a running application.
//
// Layout:
//
//	internal/app/
//	├── application.go      # Application struct, wiring, lifecycle
//	├── domain/             # Pure data models (user, post, message)
//	├── storage/            # Store interfaces; memory, postgres, rediscache
//	├── services/           # Business logic (directory, posts, workflow, ...)
//	├── httpapi/            # REST handlers, bearer auth, audit log
//	├── metrics/            # Prometheus registry and HTTP instrumentation
//	└── system/             # Lifecycle Service interface and Manager
//
// Business rules live in services/; this package only wires dependencies and
// manages startup and shutdown order.
package app
