/*
Package server provides the HTTP API for stored schedules and their
recurrence rules.

# Basic Usage

The simplest way to use this package is with the provided in-memory storage:

	store := memory.New()
	srv, err := server.New(store, server.WithEngine(recurrence.NewEngineWithConfig(recurrence.DefaultEngineConfig)))
	if err != nil {
		log.Fatal(err)
	}
	http.ListenAndServe(":8080", srv)

# Routes

	GET    /healthz
	POST   /preview                          expand an unsaved rule
	GET    /schedules                        ?recurring=true&startsAfter=&limit=
	POST   /schedules
	POST   /schedules/import                 text/calendar body, one VEVENT
	GET    /schedules/{id}
	PUT    /schedules/{id}
	DELETE /schedules/{id}
	GET    /schedules/{id}/ics
	PUT    /schedules/{id}/recurrence        rule spec body
	DELETE /schedules/{id}/recurrence
	GET    /schedules/{id}/exceptions
	POST   /schedules/{id}/exceptions        {"date": "2025-03-28"}
	DELETE /schedules/{id}/exceptions/{date}
	GET    /schedules/{id}/occurrences       ?count=&from=&to=&lang=&format=json|xml|ics

Errors are returned as {"error": "..."}. Storage errors map to 404 (not
found), 409 (already exists) and 400 (invalid input); rule validation
errors are 400 as well.

# Authentication

WithAuthenticator puts every route except /healthz behind Basic or Bearer
authentication; see the auth package. Read-only principals may only GET.

# Custom Storage Backend

Any storage.Storage implementation can back the server. The sqlite
package provides a persistent one:

	store, err := sqlite.Open("schedules.db")
*/
package server
