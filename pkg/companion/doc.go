// Package companion implements the application layer of the recovery
// companion service: configuration parsing, the HTTP API, token sessions,
// and the server lifecycle.
//
// The application wires the [care] components over a [store.Store] and
// exposes them as a REST API (see [App.Run] for the route table). [Main] is
// the binary entry point; tests construct the same [App] over the in-memory
// store via [NewWithStore] and mount [App.Router] on httptest servers.
package companion
