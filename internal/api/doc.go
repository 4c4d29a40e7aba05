// Package api contains the HTTP handlers, request/response models, and
// error mapping for the journaling service.
//
// Identity is established by the gateway in front of this service and
// carried on the X-User-ID header; the middleware package turns it into
// a context value that every handler reads. Long-running work (backup
// creation, restoration, media processing) is never done on the request
// path: handlers enqueue jobs and clients poll status endpoints.
package api
