// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every handler uses these helpers instead of writing raw
// http.ResponseWriter calls, so that success and failure bodies share one
// envelope: {"success": bool, "message": string, ...}.
package httputil
