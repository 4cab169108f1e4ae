// Package webhook exposes the lifecycle dispatcher as a single signed HTTP
// endpoint.
//
// The platform POSTs every lifecycle event to the app's registered target
// URL. Each request is handled independently: body size is enforced, the raw
// bytes are handed to the dispatcher (which gates on the Joyent signature
// before decoding), and the typed response is encoded back as the 200 body.
// Failures map to a minimal JSON error body: signature-stage failures to 401,
// decode- and configuration-stage failures to 400, handler failures and
// anything unexpected to 500. Request logging never includes payloads, since
// lifecycle bodies carry authorization tokens.
package webhook
