// Package signature verifies the Joyent-style HTTP signatures the platform
// attaches to every lifecycle request.
//
// See: https://github.com/TritonDataCenter/node-http-signature/blob/master/http_signing.md
//
// Verification is a hard gate in front of the dispatcher: a request whose
// signature cannot be validated is rejected before its body is ever decoded.
// Public signing keys are fetched from the platform keyserver by key id and
// held in an in-process KeyCache with a bounded TTL. Cache refresh is
// single-flight per key id, so a burst of concurrent requests arriving with
// an uncached key id costs exactly one network fetch. Fetches carry a timeout
// and a small bounded retry with backoff; a key that cannot be retrieved
// fails verification with ErrKeyUnavailable rather than hanging the request.
package signature
