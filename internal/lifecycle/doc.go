// Package lifecycle models the SmartApp webhook protocol: the seven lifecycle
// request/response variants, the installed-app configuration bundle, the
// sub-event model for EVENT requests, and the static app definition.
//
// # Wire format
//
// The platform posts a JSON envelope whose `lifecycle` field selects the
// payload shape. Decoding is table-driven: each discriminator value maps to a
// decoder for the matching variant, so every well-formed envelope decodes to
// exactly one Request and unknown discriminators fail with ErrUnknownLifecycle.
// Field names are camelCase on the wire, and timestamps are ISO-8601 UTC with
// the quirks the platform actually exhibits (optional milliseconds, epoch
// meaning "unset").
//
// # Forward compatibility
//
// Sub-events inside an EVENT body carry their own `eventType` discriminator.
// Unrecognized kinds are dropped during decode rather than failing the
// request, so new platform event types do not break existing installations.
// Decoder.StrictEvents turns this into a SchemaError for callers that prefer
// strict validation.
//
// # Definitions
//
// Definition describes the app's declared configuration UI. It round-trips
// losslessly between Go values and JSON or YAML documents with camelCase keys
// and an explicit `type` discriminator per setting, so definitions can be
// authored out-of-band and checked into source control.
package lifecycle
