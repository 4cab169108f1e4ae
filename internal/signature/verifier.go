package signature

import (
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Headers the platform sets on every lifecycle request.
const (
	AuthorizationHeader = "Authorization"
	CorrelationIDHeader = "X-ST-Correlation"
	DateHeader          = "Date"
	DigestHeader        = "Digest"
)

// Verification failure kinds, matched with errors.Is by the HTTP tier.
var (
	ErrMalformedSignature = errors.New("malformed signature")
	ErrKeyUnavailable     = errors.New("signing key unavailable")
	ErrInvalidSignature   = errors.New("invalid signature")
)

// Only rsa-sha256 is supported; it is the only algorithm the platform uses,
// and limiting to one keeps the implementation small enough to verify against
// the published Joyent test values.
const supportedAlgorithm = "rsa-sha256"

var attributePattern = regexp.MustCompile(`([A-Za-z]+)="([^"]*)"`)

// signingAttributes are the parsed fields of the Authorization header.
type signingAttributes struct {
	keyID     string
	algorithm string
	headers   []string
	signature string
}

// Verifier validates Joyent-style HTTP signatures on lifecycle requests.
//
// The request target is derived from the app's registered target URL rather
// than the served path, because the path the server sees may differ from what
// was signed when requests are forwarded through a proxy.
type Verifier struct {
	keys      *KeyCache
	target    string
	clockSkew time.Duration

	now func() time.Time
}

// NewVerifier builds a verifier. targetURL is the definition's registered
// endpoint; clockSkew bounds how stale a request Date may be (0 disables the
// date check).
func NewVerifier(keys *KeyCache, targetURL string, clockSkew time.Duration) (*Verifier, error) {
	target, err := requestTarget(targetURL)
	if err != nil {
		return nil, err
	}
	return &Verifier{
		keys:      keys,
		target:    target,
		clockSkew: clockSkew,
		now:       time.Now,
	}, nil
}

// Verify checks the request's signature against the exact raw body. It is a
// hard gate: callers must not decode or dispatch the body when it fails.
func (v *Verifier) Verify(ctx context.Context, headers http.Header, body []byte) error {
	attrs, err := parseAuthorization(headers.Get(AuthorizationHeader))
	if err != nil {
		return err
	}

	if err := v.verifyDate(headers); err != nil {
		return err
	}
	if err := verifyDigest(headers, body); err != nil {
		return err
	}

	signingString, err := v.signingString(attrs.headers, headers)
	if err != nil {
		return err
	}
	sig, err := base64.StdEncoding.DecodeString(attrs.signature)
	if err != nil {
		return fmt.Errorf("%w: signature is not base64", ErrMalformedSignature)
	}
	digest := sha256.Sum256([]byte(signingString))

	key, err := v.keys.Get(ctx, attrs.keyID)
	if err != nil {
		return err
	}
	if rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) == nil {
		return nil
	}

	// The mismatch may mean the platform rotated the key out from under the
	// cache. Re-fetch once; any further failure is a real mismatch.
	key, err = v.keys.Refresh(ctx, attrs.keyID)
	if err != nil {
		return err
	}
	if rsa.VerifyPKCS1v15(key, crypto.SHA256, digest[:], sig) != nil {
		return fmt.Errorf("%w: rsa-sha256 verification failed", ErrInvalidSignature)
	}
	return nil
}

// parseAuthorization extracts the signing attributes from an Authorization
// header of the form:
//
//	Signature keyId="key",algorithm="rsa-sha256",headers="date",signature="xxx"
func parseAuthorization(authorization string) (*signingAttributes, error) {
	if !strings.HasPrefix(authorization, "Signature ") {
		return nil, fmt.Errorf("%w: authorization header is not a signature", ErrMalformedSignature)
	}

	fields := make(map[string]string)
	for _, match := range attributePattern.FindAllStringSubmatch(authorization, -1) {
		fields[match[1]] = match[2]
	}
	for _, required := range []string{"keyId", "algorithm", "signature"} {
		if fields[required] == "" {
			return nil, fmt.Errorf("%w: signature does not contain %s", ErrMalformedSignature, required)
		}
	}
	if fields["algorithm"] != supportedAlgorithm {
		return nil, fmt.Errorf("%w: algorithm not supported: %s", ErrMalformedSignature, fields["algorithm"])
	}

	// Per the Joyent spec, the headers attribute defaults to Date.
	signed := fields["headers"]
	if signed == "" {
		signed = "Date"
	}

	return &signingAttributes{
		keyID:     fields["keyId"],
		algorithm: fields["algorithm"],
		headers:   strings.Fields(signed),
		signature: fields["signature"],
	}, nil
}

// signingString reconstructs the string that was signed: one "name: value"
// line per signing header, with (request-target) expanded specially.
func (v *Verifier) signingString(signingHeaders []string, headers http.Header) (string, error) {
	components := make([]string, 0, len(signingHeaders))
	for _, name := range signingHeaders {
		if strings.EqualFold(name, "(request-target)") {
			components = append(components, "(request-target): "+v.target)
			continue
		}
		value := strings.TrimSpace(headers.Get(name))
		if value == "" {
			return "", fmt.Errorf("%w: header not found: %s", ErrMalformedSignature, strings.ToLower(name))
		}
		components = append(components, strings.ToLower(name)+": "+value)
	}
	return strings.Join(components, "\n"), nil
}

// verifyDate enforces the configured clock skew on the request Date header.
func (v *Verifier) verifyDate(headers http.Header) error {
	if v.clockSkew <= 0 {
		return nil
	}
	raw := headers.Get(DateHeader)
	if raw == "" {
		return fmt.Errorf("%w: header not found: date", ErrMalformedSignature)
	}
	date, err := http.ParseTime(raw)
	if err != nil {
		return fmt.Errorf("%w: unparseable date: %s", ErrMalformedSignature, raw)
	}
	skew := v.now().Sub(date)
	if skew < 0 {
		skew = -skew
	}
	if skew > v.clockSkew {
		return fmt.Errorf("%w: request date is not current, skew of %d seconds",
			ErrInvalidSignature, int(skew.Seconds()))
	}
	return nil
}

// verifyDigest checks the Digest header, when present, against the raw body.
// This is what ties the signature to the exact bytes received: any mutation
// of the body after signing changes the digest.
func verifyDigest(headers http.Header, body []byte) error {
	raw := headers.Get(DigestHeader)
	if raw == "" {
		return nil
	}
	value, ok := strings.CutPrefix(raw, "SHA-256=")
	if !ok {
		return fmt.Errorf("%w: unsupported digest algorithm", ErrMalformedSignature)
	}
	sum := sha256.Sum256(body)
	if value != base64.StdEncoding.EncodeToString(sum[:]) {
		return fmt.Errorf("%w: body digest mismatch", ErrInvalidSignature)
	}
	return nil
}

// requestTarget builds the Joyent (request-target) component from the
// registered endpoint URL: lowercased method plus path with query.
func requestTarget(targetURL string) (string, error) {
	parts, err := url.Parse(targetURL)
	if err != nil {
		return "", fmt.Errorf("invalid target URL %q: %w", targetURL, err)
	}
	path := parts.Path
	if parts.RawQuery != "" {
		path += "?" + parts.RawQuery
	}
	// POST is the only method the webhook interface ever uses.
	return "post " + path, nil
}
