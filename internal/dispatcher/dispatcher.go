package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/mattjoyce/smartapp-gw/internal/lifecycle"
	"github.com/mattjoyce/smartapp-gw/internal/signature"
)

// SignatureVerifier is the gate in front of the dispatcher. It is satisfied
// by *signature.Verifier; tests substitute fakes.
type SignatureVerifier interface {
	Verify(ctx context.Context, headers http.Header, body []byte) error
}

// RequestContext carries one inbound lifecycle call: the raw headers and the
// exact raw body bytes, plus the platform correlation id when present.
type RequestContext struct {
	Headers       http.Header
	Body          []byte
	CorrelationID string
}

// NewRequestContext builds a context from raw headers and body, extracting
// the correlation id header.
func NewRequestContext(headers http.Header, body []byte) RequestContext {
	return RequestContext{
		Headers:       headers,
		Body:          body,
		CorrelationID: headers.Get(signature.CorrelationIDHeader),
	}
}

// Dispatcher routes decoded lifecycle requests to built-in protocol behavior
// and the application's event handler. It keeps no state across calls: every
// HTTP call is an independent, idempotent transition.
type Dispatcher struct {
	definition *lifecycle.Definition
	handler    EventHandler
	manager    ConfigManager
	verifier   SignatureVerifier
	decoder    lifecycle.Decoder
	logger     *slog.Logger
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithVerifier installs the signature gate. Without one, signatures are not
// checked; that is intended for local development only.
func WithVerifier(v SignatureVerifier) Option {
	return func(d *Dispatcher) { d.verifier = v }
}

// WithConfigManager replaces the default static configuration manager.
func WithConfigManager(m ConfigManager) Option {
	return func(d *Dispatcher) { d.manager = m }
}

// WithStrictEvents makes unknown sub-event kinds a decode failure instead of
// being silently dropped.
func WithStrictEvents() Option {
	return func(d *Dispatcher) { d.decoder.StrictEvents = true }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// New builds a dispatcher for the given definition and handler.
func New(definition *lifecycle.Definition, handler EventHandler, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		definition: definition,
		handler:    handler,
		manager:    StaticConfigManager{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch processes one lifecycle call: verify the signature, decode the
// body into exactly one request variant, execute the phase's behavior, and
// return the typed response. Verification and decode failures short-circuit
// before any handler callback runs.
func (d *Dispatcher) Dispatch(ctx context.Context, rc RequestContext) (lifecycle.Response, error) {
	if d.verifier != nil {
		if err := d.verifier.Verify(ctx, rc.Headers, rc.Body); err != nil {
			return nil, err
		}
	}

	request, err := d.decoder.Decode(rc.Body)
	if err != nil {
		return nil, err
	}
	d.logger.Info("handling lifecycle request",
		"lifecycle", string(request.Phase()),
		"correlation_id", rc.CorrelationID,
	)
	return d.handleRequest(ctx, rc.CorrelationID, request)
}

func (d *Dispatcher) handleRequest(ctx context.Context, correlationID string, request lifecycle.Request) (lifecycle.Response, error) {
	switch req := request.(type) {
	case *lifecycle.ConfirmationRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleConfirmation(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return d.handleConfirmation(req), nil
	case *lifecycle.ConfigurationRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleConfiguration(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return d.handleConfiguration(req)
	case *lifecycle.InstallRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleInstall(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return lifecycle.NewInstallResponse(), nil
	case *lifecycle.UpdateRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleUpdate(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return lifecycle.NewUpdateResponse(), nil
	case *lifecycle.UninstallRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleUninstall(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return lifecycle.NewUninstallResponse(), nil
	case *lifecycle.OAuthCallbackRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleOAuthCallback(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return lifecycle.NewOAuthCallbackResponse(), nil
	case *lifecycle.EventRequest:
		if err := d.callHandler(req.Phase(), correlationID, d.handler.HandleEvent(ctx, correlationID, req)); err != nil {
			return nil, err
		}
		return lifecycle.NewEventResponse(), nil
	default:
		return nil, fmt.Errorf("%w: unhandled request type %T", lifecycle.ErrUnknownLifecycle, request)
	}
}

// callHandler wraps a handler failure so it is surfaced to the caller rather
// than masked as a successful acknowledgment.
func (d *Dispatcher) callHandler(phase lifecycle.Phase, correlationID string, err error) error {
	if err == nil {
		return nil
	}
	return &lifecycle.HandlerError{Phase: phase, CorrelationID: correlationID, Err: err}
}

func (d *Dispatcher) handleConfirmation(req *lifecycle.ConfirmationRequest) lifecycle.Response {
	d.logger.Info("confirmation requested",
		"app_id", req.ConfirmationData.AppID,
		"confirmation_url", req.ConfirmationData.ConfirmationURL,
	)
	return lifecycle.ConfirmationResponse{TargetURL: d.definition.TargetURL}
}

func (d *Dispatcher) handleConfiguration(req *lifecycle.ConfigurationRequest) (lifecycle.Response, error) {
	if req.ConfigurationData.Phase == lifecycle.ConfigPhaseInitialize {
		return d.manager.HandleInitialize(req, d.definition)
	}
	pageID, err := strconv.Atoi(req.ConfigurationData.PageID)
	if err != nil {
		return nil, lifecycle.NewSchemaError("configurationData.pageId",
			"page id %q is not a number", req.ConfigurationData.PageID)
	}
	return d.manager.HandlePage(req, d.definition, pageID)
}
