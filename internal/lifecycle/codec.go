package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decoder turns raw webhook bodies into typed lifecycle requests.
//
// The zero value is the standard decoder: unknown sub-event kinds inside an
// EVENT body are dropped so that future platform event types do not break
// existing installations. Set StrictEvents to reject them instead.
type Decoder struct {
	StrictEvents bool
}

// DecodeRequest decodes a raw body with the default (lenient) decoder.
func DecodeRequest(body []byte) (Request, error) {
	return Decoder{}.Decode(body)
}

// Decode parses a raw JSON body into exactly one lifecycle request variant,
// selected by the lifecycle discriminator.
func (d Decoder) Decode(body []byte) (Request, error) {
	var envelope Envelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}
	decode, ok := requestDecoders[envelope.Lifecycle]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLifecycle, string(envelope.Lifecycle))
	}
	return decode(d, body)
}

// requestDecoders maps each lifecycle discriminator to the decoder for the
// matching request variant.
var requestDecoders = map[Phase]func(Decoder, []byte) (Request, error){
	PhaseConfirmation:  decodeConfirmation,
	PhaseConfiguration: decodeConfiguration,
	PhaseInstall:       decodeInstall,
	PhaseUpdate:        decodeUpdate,
	PhaseUninstall:     decodeUninstall,
	PhaseOAuthCallback: decodeOAuthCallback,
	PhaseEvent:         decodeEvent,
}

func decodeConfirmation(_ Decoder, body []byte) (Request, error) {
	var req ConfirmationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	if req.ConfirmationData.ConfirmationURL == "" {
		return nil, NewSchemaError("confirmationData.confirmationUrl", "required field is missing")
	}
	return &req, nil
}

func decodeConfiguration(_ Decoder, body []byte) (Request, error) {
	var req ConfigurationRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	switch req.ConfigurationData.Phase {
	case ConfigPhaseInitialize, ConfigPhasePage:
		return &req, nil
	default:
		return nil, NewSchemaError("configurationData.phase",
			"unknown configuration phase %q", string(req.ConfigurationData.Phase))
	}
}

func decodeInstall(_ Decoder, body []byte) (Request, error) {
	var req InstallRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	if req.InstallData.AuthToken == "" {
		return nil, NewSchemaError("installData.authToken", "required field is missing")
	}
	if err := validateInstalledApp("installData.installedApp", &req.InstallData.InstalledApp); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeUpdate(_ Decoder, body []byte) (Request, error) {
	var req UpdateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	if req.UpdateData.AuthToken == "" {
		return nil, NewSchemaError("updateData.authToken", "required field is missing")
	}
	if err := validateInstalledApp("updateData.installedApp", &req.UpdateData.InstalledApp); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeUninstall(_ Decoder, body []byte) (Request, error) {
	var req UninstallRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	if err := validateInstalledApp("uninstallData.installedApp", &req.UninstallData.InstalledApp); err != nil {
		return nil, err
	}
	return &req, nil
}

func decodeOAuthCallback(_ Decoder, body []byte) (Request, error) {
	var req OAuthCallbackRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, wrapSchemaError(err)
	}
	if req.OAuthCallbackData.InstalledAppID == "" {
		return nil, NewSchemaError("oAuthCallbackData.installedAppId", "required field is missing")
	}
	return &req, nil
}

func decodeEvent(d Decoder, body []byte) (Request, error) {
	// Sub-events are decoded element-wise so an unrecognized eventType can be
	// skipped without failing the whole request.
	var wire struct {
		Envelope
		EventData struct {
			AuthToken    string            `json:"authToken"`
			InstalledApp InstalledApp      `json:"installedApp"`
			Events       []json.RawMessage `json:"events"`
		} `json:"eventData"`
		Settings map[string]any `json:"settings"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, wrapSchemaError(err)
	}
	if wire.EventData.AuthToken == "" {
		return nil, NewSchemaError("eventData.authToken", "required field is missing")
	}
	if err := validateInstalledApp("eventData.installedApp", &wire.EventData.InstalledApp); err != nil {
		return nil, err
	}

	events := make([]Event, 0, len(wire.EventData.Events))
	for _, raw := range wire.EventData.Events {
		var head struct {
			EventType EventType `json:"eventType"`
		}
		if err := json.Unmarshal(raw, &head); err != nil {
			return nil, NewSchemaError("eventData.events.eventType", "event type is not a string")
		}
		if !knownEventTypes[head.EventType] {
			if d.StrictEvents {
				return nil, NewSchemaError("eventData.events.eventType",
					"unknown event type %q", string(head.EventType))
			}
			continue
		}
		var event Event
		if err := json.Unmarshal(raw, &event); err != nil {
			return nil, wrapSchemaError(err)
		}
		events = append(events, event)
	}

	return &EventRequest{
		Envelope: wire.Envelope,
		EventData: EventData{
			AuthToken:    wire.EventData.AuthToken,
			InstalledApp: wire.EventData.InstalledApp,
			Events:       events,
		},
		Settings: wire.Settings,
	}, nil
}

func validateInstalledApp(field string, app *InstalledApp) error {
	if app.InstalledAppID == "" {
		return NewSchemaError(field+".installedAppId", "required field is missing")
	}
	if app.LocationID == "" {
		return NewSchemaError(field+".locationId", "required field is missing")
	}
	return nil
}

// wrapSchemaError converts payload-level unmarshal failures into SchemaErrors
// naming the offending field where the standard library tells us which one.
func wrapSchemaError(err error) error {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) {
		return schemaErr
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return NewSchemaError(typeErr.Field, "expected %s, got %s", typeErr.Type, typeErr.Value)
	}
	return &SchemaError{Detail: err.Error()}
}

// EncodeResponse serializes a typed response to the exact JSON shape the
// platform expects for its phase.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	return data, nil
}
