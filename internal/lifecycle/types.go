package lifecycle

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Envelope carries the fields shared by every lifecycle request.
type Envelope struct {
	Lifecycle   Phase  `json:"lifecycle"`
	ExecutionID string `json:"executionId"`
	Locale      string `json:"locale"`
	Version     string `json:"version"`
}

// Request is a decoded lifecycle request of exactly one phase.
type Request interface {
	Phase() Phase
}

// Response is a typed lifecycle response ready for encoding.
type Response interface {
	lifecycleResponse()
}

// DeviceValue references a single device component.
type DeviceValue struct {
	DeviceID    string `json:"deviceId" yaml:"deviceId"`
	ComponentID string `json:"componentId" yaml:"componentId"`
}

// StringValue holds a plain string config value.
type StringValue struct {
	Value string `json:"value" yaml:"value"`
}

// ConfigValue is one typed value chosen for a declared setting. Exactly one
// of DeviceConfig or StringConfig is set, selected by ValueType.
type ConfigValue struct {
	ValueType    ValueType    `json:"valueType" yaml:"valueType"`
	DeviceConfig *DeviceValue `json:"deviceConfig,omitempty" yaml:"deviceConfig,omitempty"`
	StringConfig *StringValue `json:"stringConfig,omitempty" yaml:"stringConfig,omitempty"`
}

// UnmarshalJSON validates the valueType discriminator and that the matching
// payload is present.
func (v *ConfigValue) UnmarshalJSON(data []byte) error {
	type alias ConfigValue
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.ValueType {
	case ValueTypeDevice:
		if raw.DeviceConfig == nil {
			return NewSchemaError("deviceConfig", "missing for valueType DEVICE")
		}
	case ValueTypeString:
		if raw.StringConfig == nil {
			return NewSchemaError("stringConfig", "missing for valueType STRING")
		}
	default:
		return NewSchemaError("valueType", "unknown config value type %q", string(raw.ValueType))
	}
	*v = ConfigValue(raw)
	return nil
}

// ConfigBundle maps setting ids to the ordered values a user chose for them.
type ConfigBundle map[string][]ConfigValue

// InstalledApp is the installed application instance delivered on
// INSTALL, UPDATE, UNINSTALL and EVENT requests.
type InstalledApp struct {
	InstalledAppID string       `json:"installedAppId"`
	LocationID     string       `json:"locationId"`
	Config         ConfigBundle `json:"config"`
	Permissions    []string     `json:"permissions,omitempty"`
}

// Devices returns the devices chosen for a named setting.
func (a *InstalledApp) Devices(key string) ([]DeviceValue, error) {
	values, ok := a.Config[key]
	if !ok {
		return nil, fmt.Errorf("config value not found: %s", key)
	}
	devices := make([]DeviceValue, 0, len(values))
	for _, v := range values {
		if v.DeviceConfig == nil {
			return nil, fmt.Errorf("config value %s is not a device", key)
		}
		devices = append(devices, *v.DeviceConfig)
	}
	return devices, nil
}

// StringValue returns the first value for a named setting as a string.
func (a *InstalledApp) StringValue(key string) (string, error) {
	values, ok := a.Config[key]
	if !ok || len(values) == 0 {
		return "", fmt.Errorf("config value not found: %s", key)
	}
	if values[0].StringConfig == nil {
		return "", fmt.Errorf("config value %s is not a string", key)
	}
	return values[0].StringConfig.Value, nil
}

// BoolValue returns a named config value interpreted as a boolean.
func (a *InstalledApp) BoolValue(key string) (bool, error) {
	raw, err := a.StringValue(key)
	if err != nil {
		return false, err
	}
	return raw == string(BooleanTrue), nil
}

// IntValue returns a named config value interpreted as an integer.
func (a *InstalledApp) IntValue(key string) (int, error) {
	raw, err := a.StringValue(key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config value %s is not an integer: %w", key, err)
	}
	return parsed, nil
}

// FloatValue returns a named config value interpreted as a float.
func (a *InstalledApp) FloatValue(key string) (float64, error) {
	raw, err := a.StringValue(key)
	if err != nil {
		return 0, err
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("config value %s is not a number: %w", key, err)
	}
	return parsed, nil
}

// ConfirmationData carries the app id and URL to be confirmed.
type ConfirmationData struct {
	AppID           string `json:"appId"`
	ConfirmationURL string `json:"confirmationUrl"`
}

// ConfirmationRequest is the CONFIRMATION phase request.
type ConfirmationRequest struct {
	Envelope
	AppID            string           `json:"appId"`
	ConfirmationData ConfirmationData `json:"confirmationData"`
	Settings         map[string]any   `json:"settings,omitempty"`
}

func (r *ConfirmationRequest) Phase() Phase { return PhaseConfirmation }

// ConfirmationResponse acknowledges a CONFIRMATION request with the app's
// registered target URL.
type ConfirmationResponse struct {
	TargetURL string `json:"targetUrl"`
}

func (ConfirmationResponse) lifecycleResponse() {}

// ConfigRequestData is the configurationData block of a CONFIGURATION request.
type ConfigRequestData struct {
	InstalledAppID string       `json:"installedAppId"`
	Phase          ConfigPhase  `json:"phase"`
	PageID         string       `json:"pageId"`
	PreviousPageID string       `json:"previousPageId"`
	Config         ConfigBundle `json:"config"`
}

// ConfigurationRequest is the CONFIGURATION phase request.
type ConfigurationRequest struct {
	Envelope
	ConfigurationData ConfigRequestData `json:"configurationData"`
	Settings          map[string]any    `json:"settings,omitempty"`
}

func (r *ConfigurationRequest) Phase() Phase { return PhaseConfiguration }

// ConfigInit is the app identity returned for CONFIGURATION/INITIALIZE.
type ConfigInit struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
	FirstPageID string   `json:"firstPageId"`
}

// ConfigurationInitResponse is the CONFIGURATION/INITIALIZE response.
type ConfigurationInitResponse struct {
	ConfigurationData ConfigInitData `json:"configurationData"`
}

func (ConfigurationInitResponse) lifecycleResponse() {}

// ConfigInitData wraps the initialize block.
type ConfigInitData struct {
	Initialize ConfigInit `json:"initialize"`
}

// Page is a fully navigable page as returned for CONFIGURATION/PAGE.
type Page struct {
	PageID         string    `json:"pageId"`
	Name           string    `json:"name"`
	PreviousPageID *string   `json:"previousPageId"`
	NextPageID     *string   `json:"nextPageId"`
	Complete       bool      `json:"complete"`
	Sections       []Section `json:"sections"`
}

// ConfigPageData wraps the page block.
type ConfigPageData struct {
	Page Page `json:"page"`
}

// ConfigurationPageResponse is the CONFIGURATION/PAGE response.
type ConfigurationPageResponse struct {
	ConfigurationData ConfigPageData `json:"configurationData"`
}

func (ConfigurationPageResponse) lifecycleResponse() {}

// InstallData carries the auth material and installed app for INSTALL.
type InstallData struct {
	AuthToken    string       `json:"authToken"`
	RefreshToken string       `json:"refreshToken"`
	InstalledApp InstalledApp `json:"installedApp"`
}

// InstallRequest is the INSTALL phase request.
type InstallRequest struct {
	Envelope
	InstallData InstallData    `json:"installData"`
	Settings    map[string]any `json:"settings,omitempty"`
}

func (r *InstallRequest) Phase() Phase { return PhaseInstall }

// InstalledAppID returns the installed application id.
func (r *InstallRequest) InstalledAppID() string {
	return r.InstallData.InstalledApp.InstalledAppID
}

// LocationID returns the installed location id.
func (r *InstallRequest) LocationID() string {
	return r.InstallData.InstalledApp.LocationID
}

// InstallResponse is the fixed empty acknowledgment for INSTALL.
type InstallResponse struct {
	InstallData map[string]any `json:"installData"`
}

func (InstallResponse) lifecycleResponse() {}

// NewInstallResponse builds the empty INSTALL acknowledgment.
func NewInstallResponse() InstallResponse {
	return InstallResponse{InstallData: map[string]any{}}
}

// UpdateData carries the auth material, installed app and prior state for UPDATE.
type UpdateData struct {
	AuthToken           string       `json:"authToken"`
	RefreshToken        string       `json:"refreshToken"`
	InstalledApp        InstalledApp `json:"installedApp"`
	PreviousConfig      ConfigBundle `json:"previousConfig,omitempty"`
	PreviousPermissions []string     `json:"previousPermissions,omitempty"`
}

// UpdateRequest is the UPDATE phase request.
type UpdateRequest struct {
	Envelope
	UpdateData UpdateData     `json:"updateData"`
	Settings   map[string]any `json:"settings,omitempty"`
}

func (r *UpdateRequest) Phase() Phase { return PhaseUpdate }

// InstalledAppID returns the installed application id.
func (r *UpdateRequest) InstalledAppID() string {
	return r.UpdateData.InstalledApp.InstalledAppID
}

// LocationID returns the installed location id.
func (r *UpdateRequest) LocationID() string {
	return r.UpdateData.InstalledApp.LocationID
}

// UpdateResponse is the fixed empty acknowledgment for UPDATE.
type UpdateResponse struct {
	UpdateData map[string]any `json:"updateData"`
}

func (UpdateResponse) lifecycleResponse() {}

// NewUpdateResponse builds the empty UPDATE acknowledgment.
func NewUpdateResponse() UpdateResponse {
	return UpdateResponse{UpdateData: map[string]any{}}
}

// UninstallData carries the installed app being removed.
type UninstallData struct {
	InstalledApp InstalledApp `json:"installedApp"`
}

// UninstallRequest is the UNINSTALL phase request.
type UninstallRequest struct {
	Envelope
	UninstallData UninstallData  `json:"uninstallData"`
	Settings      map[string]any `json:"settings,omitempty"`
}

func (r *UninstallRequest) Phase() Phase { return PhaseUninstall }

// UninstallResponse is the fixed empty acknowledgment for UNINSTALL.
type UninstallResponse struct {
	UninstallData map[string]any `json:"uninstallData"`
}

func (UninstallResponse) lifecycleResponse() {}

// NewUninstallResponse builds the empty UNINSTALL acknowledgment.
func NewUninstallResponse() UninstallResponse {
	return UninstallResponse{UninstallData: map[string]any{}}
}

// OAuthCallbackData carries the callback code/state path for OAUTH_CALLBACK.
type OAuthCallbackData struct {
	InstalledAppID string `json:"installedAppId"`
	URLPath        string `json:"urlPath"`
}

// OAuthCallbackRequest is the OAUTH_CALLBACK phase request.
type OAuthCallbackRequest struct {
	Envelope
	OAuthCallbackData OAuthCallbackData `json:"oAuthCallbackData"`
}

func (r *OAuthCallbackRequest) Phase() Phase { return PhaseOAuthCallback }

// OAuthCallbackResponse is the fixed empty acknowledgment for OAUTH_CALLBACK.
type OAuthCallbackResponse struct {
	OAuthCallbackData map[string]any `json:"oAuthCallbackData"`
}

func (OAuthCallbackResponse) lifecycleResponse() {}

// NewOAuthCallbackResponse builds the empty OAUTH_CALLBACK acknowledgment.
func NewOAuthCallbackResponse() OAuthCallbackResponse {
	return OAuthCallbackResponse{OAuthCallbackData: map[string]any{}}
}

// EventData carries the auth token, installed app and sub-events for EVENT.
type EventData struct {
	AuthToken    string       `json:"authToken"`
	InstalledApp InstalledApp `json:"installedApp"`
	Events       []Event      `json:"events"`
}

// ForType returns the payloads of all contained events of the given type.
func (d *EventData) ForType(eventType EventType) []map[string]any {
	var payloads []map[string]any
	for _, event := range d.Events {
		if event.EventType != eventType {
			continue
		}
		if payload := event.Payload(); payload != nil {
			payloads = append(payloads, payload)
		}
	}
	return payloads
}

// Filter returns payloads of the given type matching the predicate. A nil
// predicate matches everything.
func (d *EventData) Filter(eventType EventType, predicate func(map[string]any) bool) []map[string]any {
	var matched []map[string]any
	for _, payload := range d.ForType(eventType) {
		if predicate == nil || predicate(payload) {
			matched = append(matched, payload)
		}
	}
	return matched
}

// EventRequest is the EVENT phase request.
type EventRequest struct {
	Envelope
	EventData EventData      `json:"eventData"`
	Settings  map[string]any `json:"settings,omitempty"`
}

func (r *EventRequest) Phase() Phase { return PhaseEvent }

// InstalledAppID returns the installed application id.
func (r *EventRequest) InstalledAppID() string {
	return r.EventData.InstalledApp.InstalledAppID
}

// LocationID returns the installed location id.
func (r *EventRequest) LocationID() string {
	return r.EventData.InstalledApp.LocationID
}

// EventResponse is the fixed empty acknowledgment for EVENT.
type EventResponse struct {
	EventData map[string]any `json:"eventData"`
}

func (EventResponse) lifecycleResponse() {}

// NewEventResponse builds the empty EVENT acknowledgment.
func NewEventResponse() EventResponse {
	return EventResponse{EventData: map[string]any{}}
}
