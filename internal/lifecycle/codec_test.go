package lifecycle

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const confirmationBody = `{
	"lifecycle": "CONFIRMATION",
	"executionId": "8F8FA33E-2A5B-4BC5-826C-4B2AB73FE9DD",
	"appId": "fd9949ee-a3bf-4069-b4b3-3e9c1c922e29",
	"locale": "en",
	"version": "0.1.0",
	"confirmationData": {
		"appId": "fd9949ee-a3bf-4069-b4b3-3e9c1c922e29",
		"confirmationUrl": "https://api.smartthings.com/apps/confirm?token=xxx"
	},
	"settings": {}
}`

const installBody = `{
	"lifecycle": "INSTALL",
	"executionId": "b328f242-c602-4204-8d73-33c48ae180af",
	"locale": "en",
	"version": "1.0.0",
	"installData": {
		"authToken": "auth-token-value",
		"refreshToken": "refresh-token-value",
		"installedApp": {
			"installedAppId": "d692699d-e7a6-400d-a0b7-d5be96e7a564",
			"locationId": "e675a3d9-2499-406c-86dc-8a492a886494",
			"config": {
				"contactSensor": [
					{
						"valueType": "DEVICE",
						"deviceConfig": {
							"deviceId": "e457978e-5e37-43e6-979d-18112e12c961",
							"componentId": "main"
						}
					}
				],
				"minutes": [
					{
						"valueType": "STRING",
						"stringConfig": {
							"value": "5"
						}
					}
				]
			},
			"permissions": ["r:devices:e457978e-5e37-43e6-979d-18112e12c961"]
		}
	},
	"settings": {}
}`

const eventBody = `{
	"lifecycle": "EVENT",
	"executionId": "b328f242-c602-4204-8d73-33c48ae180af",
	"locale": "en",
	"version": "1.0.0",
	"eventData": {
		"authToken": "auth-token-value",
		"installedApp": {
			"installedAppId": "d692699d-e7a6-400d-a0b7-d5be96e7a564",
			"locationId": "e675a3d9-2499-406c-86dc-8a492a886494",
			"config": {}
		},
		"events": [
			{
				"eventTime": "2017-09-13T04:18:12.469Z",
				"eventType": "DEVICE_EVENT",
				"deviceEvent": {
					"deviceId": "e457978e-5e37-43e6-979d-18112e12c961",
					"componentId": "main",
					"capability": "contactSensor",
					"attribute": "contact",
					"value": "open",
					"stateChange": true
				}
			},
			{
				"eventType": "TIMER_EVENT",
				"timerEvent": {
					"eventId": "sched-1",
					"name": "lights_off_timeout",
					"type": "CRON",
					"time": "2017-09-13T04:18:12.469Z",
					"expression": "0 * * * ? *"
				}
			}
		]
	},
	"settings": {}
}`

func TestDecodeConfirmation(t *testing.T) {
	request, err := DecodeRequest([]byte(confirmationBody))
	require.NoError(t, err)

	req, ok := request.(*ConfirmationRequest)
	require.True(t, ok, "expected *ConfirmationRequest, got %T", request)

	assert.Equal(t, PhaseConfirmation, req.Phase())
	assert.Equal(t, "8F8FA33E-2A5B-4BC5-826C-4B2AB73FE9DD", req.ExecutionID)
	assert.Equal(t, "fd9949ee-a3bf-4069-b4b3-3e9c1c922e29", req.ConfirmationData.AppID)
	assert.Equal(t, "https://api.smartthings.com/apps/confirm?token=xxx", req.ConfirmationData.ConfirmationURL)
}

func TestDecodeConfirmationMissingURL(t *testing.T) {
	body := `{
		"lifecycle": "CONFIRMATION",
		"executionId": "x",
		"locale": "en",
		"version": "0.1.0",
		"confirmationData": {"appId": "fd9949ee"}
	}`
	_, err := DecodeRequest([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "confirmationData.confirmationUrl", schemaErr.Field)
}

func TestDecodeConfiguration(t *testing.T) {
	tests := []struct {
		name  string
		phase string
	}{
		{name: "initialize", phase: "INITIALIZE"},
		{name: "page", phase: "PAGE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := `{
				"lifecycle": "CONFIGURATION",
				"executionId": "x",
				"locale": "en",
				"version": "1.0.0",
				"configurationData": {
					"installedAppId": "string",
					"phase": "` + tt.phase + `",
					"pageId": "1",
					"previousPageId": "",
					"config": {}
				},
				"settings": {}
			}`
			request, err := DecodeRequest([]byte(body))
			require.NoError(t, err)

			req, ok := request.(*ConfigurationRequest)
			require.True(t, ok)
			assert.Equal(t, ConfigPhase(tt.phase), req.ConfigurationData.Phase)
		})
	}
}

func TestDecodeConfigurationBadPhase(t *testing.T) {
	body := `{
		"lifecycle": "CONFIGURATION",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"configurationData": {"installedAppId": "y", "phase": "BOGUS", "pageId": "", "previousPageId": "", "config": {}}
	}`
	_, err := DecodeRequest([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "configurationData.phase", schemaErr.Field)
}

func TestDecodeInstall(t *testing.T) {
	request, err := DecodeRequest([]byte(installBody))
	require.NoError(t, err)

	req, ok := request.(*InstallRequest)
	require.True(t, ok)

	assert.Equal(t, "auth-token-value", req.InstallData.AuthToken)
	assert.Equal(t, "d692699d-e7a6-400d-a0b7-d5be96e7a564", req.InstalledAppID())
	assert.Equal(t, "e675a3d9-2499-406c-86dc-8a492a886494", req.LocationID())

	app := req.InstallData.InstalledApp
	devices, err := app.Devices("contactSensor")
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "e457978e-5e37-43e6-979d-18112e12c961", devices[0].DeviceID)
	assert.Equal(t, "main", devices[0].ComponentID)

	minutes, err := app.IntValue("minutes")
	require.NoError(t, err)
	assert.Equal(t, 5, minutes)
}

func TestDecodeInstallMissingAuthToken(t *testing.T) {
	body := `{
		"lifecycle": "INSTALL",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"installData": {
			"installedApp": {"installedAppId": "a", "locationId": "b", "config": {}}
		}
	}`
	_, err := DecodeRequest([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "installData.authToken", schemaErr.Field)
}

func TestDecodeUpdate(t *testing.T) {
	body := `{
		"lifecycle": "UPDATE",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"updateData": {
			"authToken": "token",
			"refreshToken": "refresh",
			"installedApp": {"installedAppId": "a", "locationId": "b", "config": {}},
			"previousConfig": {},
			"previousPermissions": []
		},
		"settings": {}
	}`
	request, err := DecodeRequest([]byte(body))
	require.NoError(t, err)

	req, ok := request.(*UpdateRequest)
	require.True(t, ok)
	assert.Equal(t, "a", req.InstalledAppID())
	assert.Equal(t, "b", req.LocationID())
}

func TestDecodeUninstall(t *testing.T) {
	body := `{
		"lifecycle": "UNINSTALL",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"uninstallData": {
			"installedApp": {"installedAppId": "a", "locationId": "b", "config": {}}
		},
		"settings": {}
	}`
	request, err := DecodeRequest([]byte(body))
	require.NoError(t, err)

	req, ok := request.(*UninstallRequest)
	require.True(t, ok)
	assert.Equal(t, "a", req.UninstallData.InstalledApp.InstalledAppID)
}

func TestDecodeOAuthCallback(t *testing.T) {
	body := `{
		"lifecycle": "OAUTH_CALLBACK",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"oAuthCallbackData": {
			"installedAppId": "a",
			"urlPath": "string"
		}
	}`
	request, err := DecodeRequest([]byte(body))
	require.NoError(t, err)

	req, ok := request.(*OAuthCallbackRequest)
	require.True(t, ok)
	assert.Equal(t, "a", req.OAuthCallbackData.InstalledAppID)
	assert.Equal(t, "string", req.OAuthCallbackData.URLPath)
}

func TestDecodeEvent(t *testing.T) {
	request, err := DecodeRequest([]byte(eventBody))
	require.NoError(t, err)

	req, ok := request.(*EventRequest)
	require.True(t, ok)

	require.Len(t, req.EventData.Events, 2)
	assert.Equal(t, EventTypeDevice, req.EventData.Events[0].EventType)
	assert.Equal(t, EventTypeTimer, req.EventData.Events[1].EventType)

	require.NotNil(t, req.EventData.Events[0].EventTime)
	assert.Equal(t, 2017, req.EventData.Events[0].EventTime.Year())

	device := req.EventData.ForType(EventTypeDevice)
	require.Len(t, device, 1)
	assert.Equal(t, "open", device[0]["value"])

	open := req.EventData.Filter(EventTypeDevice, func(p map[string]any) bool {
		return p["attribute"] == "contact" && p["value"] == "open"
	})
	assert.Len(t, open, 1)

	closed := req.EventData.Filter(EventTypeDevice, func(p map[string]any) bool {
		return p["value"] == "closed"
	})
	assert.Empty(t, closed)
}

func TestDecodeEventUnknownTypeDropped(t *testing.T) {
	body := `{
		"lifecycle": "EVENT",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"eventData": {
			"authToken": "token",
			"installedApp": {"installedAppId": "a", "locationId": "b", "config": {}},
			"events": [
				{"eventType": "FUTURE_PLATFORM_EVENT", "futureEvent": {}},
				{"eventType": "MODE_EVENT", "modeEvent": {"modeId": "night"}}
			]
		}
	}`
	request, err := DecodeRequest([]byte(body))
	require.NoError(t, err)

	req := request.(*EventRequest)
	require.Len(t, req.EventData.Events, 1)
	assert.Equal(t, EventTypeMode, req.EventData.Events[0].EventType)
}

func TestDecodeEventUnknownTypeStrict(t *testing.T) {
	body := `{
		"lifecycle": "EVENT",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"eventData": {
			"authToken": "token",
			"installedApp": {"installedAppId": "a", "locationId": "b", "config": {}},
			"events": [{"eventType": "FUTURE_PLATFORM_EVENT"}]
		}
	}`
	_, err := Decoder{StrictEvents: true}.Decode([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "eventData.events.eventType", schemaErr.Field)
}

func TestDecodeInvalidJSON(t *testing.T) {
	_, err := DecodeRequest([]byte("this is not json"))
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestDecodeUnknownLifecycle(t *testing.T) {
	body := `{"lifecycle": "SOMETHING_ELSE", "executionId": "x", "locale": "en", "version": "1.0.0"}`
	_, err := DecodeRequest([]byte(body))
	assert.ErrorIs(t, err, ErrUnknownLifecycle)
}

func TestDecodeMissingInstalledAppFields(t *testing.T) {
	body := `{
		"lifecycle": "INSTALL",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"installData": {
			"authToken": "token",
			"installedApp": {"installedAppId": "a", "config": {}}
		}
	}`
	_, err := DecodeRequest([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "installData.installedApp.locationId", schemaErr.Field)
}

func TestDecodeBadConfigValue(t *testing.T) {
	body := `{
		"lifecycle": "INSTALL",
		"executionId": "x",
		"locale": "en",
		"version": "1.0.0",
		"installData": {
			"authToken": "token",
			"installedApp": {
				"installedAppId": "a",
				"locationId": "b",
				"config": {"sensor": [{"valueType": "DEVICE"}]}
			}
		}
	}`
	_, err := DecodeRequest([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, "deviceConfig", schemaErr.Field)
}

func TestEncodeResponses(t *testing.T) {
	tests := []struct {
		name     string
		response Response
		want     string
	}{
		{name: "install", response: NewInstallResponse(), want: `{"installData":{}}`},
		{name: "update", response: NewUpdateResponse(), want: `{"updateData":{}}`},
		{name: "uninstall", response: NewUninstallResponse(), want: `{"uninstallData":{}}`},
		{name: "event", response: NewEventResponse(), want: `{"eventData":{}}`},
		{name: "oauth", response: NewOAuthCallbackResponse(), want: `{"oAuthCallbackData":{}}`},
		{
			name:     "confirmation",
			response: ConfirmationResponse{TargetURL: "https://example.com/smartapp"},
			want:     `{"targetUrl":"https://example.com/smartapp"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := EncodeResponse(tt.response)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}

func TestEncodeConfigurationInitResponse(t *testing.T) {
	resp := ConfigurationInitResponse{
		ConfigurationData: ConfigInitData{
			Initialize: ConfigInit{
				ID:          "app",
				Name:        "My App",
				Description: "Does things",
				Permissions: []string{"r:devices:*"},
				FirstPageID: "1",
			},
		},
	}
	data, err := EncodeResponse(resp)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	init := decoded["configurationData"].(map[string]any)["initialize"].(map[string]any)
	assert.Equal(t, "app", init["id"])
	assert.Equal(t, "1", init["firstPageId"])
}

func TestInstalledAppValueAccessors(t *testing.T) {
	app := InstalledApp{
		InstalledAppID: "a",
		LocationID:     "b",
		Config: ConfigBundle{
			"retries": {{ValueType: ValueTypeString, StringConfig: &StringValue{Value: "3"}}},
			"ratio":   {{ValueType: ValueTypeString, StringConfig: &StringValue{Value: "0.75"}}},
			"enabled": {{ValueType: ValueTypeString, StringConfig: &StringValue{Value: "true"}}},
		},
	}

	retries, err := app.IntValue("retries")
	require.NoError(t, err)
	assert.Equal(t, 3, retries)

	ratio, err := app.FloatValue("ratio")
	require.NoError(t, err)
	assert.InDelta(t, 0.75, ratio, 0.0001)

	enabled, err := app.BoolValue("enabled")
	require.NoError(t, err)
	assert.True(t, enabled)

	_, err = app.StringValue("missing")
	assert.Error(t, err)

	_, err = app.IntValue("ratio")
	assert.Error(t, err)
}

func TestTimestampRoundTrip(t *testing.T) {
	ts, err := ParseTimestamp("2017-09-13T04:18:12.469Z")
	require.NoError(t, err)

	data, err := json.Marshal(ts)
	require.NoError(t, err)
	assert.Equal(t, `"2017-09-13T04:18:12.469Z"`, string(data))
}

func TestTimestampSecondsPrecision(t *testing.T) {
	ts, err := ParseTimestamp("2017-09-13T04:18:12Z")
	require.NoError(t, err)
	assert.Equal(t, 12, ts.Second())
}

func TestTimestampEpochMeansNow(t *testing.T) {
	for _, raw := range []string{"1970-01-01T00:00:00.000Z", "1970-01-01T00:00:00Z"} {
		ts, err := ParseTimestamp(raw)
		require.NoError(t, err)
		assert.Greater(t, ts.Year(), 2020, "epoch should be replaced with the current time")
	}
}

func TestTimestampBadFormat(t *testing.T) {
	_, err := ParseTimestamp("Wed, 13 Sep 2017 04:18:12 GMT")
	assert.Error(t, err)

	var event Event
	err = json.Unmarshal([]byte(`{"eventTime": 1505276292, "eventType": "TIMER_EVENT"}`), &event)
	assert.Error(t, err, "numeric timestamps are not part of the wire format")
}
