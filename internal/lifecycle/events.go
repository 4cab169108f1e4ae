package lifecycle

// Event is one sub-event inside an EVENT request. The per-type payloads are
// kept as loose maps: the platform does not publish stable schemas for them,
// and new attributes appear without notice.
type Event struct {
	EventTime *Timestamp `json:"eventTime,omitempty"`
	EventType EventType  `json:"eventType"`

	DeviceEvent                map[string]any `json:"deviceEvent,omitempty"`
	DeviceLifecycleEvent       map[string]any `json:"deviceLifecycleEvent,omitempty"`
	DeviceHealthEvent          map[string]any `json:"deviceHealthEvent,omitempty"`
	DeviceCommandsEvent        map[string]any `json:"deviceCommandsEvent,omitempty"`
	ModeEvent                  map[string]any `json:"modeEvent,omitempty"`
	TimerEvent                 map[string]any `json:"timerEvent,omitempty"`
	SceneLifecycleEvent        map[string]any `json:"sceneLifecycleEvent,omitempty"`
	SecurityArmStateEvent      map[string]any `json:"securityArmStateEvent,omitempty"`
	HubHealthEvent             map[string]any `json:"hubHealthEvent,omitempty"`
	InstalledAppLifecycleEvent map[string]any `json:"installedAppLifecycleEvent,omitempty"`
	WeatherEvent               map[string]any `json:"weatherEvent,omitempty"`
	WeatherData                map[string]any `json:"weatherData,omitempty"`
	AirQualityData             map[string]any `json:"airQualityData,omitempty"`
}

// Payload returns the attribute that matches the event's own type, or nil if
// the platform did not populate it.
func (e *Event) Payload() map[string]any {
	switch e.EventType {
	case EventTypeDeviceCommands:
		return e.DeviceCommandsEvent
	case EventTypeDevice:
		return e.DeviceEvent
	case EventTypeDeviceHealth:
		return e.DeviceHealthEvent
	case EventTypeDeviceLifecycle:
		return e.DeviceLifecycleEvent
	case EventTypeHubHealth:
		return e.HubHealthEvent
	case EventTypeInstalledAppLifecycle:
		return e.InstalledAppLifecycleEvent
	case EventTypeMode:
		return e.ModeEvent
	case EventTypeSceneLifecycle:
		return e.SceneLifecycleEvent
	case EventTypeSecurityArmState:
		return e.SecurityArmStateEvent
	case EventTypeTimer:
		return e.TimerEvent
	case EventTypeWeather:
		return e.WeatherEvent
	}
	return nil
}
