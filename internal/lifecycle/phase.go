package lifecycle

// Phase identifies one of the seven webhook lifecycle event categories.
type Phase string

const (
	PhaseConfirmation  Phase = "CONFIRMATION"
	PhaseConfiguration Phase = "CONFIGURATION"
	PhaseInstall       Phase = "INSTALL"
	PhaseUpdate        Phase = "UPDATE"
	PhaseUninstall     Phase = "UNINSTALL"
	PhaseOAuthCallback Phase = "OAUTH_CALLBACK"
	PhaseEvent         Phase = "EVENT"
)

// ConfigPhase identifies the sub-phase within a CONFIGURATION request.
type ConfigPhase string

const (
	ConfigPhaseInitialize ConfigPhase = "INITIALIZE"
	ConfigPhasePage       ConfigPhase = "PAGE"
)

// ValueType identifies the shape of a config value in an installed-app bundle.
type ValueType string

const (
	ValueTypeDevice ValueType = "DEVICE"
	ValueTypeString ValueType = "STRING"
)

// SettingType identifies the shape of a declared config setting.
type SettingType string

const (
	SettingTypeDevice    SettingType = "DEVICE"
	SettingTypeText      SettingType = "TEXT"
	SettingTypeBoolean   SettingType = "BOOLEAN"
	SettingTypeEnum      SettingType = "ENUM"
	SettingTypeLink      SettingType = "LINK"
	SettingTypePage      SettingType = "PAGE"
	SettingTypeImage     SettingType = "IMAGE"
	SettingTypeIcon      SettingType = "ICON"
	SettingTypeTime      SettingType = "TIME"
	SettingTypeParagraph SettingType = "PARAGRAPH"
	SettingTypeEmail     SettingType = "EMAIL"
	SettingTypeDecimal   SettingType = "DECIMAL"
	SettingTypeNumber    SettingType = "NUMBER"
	SettingTypePhone     SettingType = "PHONE"
	SettingTypeOAuth     SettingType = "OAUTH"
)

// EventType identifies the kind of a sub-event within an EVENT request.
type EventType string

const (
	EventTypeDeviceCommands        EventType = "DEVICE_COMMANDS_EVENT"
	EventTypeDevice                EventType = "DEVICE_EVENT"
	EventTypeDeviceHealth          EventType = "DEVICE_HEALTH_EVENT"
	EventTypeDeviceLifecycle       EventType = "DEVICE_LIFECYCLE_EVENT"
	EventTypeHubHealth             EventType = "HUB_HEALTH_EVENT"
	EventTypeInstalledAppLifecycle EventType = "INSTALLED_APP_LIFECYCLE_EVENT"
	EventTypeMode                  EventType = "MODE_EVENT"
	EventTypeSceneLifecycle        EventType = "SCENE_LIFECYCLE_EVENT"
	EventTypeSecurityArmState      EventType = "SECURITY_ARM_STATE_EVENT"
	EventTypeTimer                 EventType = "TIMER_EVENT"
	EventTypeWeather               EventType = "WEATHER_EVENT"
)

// BooleanValue is the string-typed boolean used by BOOLEAN settings on the wire.
type BooleanValue string

const (
	BooleanTrue  BooleanValue = "true"
	BooleanFalse BooleanValue = "false"
)

var knownEventTypes = map[EventType]bool{
	EventTypeDeviceCommands:        true,
	EventTypeDevice:                true,
	EventTypeDeviceHealth:          true,
	EventTypeDeviceLifecycle:       true,
	EventTypeHubHealth:             true,
	EventTypeInstalledAppLifecycle: true,
	EventTypeMode:                  true,
	EventTypeSceneLifecycle:        true,
	EventTypeSecurityArmState:      true,
	EventTypeTimer:                 true,
	EventTypeWeather:               true,
}
