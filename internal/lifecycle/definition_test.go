package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const definitionJSON = `{
	"id": "lights-off",
	"name": "Lights Off",
	"description": "Turn lights off when nobody is around",
	"targetUrl": "https://example.com/smartapp?env=prod",
	"permissions": ["r:devices:*", "x:devices:*"],
	"configPages": [
		{
			"pageName": "Devices",
			"sections": [
				{
					"name": "Sensors",
					"settings": [
						{
							"id": "motionSensor",
							"name": "Motion sensor",
							"description": "Sensor to watch",
							"required": true,
							"type": "DEVICE",
							"multiple": false,
							"capabilities": ["motionSensor"],
							"permissions": ["r"]
						},
						{
							"id": "minutes",
							"name": "Minutes",
							"description": "Idle minutes before lights go off",
							"type": "NUMBER"
						}
					]
				}
			]
		},
		{
			"pageName": "Options",
			"sections": [
				{
					"name": "Behavior",
					"settings": [
						{
							"id": "enabled",
							"name": "Enabled",
							"description": "Whether the automation runs",
							"type": "BOOLEAN",
							"defaultValue": "true"
						},
						{
							"id": "mode",
							"name": "Mode",
							"description": "How aggressively to act",
							"type": "ENUM",
							"multiple": false,
							"options": [
								{"id": "gentle", "name": "Gentle"},
								{"id": "strict", "name": "Strict"}
							]
						}
					]
				}
			]
		}
	]
}`

const definitionYAML = `
id: lights-off
name: Lights Off
description: Turn lights off when nobody is around
targetUrl: https://example.com/smartapp?env=prod
permissions:
  - "r:devices:*"
configPages:
  - pageName: Devices
    sections:
      - name: Sensors
        settings:
          - id: motionSensor
            name: Motion sensor
            description: Sensor to watch
            required: true
            type: DEVICE
            multiple: false
            capabilities: [motionSensor]
            permissions: [r]
          - id: paragraph
            name: About
            description: ""
            type: PARAGRAPH
            defaultValue: Reads the motion sensor.
`

func TestParseDefinition(t *testing.T) {
	def, err := ParseDefinition([]byte(definitionJSON))
	require.NoError(t, err)

	assert.Equal(t, "lights-off", def.ID)
	assert.Equal(t, "https://example.com/smartapp?env=prod", def.TargetURL)
	require.Len(t, def.ConfigPages, 2)

	settings := def.ConfigPages[0].Sections[0].Settings
	require.Len(t, settings, 2)

	device, ok := settings[0].(*DeviceSetting)
	require.True(t, ok, "expected *DeviceSetting, got %T", settings[0])
	assert.Equal(t, "motionSensor", device.SettingID())
	assert.Equal(t, SettingTypeDevice, device.SettingType())
	assert.Equal(t, []string{"motionSensor"}, device.Capabilities)
	assert.True(t, device.Required)

	number, ok := settings[1].(*NumberSetting)
	require.True(t, ok)
	assert.Equal(t, "minutes", number.SettingID())

	boolean, ok := def.ConfigPages[1].Sections[0].Settings[0].(*BooleanSetting)
	require.True(t, ok)
	assert.Equal(t, BooleanTrue, boolean.DefaultValue)

	enum, ok := def.ConfigPages[1].Sections[0].Settings[1].(*EnumSetting)
	require.True(t, ok)
	require.Len(t, enum.Options, 2)
	assert.Equal(t, "gentle", enum.Options[0].ID)
}

func TestParseDefinitionYAML(t *testing.T) {
	def, err := ParseDefinitionYAML([]byte(definitionYAML))
	require.NoError(t, err)

	assert.Equal(t, "lights-off", def.ID)
	require.Len(t, def.ConfigPages, 1)

	settings := def.ConfigPages[0].Sections[0].Settings
	require.Len(t, settings, 2)

	device, ok := settings[0].(*DeviceSetting)
	require.True(t, ok)
	assert.Equal(t, []string{"motionSensor"}, device.Capabilities)

	para, ok := settings[1].(*ParagraphSetting)
	require.True(t, ok)
	assert.Equal(t, "Reads the motion sensor.", para.DefaultValue)
}

func TestDefinitionRoundTrip(t *testing.T) {
	def, err := ParseDefinition([]byte(definitionJSON))
	require.NoError(t, err)

	encoded, err := EncodeDefinition(def)
	require.NoError(t, err)
	reparsed, err := ParseDefinition(encoded)
	require.NoError(t, err)
	assert.Equal(t, def, reparsed)

	encodedYAML, err := EncodeDefinitionYAML(def)
	require.NoError(t, err)
	reparsedYAML, err := ParseDefinitionYAML(encodedYAML)
	require.NoError(t, err)
	assert.Equal(t, def, reparsedYAML)
}

func TestParseDefinitionUnknownSettingType(t *testing.T) {
	body := `{
		"id": "x", "name": "x", "description": "x", "targetUrl": "https://e/x",
		"permissions": [],
		"configPages": [
			{"pageName": "P", "sections": [
				{"name": "S", "settings": [{"id": "a", "name": "a", "description": "", "type": "HOLOGRAM"}]}
			]}
		]
	}`
	_, err := ParseDefinition([]byte(body))

	var schemaErr *SchemaError
	require.ErrorAs(t, err, &schemaErr)
	assert.Contains(t, schemaErr.Detail, "HOLOGRAM")
}

func TestValidateDuplicates(t *testing.T) {
	base := func() *Definition {
		def, err := ParseDefinition([]byte(definitionJSON))
		require.NoError(t, err)
		return def
	}

	t.Run("duplicate page name", func(t *testing.T) {
		def := base()
		def.ConfigPages[1].PageName = def.ConfigPages[0].PageName
		assert.ErrorIs(t, def.Validate(), ErrDuplicateIdentifier)
	})

	t.Run("duplicate section name", func(t *testing.T) {
		def := base()
		def.ConfigPages[0].Sections = append(def.ConfigPages[0].Sections, Section{
			Name: "Sensors",
		})
		assert.ErrorIs(t, def.Validate(), ErrDuplicateIdentifier)
	})

	t.Run("duplicate setting id across pages", func(t *testing.T) {
		def := base()
		def.ConfigPages[1].Sections[0].Settings = append(def.ConfigPages[1].Sections[0].Settings,
			&TextSetting{SettingMeta: SettingMeta{ID: "minutes", Name: "Minutes again"}, Type: SettingTypeText})
		assert.ErrorIs(t, def.Validate(), ErrDuplicateIdentifier)
	})

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})
}

func TestDefinitionPageNavigation(t *testing.T) {
	def, err := ParseDefinition([]byte(definitionJSON))
	require.NoError(t, err)

	first, err := def.Page(1)
	require.NoError(t, err)
	assert.Equal(t, "1", first.PageID)
	assert.Equal(t, "Devices", first.Name)
	assert.Nil(t, first.PreviousPageID)
	require.NotNil(t, first.NextPageID)
	assert.Equal(t, "2", *first.NextPageID)
	assert.False(t, first.Complete)

	last, err := def.Page(2)
	require.NoError(t, err)
	require.NotNil(t, last.PreviousPageID)
	assert.Equal(t, "1", *last.PreviousPageID)
	assert.Nil(t, last.NextPageID)
	assert.True(t, last.Complete)
}

func TestDefinitionPageOutOfRange(t *testing.T) {
	def, err := ParseDefinition([]byte(definitionJSON))
	require.NoError(t, err)

	for _, pageID := range []int{0, -1, 3, 99} {
		_, err := def.Page(pageID)
		assert.ErrorIs(t, err, ErrPageNotFound, "page %d", pageID)
	}

	empty := &Definition{ID: "x"}
	_, err = empty.Page(1)
	assert.ErrorIs(t, err, ErrPageNotFound)
}
