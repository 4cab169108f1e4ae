package lifecycle

import (
	"encoding/json"

	"gopkg.in/yaml.v3"
)

// Setting is one declared config setting. Concrete shapes are selected by the
// "type" discriminator; each variant has a decoder registered in
// settingFactories so the set stays closed and exhaustiveness stays visible.
type Setting interface {
	SettingType() SettingType
	SettingID() string
}

// SettingMeta carries the fields common to every setting kind.
type SettingMeta struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	Required    bool   `json:"required,omitempty" yaml:"required,omitempty"`
}

// SettingID returns the setting's unique identifier.
func (m SettingMeta) SettingID() string { return m.ID }

// DeviceSetting asks the user to pick one or more devices. Capabilities are
// ANDed: only devices exposing all of them are offered.
type DeviceSetting struct {
	SettingMeta  `yaml:",inline"`
	Type         SettingType `json:"type" yaml:"type"`
	Multiple     bool        `json:"multiple" yaml:"multiple"`
	Capabilities []string    `json:"capabilities" yaml:"capabilities"`
	Permissions  []string    `json:"permissions" yaml:"permissions"`
}

func (DeviceSetting) SettingType() SettingType { return SettingTypeDevice }

// TextSetting asks for free-form text.
type TextSetting struct {
	SettingMeta  `yaml:",inline"`
	Type         SettingType `json:"type" yaml:"type"`
	DefaultValue string      `json:"defaultValue" yaml:"defaultValue"`
}

func (TextSetting) SettingType() SettingType { return SettingTypeText }

// BooleanSetting asks for a yes/no choice, delivered as a string boolean.
type BooleanSetting struct {
	SettingMeta  `yaml:",inline"`
	Type         SettingType  `json:"type" yaml:"type"`
	DefaultValue BooleanValue `json:"defaultValue" yaml:"defaultValue"`
}

func (BooleanSetting) SettingType() SettingType { return SettingTypeBoolean }

// EnumOption is one choice within an ENUM setting.
type EnumOption struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// EnumOptionGroup is a named group of ENUM choices.
type EnumOptionGroup struct {
	Name    string       `json:"name" yaml:"name"`
	Options []EnumOption `json:"options" yaml:"options"`
}

// EnumSetting asks the user to pick from a fixed, possibly grouped, set.
type EnumSetting struct {
	SettingMeta    `yaml:",inline"`
	Type           SettingType       `json:"type" yaml:"type"`
	Multiple       bool              `json:"multiple" yaml:"multiple"`
	Options        []EnumOption      `json:"options,omitempty" yaml:"options,omitempty"`
	GroupedOptions []EnumOptionGroup `json:"groupedOptions,omitempty" yaml:"groupedOptions,omitempty"`
}

func (EnumSetting) SettingType() SettingType { return SettingTypeEnum }

// LinkSetting renders a hyperlink.
type LinkSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
	URL         string      `json:"url" yaml:"url"`
	Image       string      `json:"image" yaml:"image"`
}

func (LinkSetting) SettingType() SettingType { return SettingTypeLink }

// PageSetting links to another configuration page.
type PageSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
	Page        string      `json:"page" yaml:"page"`
	Image       string      `json:"image" yaml:"image"`
}

func (PageSetting) SettingType() SettingType { return SettingTypePage }

// ImageSetting renders an image.
type ImageSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
	Image       string      `json:"image" yaml:"image"`
}

func (ImageSetting) SettingType() SettingType { return SettingTypeImage }

// IconSetting renders an icon.
type IconSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
	Image       string      `json:"image" yaml:"image"`
}

func (IconSetting) SettingType() SettingType { return SettingTypeIcon }

// TimeSetting asks for a time of day.
type TimeSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
}

func (TimeSetting) SettingType() SettingType { return SettingTypeTime }

// ParagraphSetting renders read-only text.
type ParagraphSetting struct {
	SettingMeta  `yaml:",inline"`
	Type         SettingType `json:"type" yaml:"type"`
	DefaultValue string      `json:"defaultValue" yaml:"defaultValue"`
}

func (ParagraphSetting) SettingType() SettingType { return SettingTypeParagraph }

// EmailSetting asks for an email address.
type EmailSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
}

func (EmailSetting) SettingType() SettingType { return SettingTypeEmail }

// DecimalSetting asks for a decimal number.
type DecimalSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
}

func (DecimalSetting) SettingType() SettingType { return SettingTypeDecimal }

// NumberSetting asks for an integer.
type NumberSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
}

func (NumberSetting) SettingType() SettingType { return SettingTypeNumber }

// PhoneSetting asks for a phone number.
type PhoneSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
}

func (PhoneSetting) SettingType() SettingType { return SettingTypePhone }

// OAuthSetting starts an OAuth flow against the given URL template.
type OAuthSetting struct {
	SettingMeta `yaml:",inline"`
	Type        SettingType `json:"type" yaml:"type"`
	Browser     bool        `json:"browser" yaml:"browser"`
	URLTemplate string      `json:"urlTemplate" yaml:"urlTemplate"`
}

func (OAuthSetting) SettingType() SettingType { return SettingTypeOAuth }

// settingFactories maps each setting discriminator to a constructor for the
// matching concrete type.
var settingFactories = map[SettingType]func() Setting{
	SettingTypeDevice:    func() Setting { return &DeviceSetting{} },
	SettingTypeText:      func() Setting { return &TextSetting{} },
	SettingTypeBoolean:   func() Setting { return &BooleanSetting{} },
	SettingTypeEnum:      func() Setting { return &EnumSetting{} },
	SettingTypeLink:      func() Setting { return &LinkSetting{} },
	SettingTypePage:      func() Setting { return &PageSetting{} },
	SettingTypeImage:     func() Setting { return &ImageSetting{} },
	SettingTypeIcon:      func() Setting { return &IconSetting{} },
	SettingTypeTime:      func() Setting { return &TimeSetting{} },
	SettingTypeParagraph: func() Setting { return &ParagraphSetting{} },
	SettingTypeEmail:     func() Setting { return &EmailSetting{} },
	SettingTypeDecimal:   func() Setting { return &DecimalSetting{} },
	SettingTypeNumber:    func() Setting { return &NumberSetting{} },
	SettingTypePhone:     func() Setting { return &PhoneSetting{} },
	SettingTypeOAuth:     func() Setting { return &OAuthSetting{} },
}

func decodeSettingJSON(raw json.RawMessage) (Setting, error) {
	var head struct {
		Type SettingType `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, NewSchemaError("type", "setting type is not a string")
	}
	factory, ok := settingFactories[head.Type]
	if !ok {
		return nil, NewSchemaError("type", "unknown config setting type %q", string(head.Type))
	}
	setting := factory()
	if err := json.Unmarshal(raw, setting); err != nil {
		return nil, wrapSchemaError(err)
	}
	return setting, nil
}

func decodeSettingYAML(node *yaml.Node) (Setting, error) {
	var head struct {
		Type SettingType `yaml:"type"`
	}
	if err := node.Decode(&head); err != nil {
		return nil, NewSchemaError("type", "setting type is not a string")
	}
	factory, ok := settingFactories[head.Type]
	if !ok {
		return nil, NewSchemaError("type", "unknown config setting type %q", string(head.Type))
	}
	setting := factory()
	if err := node.Decode(setting); err != nil {
		return nil, wrapSchemaError(err)
	}
	return setting, nil
}

// Section is a named group of settings within a configuration page.
type Section struct {
	Name     string    `json:"name" yaml:"name"`
	Settings []Setting `json:"settings" yaml:"settings"`
}

// UnmarshalJSON decodes the polymorphic settings list.
func (s *Section) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name     string            `json:"name"`
		Settings []json.RawMessage `json:"settings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Settings = make([]Setting, 0, len(raw.Settings))
	for _, item := range raw.Settings {
		setting, err := decodeSettingJSON(item)
		if err != nil {
			return err
		}
		s.Settings = append(s.Settings, setting)
	}
	return nil
}

// UnmarshalYAML decodes the polymorphic settings list from YAML.
func (s *Section) UnmarshalYAML(value *yaml.Node) error {
	var raw struct {
		Name     string      `yaml:"name"`
		Settings []yaml.Node `yaml:"settings"`
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}
	s.Name = raw.Name
	s.Settings = make([]Setting, 0, len(raw.Settings))
	for i := range raw.Settings {
		setting, err := decodeSettingYAML(&raw.Settings[i])
		if err != nil {
			return err
		}
		s.Settings = append(s.Settings, setting)
	}
	return nil
}
