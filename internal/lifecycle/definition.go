package lifecycle

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ConfigPage is one authored page of the app's configuration UI.
type ConfigPage struct {
	PageName string    `json:"pageName" yaml:"pageName"`
	Sections []Section `json:"sections" yaml:"sections"`
}

// Definition is the static declaration of the SmartApp: identity, required
// permissions and the configuration pages offered to users. It is authored
// once (in JSON or YAML) and read-only at dispatch time.
type Definition struct {
	ID          string       `json:"id" yaml:"id"`
	Name        string       `json:"name" yaml:"name"`
	Description string       `json:"description" yaml:"description"`
	TargetURL   string       `json:"targetUrl" yaml:"targetUrl"`
	Permissions []string     `json:"permissions" yaml:"permissions"`
	ConfigPages []ConfigPage `json:"configPages" yaml:"configPages"`
}

// Validate checks the structural uniqueness rules: page names unique within
// the definition, section names unique within a page, setting ids unique
// across the whole definition.
func (d *Definition) Validate() error {
	pageNames := make(map[string]bool)
	settingIDs := make(map[string]bool)
	for _, page := range d.ConfigPages {
		if pageNames[page.PageName] {
			return fmt.Errorf("%w: page %q", ErrDuplicateIdentifier, page.PageName)
		}
		pageNames[page.PageName] = true
		sectionNames := make(map[string]bool)
		for _, section := range page.Sections {
			if sectionNames[section.Name] {
				return fmt.Errorf("%w: section %q on page %q", ErrDuplicateIdentifier, section.Name, page.PageName)
			}
			sectionNames[section.Name] = true
			for _, setting := range section.Settings {
				id := setting.SettingID()
				if settingIDs[id] {
					return fmt.Errorf("%w: setting %q", ErrDuplicateIdentifier, id)
				}
				settingIDs[id] = true
			}
		}
	}
	return nil
}

// Page returns the 1-based page at the given id, with navigation links and
// the complete flag filled in.
func (d *Definition) Page(pageID int) (*Page, error) {
	if len(d.ConfigPages) == 0 {
		return nil, fmt.Errorf("%w: definition has no pages", ErrPageNotFound)
	}
	if pageID < 1 || pageID > len(d.ConfigPages) {
		return nil, fmt.Errorf("%w: page %d of %d", ErrPageNotFound, pageID, len(d.ConfigPages))
	}
	source := d.ConfigPages[pageID-1]
	page := &Page{
		PageID:   fmt.Sprintf("%d", pageID),
		Name:     source.PageName,
		Complete: pageID >= len(d.ConfigPages),
		Sections: source.Sections,
	}
	if pageID > 1 {
		prev := fmt.Sprintf("%d", pageID-1)
		page.PreviousPageID = &prev
	}
	if pageID < len(d.ConfigPages) {
		next := fmt.Sprintf("%d", pageID+1)
		page.NextPageID = &next
	}
	return page, nil
}

// ParseDefinition parses and validates a JSON definition document.
func ParseDefinition(data []byte) (*Definition, error) {
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// ParseDefinitionYAML parses and validates a YAML definition document.
func ParseDefinitionYAML(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// EncodeDefinition serializes a definition to JSON.
func EncodeDefinition(def *Definition) ([]byte, error) {
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}
	return data, nil
}

// EncodeDefinitionYAML serializes a definition to YAML.
func EncodeDefinitionYAML(def *Definition) ([]byte, error) {
	data, err := yaml.Marshal(def)
	if err != nil {
		return nil, fmt.Errorf("failed to encode definition: %w", err)
	}
	return data, nil
}
