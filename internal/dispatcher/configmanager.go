package dispatcher

import (
	"github.com/mattjoyce/smartapp-gw/internal/lifecycle"
)

// ConfigManager answers CONFIGURATION-phase requests. The default
// StaticConfigManager serves pages straight from the definition, which is
// adequate for most apps; implement this interface when responses need to be
// generated dynamically.
type ConfigManager interface {
	HandleInitialize(req *lifecycle.ConfigurationRequest, def *lifecycle.Definition) (lifecycle.Response, error)
	HandlePage(req *lifecycle.ConfigurationRequest, def *lifecycle.Definition, pageID int) (lifecycle.Response, error)
}

// StaticConfigManager answers CONFIGURATION requests from the static
// definition without consulting application code.
type StaticConfigManager struct{}

// HandleInitialize returns the app's identity block. The first page is always
// page 1.
func (StaticConfigManager) HandleInitialize(_ *lifecycle.ConfigurationRequest, def *lifecycle.Definition) (lifecycle.Response, error) {
	return lifecycle.ConfigurationInitResponse{
		ConfigurationData: lifecycle.ConfigInitData{
			Initialize: lifecycle.ConfigInit{
				ID:          def.ID,
				Name:        def.Name,
				Description: def.Description,
				Permissions: def.Permissions,
				FirstPageID: "1",
			},
		},
	}, nil
}

// HandlePage returns the requested 1-based page with navigation computed from
// the definition. An out-of-range page fails with lifecycle.ErrPageNotFound.
func (StaticConfigManager) HandlePage(_ *lifecycle.ConfigurationRequest, def *lifecycle.Definition, pageID int) (lifecycle.Response, error) {
	page, err := def.Page(pageID)
	if err != nil {
		return nil, err
	}
	return lifecycle.ConfigurationPageResponse{
		ConfigurationData: lifecycle.ConfigPageData{Page: *page},
	}, nil
}
