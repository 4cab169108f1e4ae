package dispatcher

import (
	"context"
	"log/slog"

	"github.com/mattjoyce/smartapp-gw/internal/lifecycle"
)

// EventHandler is the application's callback surface, one method per
// lifecycle phase. The handler is always called before the dispatcher's own
// built-in behavior, and a returned error aborts the response.
//
// CONFIRMATION and CONFIGURATION rarely need custom logic: the dispatcher
// answers them itself from the definition. INSTALL/UPDATE typically set up
// subscriptions or schedules, UNINSTALL removes persisted data, and EVENT is
// where most application behavior lives. The EVENT request carries both an
// authorization token and the full installed-app configuration bundle, so
// event-driven apps can usually stay stateless.
//
// Invocation is synchronous: the dispatcher blocks until the handler returns.
// Concurrency, if needed, belongs in the tier accepting the POST requests.
type EventHandler interface {
	HandleConfirmation(ctx context.Context, correlationID string, req *lifecycle.ConfirmationRequest) error
	HandleConfiguration(ctx context.Context, correlationID string, req *lifecycle.ConfigurationRequest) error
	HandleInstall(ctx context.Context, correlationID string, req *lifecycle.InstallRequest) error
	HandleUpdate(ctx context.Context, correlationID string, req *lifecycle.UpdateRequest) error
	HandleUninstall(ctx context.Context, correlationID string, req *lifecycle.UninstallRequest) error
	HandleOAuthCallback(ctx context.Context, correlationID string, req *lifecycle.OAuthCallbackRequest) error
	HandleEvent(ctx context.Context, correlationID string, req *lifecycle.EventRequest) error
}

// LoggingHandler is an EventHandler that records each lifecycle phase and
// does nothing else. It is the default handler for the standalone gateway;
// applications embed their own logic by implementing EventHandler.
type LoggingHandler struct {
	Logger *slog.Logger
}

func (h LoggingHandler) log(phase lifecycle.Phase, correlationID string, args ...any) error {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("lifecycle callback",
		append([]any{"lifecycle", string(phase), "correlation_id", correlationID}, args...)...)
	return nil
}

func (h LoggingHandler) HandleConfirmation(_ context.Context, correlationID string, req *lifecycle.ConfirmationRequest) error {
	return h.log(req.Phase(), correlationID, "app_id", req.ConfirmationData.AppID)
}

func (h LoggingHandler) HandleConfiguration(_ context.Context, correlationID string, req *lifecycle.ConfigurationRequest) error {
	return h.log(req.Phase(), correlationID, "phase", string(req.ConfigurationData.Phase))
}

func (h LoggingHandler) HandleInstall(_ context.Context, correlationID string, req *lifecycle.InstallRequest) error {
	return h.log(req.Phase(), correlationID, "installed_app_id", req.InstalledAppID())
}

func (h LoggingHandler) HandleUpdate(_ context.Context, correlationID string, req *lifecycle.UpdateRequest) error {
	return h.log(req.Phase(), correlationID, "installed_app_id", req.InstalledAppID())
}

func (h LoggingHandler) HandleUninstall(_ context.Context, correlationID string, req *lifecycle.UninstallRequest) error {
	return h.log(req.Phase(), correlationID, "installed_app_id", req.UninstallData.InstalledApp.InstalledAppID)
}

func (h LoggingHandler) HandleOAuthCallback(_ context.Context, correlationID string, req *lifecycle.OAuthCallbackRequest) error {
	return h.log(req.Phase(), correlationID, "installed_app_id", req.OAuthCallbackData.InstalledAppID)
}

func (h LoggingHandler) HandleEvent(_ context.Context, correlationID string, req *lifecycle.EventRequest) error {
	return h.log(req.Phase(), correlationID, "installed_app_id", req.InstalledAppID(), "events", len(req.EventData.Events))
}
