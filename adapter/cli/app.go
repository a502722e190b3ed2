package cli

import (
	entitlementCommands "github.com/felixgeelhaar/sigil/internal/entitlement/application/commands"
	entitlementQueries "github.com/felixgeelhaar/sigil/internal/entitlement/application/queries"
	"github.com/google/uuid"
)

// App holds the CLI application dependencies.
type App struct {
	// Command Handlers
	BindHandler          *entitlementCommands.BindEntitlementHandler
	UnbindHandler        *entitlementCommands.UnbindEntitlementHandler
	DeletePoolHandler    *entitlementCommands.DeletePoolHandler
	AutoBindHandler      *entitlementCommands.AutoBindHandler
	UpdateProductHandler *entitlementCommands.UpdateProductHandler

	// Query Handlers
	GetEntitlementHandler   *entitlementQueries.GetEntitlementHandler
	ListEntitlementsHandler *entitlementQueries.ListEntitlementsHandler
	ListCertificatesHandler *entitlementQueries.ListCertificatesHandler

	// Current owner (configured per environment)
	CurrentOwnerID uuid.UUID
}

// NewApp creates a new CLI application with the provided handlers.
func NewApp(
	bindHandler *entitlementCommands.BindEntitlementHandler,
	unbindHandler *entitlementCommands.UnbindEntitlementHandler,
	deletePoolHandler *entitlementCommands.DeletePoolHandler,
	autoBindHandler *entitlementCommands.AutoBindHandler,
	updateProductHandler *entitlementCommands.UpdateProductHandler,
	getEntitlementHandler *entitlementQueries.GetEntitlementHandler,
	listEntitlementsHandler *entitlementQueries.ListEntitlementsHandler,
	listCertificatesHandler *entitlementQueries.ListCertificatesHandler,
) *App {
	return &App{
		BindHandler:             bindHandler,
		UnbindHandler:           unbindHandler,
		DeletePoolHandler:       deletePoolHandler,
		AutoBindHandler:         autoBindHandler,
		UpdateProductHandler:    updateProductHandler,
		GetEntitlementHandler:   getEntitlementHandler,
		ListEntitlementsHandler: listEntitlementsHandler,
		ListCertificatesHandler: listCertificatesHandler,
		CurrentOwnerID:          uuid.Nil,
	}
}

// SetCurrentOwnerID updates the current owner ID.
func (a *App) SetCurrentOwnerID(id uuid.UUID) {
	a.CurrentOwnerID = id
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
