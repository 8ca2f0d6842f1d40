package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/phoneverify/internal/phoneotp"
	"github.com/shandysiswandi/phoneverify/internal/pkg/clock"
	"github.com/shandysiswandi/phoneverify/internal/pkg/config"
	"github.com/shandysiswandi/phoneverify/internal/pkg/goroutine"
	"github.com/shandysiswandi/phoneverify/internal/pkg/hash"
	"github.com/shandysiswandi/phoneverify/internal/pkg/instrument"
	"github.com/shandysiswandi/phoneverify/internal/pkg/messaging"
	"github.com/shandysiswandi/phoneverify/internal/pkg/router"
	"github.com/shandysiswandi/phoneverify/internal/pkg/uid"
	"github.com/shandysiswandi/phoneverify/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID

	// resources
	messaging messaging.Publisher

	// server
	router     *router.Router
	httpServer *http.Server

	// modules
	phoneotp *phoneotp.Module

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initMessaging()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
