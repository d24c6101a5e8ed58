// Package dcctl implements the commands of the dcctl command line tool.
package dcctl

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/pkg/client"
	"github.com/distcompute/dcctl/pkg/client/session"
	"github.com/distcompute/dcctl/pkg/client/statistics"
	"github.com/distcompute/dcctl/pkg/client/upload"
)

type App struct {
	// Parameters passed to the CLI by the user.
	Params *Params
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the applications's output.
	Out io.Writer

	// outMu serialises writes to Out from concurrent uploads.
	outMu sync.Mutex

	once     sync.Once
	startErr error
	conn     *client.Connection
	session  *session.Manager
	registry *prometheus.Registry
	metrics  *upload.Metrics
	stats    *statistics.Service
}

// Params struct holds all user-customizable parameters.
// Using a single struct for all CLI commands ensures that all flags are distinct
// and that they can be provided either dynamically on a command line, or
// statically in a config file that's reused between command runs.
type Params struct {
	ApiConnectionDetails *client.ApiConnectionDetails
	// Output format of get and list commands: table, yaml or json.
	Output string
	// If set, upload metrics are written to this file in the Prometheus text format.
	MetricsFile string
	// Overrides the store selected by ApiConnectionDetails.TokenStore.
	TokenStore session.TokenStore
}

// New instantiates an App with default parameters writing to standard out.
func New() *App {
	return &App{
		Params: &Params{},
		Out:    os.Stdout,
	}
}

// start connects to the backend and restores the stored session. It runs once per App.
func (a *App) start(ctx context.Context) error {
	a.once.Do(func() {
		a.startErr = a.doStart(ctx)
	})
	return a.startErr
}

func (a *App) doStart(ctx context.Context) error {
	details := a.Params.ApiConnectionDetails
	if details == nil {
		return errors.New("connection details have not been initialised")
	}
	conn, err := client.NewConnection(details, nil)
	if err != nil {
		return err
	}
	store := a.Params.TokenStore
	if store == nil {
		store, err = session.NewTokenStore(details.TokenStore, details.BaseUrl)
		if err != nil {
			return err
		}
	}
	a.conn = conn
	a.session = session.NewManagerForConnection(conn, store)
	a.session.Subscribe(a.notify)
	a.registry = prometheus.NewRegistry()
	a.metrics = upload.NewMetrics(a.registry)
	a.stats = statistics.NewService(conn, statistics.DefaultTTL)
	a.session.Start(ctx)
	return nil
}

// authenticated starts the app and enforces that a user is logged in.
func (a *App) authenticated(ctx context.Context) (*session.Session, error) {
	if err := a.start(ctx); err != nil {
		return nil, err
	}
	return a.session.RequireAuthenticated()
}

// fail reconciles the session for errors caused by a rejected credential.
func (a *App) fail(ctx context.Context, err error) error {
	if err == nil || a.session == nil {
		return err
	}
	return a.session.HandleError(ctx, err)
}

func (a *App) notify(e session.Event) {
	if e.Kind == session.EventSessionInvalidated {
		log.Warn(e.Message)
	}
}

func (a *App) pipeline() *upload.Pipeline {
	return upload.NewPipeline(a.conn, upload.WithMetrics(a.metrics))
}

// flushMetrics writes the upload metrics when a metrics file was requested.
func (a *App) flushMetrics() error {
	if a.Params.MetricsFile == "" || a.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.Params.MetricsFile, a.registry); err != nil {
		return errors.Wrapf(err, "failed to write metrics to %s", a.Params.MetricsFile)
	}
	return nil
}
