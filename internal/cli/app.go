package cli

import (
	"fmt"
	"os"

	"github.com/drivelink/drivelink/internal/api"
	"github.com/drivelink/drivelink/internal/config"
	"github.com/drivelink/drivelink/internal/constants"
	"github.com/drivelink/drivelink/internal/events"
	"github.com/drivelink/drivelink/internal/filesync"
	"github.com/drivelink/drivelink/internal/guard"
	"github.com/drivelink/drivelink/internal/notify"
	"github.com/drivelink/drivelink/internal/progress"
	"github.com/drivelink/drivelink/internal/session"
)

// app bundles the wired component graph for one CLI invocation.
type app struct {
	config   *config.Config
	store    *config.CredentialStore
	client   *api.Client
	bus      *events.EventBus
	session  *session.Manager
	syncer   *filesync.Syncer
	notifier *notify.Notifier
	tracker  *progress.Tracker
}

// newApp loads configuration and wires the component graph. Flag overrides
// win over the config file.
func newApp() (*app, error) {
	path := cfgFile
	if path == "" {
		var err error
		path, err = config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if serverURL != "" {
		cfg.ServerURL = serverURL
	}

	credPath, err := config.DefaultCredentialsPath()
	if err != nil {
		return nil, err
	}
	store, err := config.NewCredentialStore(credPath)
	if err != nil {
		return nil, err
	}

	logger := GetLogger()
	client, err := api.NewClient(cfg, store, logger)
	if err != nil {
		return nil, err
	}

	bus := events.NewEventBus(constants.EventBusDefaultBuffer)
	sess := session.NewManager(client, store, bus, logger)

	notifier := notify.NewNotifier(bus, os.Stderr, logger)
	notifier.Start()

	tracker := progress.NewTracker(bus, os.Stderr)
	tracker.Start()

	return &app{
		config:   cfg,
		store:    store,
		client:   client,
		bus:      bus,
		session:  sess,
		syncer:   filesync.NewSyncer(client, sess, bus, logger, maxConcurrent),
		notifier: notifier,
		tracker:  tracker,
	}, nil
}

// close flushes notices and progress bars, then shuts the bus down.
func (a *app) close() {
	a.notifier.Stop()
	a.bus.Close()
	a.tracker.Wait()
}

// requireAuth restores the persisted session and consults the route guard.
// Protected commands call this before doing anything else.
func (a *app) requireAuth() error {
	a.session.Restore(GetContext())
	if guard.Decide(a.session.Status()) != guard.Allow {
		return fmt.Errorf("not logged in: run 'drivelink login' first")
	}
	return nil
}
