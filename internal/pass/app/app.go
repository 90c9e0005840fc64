package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/gatepass/internal/pass/l10n"
	"github.com/aussiebroadwan/gatepass/internal/pass/service"
	"github.com/aussiebroadwan/gatepass/internal/pass/state"
	"github.com/aussiebroadwan/gatepass/internal/pass/store/drivers/sqlite"
	"github.com/aussiebroadwan/gatepass/pkg/cardimg"
	"github.com/aussiebroadwan/gatepass/pkg/cryptox"
	"github.com/aussiebroadwan/gatepass/pkg/gateapi"
	"github.com/aussiebroadwan/gatepass/pkg/slogx"
)

const BuildVersion = "v0.1.0"

// Application wires the gate-pass client together: API client, sealed local
// state store, application state, and the four workflow services.
type Application struct {
	cfg    Config
	logger *slog.Logger

	api   *gateapi.Client
	db    *sqlite.Store
	state *state.Store

	registrar *service.Registrar
	resolver  *service.ConfigResolver
	issuer    *service.Issuer
	exporter  *service.Exporter
}

func New(cfg Config) (*Application, error) {
	if cfg.AuthAPIURL == "" || cfg.DataAPIURL == "" {
		return nil, fmt.Errorf("GATEPASS_AUTH_API_URL and GATEPASS_DATA_API_URL are required")
	}

	logger := slogx.New(slogx.Options{
		App:     "gatepass",
		Version: BuildVersion,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}

	db, err := sqlite.NewStore(filepath.Join(cfg.StateDir, "state.db"))
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}
	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate state store: %w", err)
	}

	sealer, err := cryptox.NewSealer(filepath.Join(cfg.StateDir, "state.key"))
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sealer: %w", err)
	}

	api := gateapi.NewClient(cfg.AuthAPIURL, cfg.DataAPIURL)
	api.Locale = cfg.Locale

	appState := state.NewStore()

	registrar := service.NewRegistrar(service.RegistrarConfig{
		API:      api,
		Store:    db,
		Sealer:   sealer,
		AppState: appState,
		Logger:   slogx.Component(logger, "registrar"),
		Platform: cfg.Platform,
	})

	resolver := service.NewConfigResolver(api, cfg.ConfigInterval, slogx.Component(logger, "config"))

	exporter := service.NewExporter(service.ExporterConfig{
		Template:    cardimg.NewTemplate(),
		DownloadDir: cfg.DownloadDir,
		Logger:      slogx.Component(logger, "exporter"),
	})

	issuer := service.NewIssuer(service.IssuerConfig{
		Resolver:  resolver,
		Visitors:  api,
		Capturer:  exporter,
		Analytics: service.NewLogAnalytics(slogx.Component(logger, "analytics")),
		Alerts:    appState,
		Logger:    slogx.Component(logger, "issuer"),
		Locale:    l10n.Lang(cfg.Locale),
		Validity:  cfg.PassValidity,
	})

	return &Application{
		cfg:       cfg,
		logger:    logger,
		api:       api,
		db:        db,
		state:     appState,
		registrar: registrar,
		resolver:  resolver,
		issuer:    issuer,
		exporter:  exporter,
	}, nil
}

func (a *Application) Close() error { return a.db.Close() }

func (a *Application) Registrar() *service.Registrar     { return a.registrar }
func (a *Application) Resolver() *service.ConfigResolver { return a.resolver }
func (a *Application) Issuer() *service.Issuer           { return a.issuer }
func (a *Application) Exporter() *service.Exporter       { return a.exporter }
func (a *Application) State() *state.Store               { return a.state }
func (a *Application) Logger() *slog.Logger              { return a.logger }
