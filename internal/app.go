// internal/app.go
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	router "investflow-core/internal/api"
	"investflow-core/internal/api/handler"
	"investflow-core/internal/config"
	"investflow-core/internal/repository"
	"investflow-core/internal/repository/postgres"
	"investflow-core/internal/service"
	"investflow-core/internal/util"
	"investflow-core/migrations"
	"investflow-core/pkg/db"
)

// Application holds all the initialized components of the application.
type Application struct {
	Config *config.AppConfig
	Logger *slog.Logger
	DB     *sqlx.DB

	// Repositories
	WalletRepository      repository.WalletRepository
	LedgerRepository      repository.LedgerRepository
	CommitmentRepository  repository.CommitmentRepository
	NegotiationRepository repository.NegotiationRepository

	// Collaborators
	ProjectRegistry *service.StaticProjectRegistry

	// Services
	WalletService     service.WalletService
	CommitmentService service.CommitmentService

	// HTTP API
	HTTPHandler http.Handler
}

// NewApplication creates a new Application instance.
func NewApplication() *Application {
	return &Application{}
}

// Initialize initializes all application components.
func (app *Application) Initialize(ctx context.Context) error {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	app.Config = cfg

	// 2. Initialize Logger
	util.InitLogger()
	app.Logger = util.GetLogger()
	app.Logger.Info("Application configuration loaded successfully.")

	// 3. Run migrations and connect to Database
	if err := db.RunMigrations(migrations.FS, ".", app.Config.DB); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	database, err := db.NewPostgresDB(app.Config.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = database
	app.Logger.Info("Database migrated and connection established.")

	// 4. Initialize Repositories
	app.WalletRepository = postgres.NewWalletRepository(app.DB)
	app.LedgerRepository = postgres.NewLedgerRepository(app.DB)
	app.CommitmentRepository = postgres.NewCommitmentRepository(app.DB)
	app.NegotiationRepository = postgres.NewNegotiationRepository(app.DB)
	app.Logger.Info("Repositories initialized.")

	// 5. Collaborators. The project registry is an external service in a full
	// deployment; the static implementation serves single-binary setups.
	app.ProjectRegistry = service.NewStaticProjectRegistry()

	// 6. Initialize Services
	app.WalletService = service.NewWalletService(
		app.DB, // DBTxBeginner
		app.DB, // DBExecutor for non-transactional reads
		app.WalletRepository,
		app.LedgerRepository,
		app.Config.Platform.MinimumDeposit,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.CommitmentService = service.NewCommitmentService(
		app.DB,
		app.DB,
		app.WalletRepository,
		app.LedgerRepository,
		app.CommitmentRepository,
		app.NegotiationRepository,
		app.ProjectRegistry,
		app.Config.Platform,
		db.BeginTx,
		db.CommitTx,
		db.RollbackTx,
		app.Logger,
	)
	app.Logger.Info("Services initialized.")

	// 7. Initialize HTTP Handlers and Router
	walletHandler := handler.NewWalletHandler(app.WalletService, app.Logger)
	commitmentHandler := handler.NewCommitmentHandler(app.CommitmentService, app.Logger)
	app.HTTPHandler = router.NewRouter(walletHandler, commitmentHandler, app.Logger)
	app.Logger.Info("HTTP router and handlers initialized.")

	return nil
}

// Shutdown gracefully shuts down application resources.
func (app *Application) Shutdown(ctx context.Context) error {
	app.Logger.Info("Shutting down application...")
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			app.Logger.Error("Failed to close database connection", "error", err)
			return fmt.Errorf("failed to close database connection: %w", err)
		}
		app.Logger.Info("Database connection closed.")
	}
	app.Logger.Info("Application shut down gracefully.")
	return nil
}
