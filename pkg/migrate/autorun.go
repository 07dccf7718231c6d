package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/listini-pricing/pkg/config"
	"github.com/angelmondragon/listini-pricing/pkg/db"
	"github.com/angelmondragon/listini-pricing/pkg/logger"
)

// MaybeRunDev applies the embedded migrations when running in dev with auto-migrate enabled.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	runner, err := NewRunner(sqlDB, Migrations(), logg)
	if err != nil {
		return err
	}
	defer runner.Close()

	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "running embedded migrations (dev auto-run)")
	if err := runner.Up(ctx); err != nil {
		return err
	}
	logg.Info(ctx, "migrations completed")
	return nil
}
