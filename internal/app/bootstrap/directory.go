package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/appointment-assistant/internal/config"
	"github.com/wolfman30/appointment-assistant/internal/doctors"
	"github.com/wolfman30/appointment-assistant/pkg/logging"
)

// LoadDirectory resolves the doctor roster. DOCTORS_FILE wins and is written
// through to Redis; otherwise the Redis copy is used; otherwise the built-in
// roster seeds Redis.
func LoadDirectory(ctx context.Context, cfg *appconfig.Config, redisClient *redis.Client, logger *logging.Logger) (*doctors.Directory, error) {
	if logger == nil {
		logger = logging.Default()
	}
	var store *doctors.Store
	if redisClient != nil {
		store = doctors.NewStore(redisClient)
	}

	if cfg != nil && strings.TrimSpace(cfg.DoctorsFile) != "" {
		dir, err := doctors.LoadFile(cfg.DoctorsFile)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
		saveRoster(ctx, store, dir, logger)
		logger.Info("doctor roster loaded from file", "path", cfg.DoctorsFile, "doctors", len(dir.List()))
		return dir, nil
	}

	if store != nil {
		dir, found, err := store.Load(ctx)
		switch {
		case err != nil:
			logger.Warn("stored doctor roster unusable; using built-in", "error", err)
		case found:
			logger.Info("doctor roster loaded from redis", "doctors", len(dir.List()))
			return dir, nil
		}
	}

	dir := doctors.BuiltIn()
	saveRoster(ctx, store, dir, logger)
	return dir, nil
}

func saveRoster(ctx context.Context, store *doctors.Store, dir *doctors.Directory, logger *logging.Logger) {
	if store == nil {
		return
	}
	if err := store.Save(ctx, dir); err != nil {
		logger.Warn("failed to persist doctor roster", "error", err)
	}
}
