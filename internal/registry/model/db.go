package model

import (
	"context"

	"github.com/openmlhub/model-registry/library/db/mongo"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
)

// ErrNotConfigured means no store address was supplied at all.
// The server still starts; every store-backed endpoint degrades to 503.
var ErrNotConfigured = errors.New("registry store not configured")

// NewRegistryDB connects to the registry database using the shared
// settings. It returns an error instead of keeping a nil-able global,
// so the caller decides how to run without a store.
func NewRegistryDB(ctx context.Context) (mongo.DB, error) {
	addr := gconfig.Shared.GetString("settings.db.registry.addr")
	dbName := gconfig.Shared.GetString("settings.db.registry.db")
	if addr == "" || dbName == "" {
		return nil, ErrNotConfigured
	}

	db, err := mongo.NewDB(ctx, mongo.DialInfo{
		Addr:   addr,
		DBName: dbName,
		User:   gconfig.Shared.GetString("settings.db.registry.user"),
		Pwd:    gconfig.Shared.GetString("settings.db.registry.pwd"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to registry db")
	}

	return db, nil
}
