package authorize

import (
	"context"
	"log/slog"
	"sync/atomic"

	psqlwatcher "github.com/IguteChung/casbin-psql-watcher"
	casbin "github.com/casbin/casbin/v2"
	entadapter "github.com/casbin/ent-adapter"
)

// policyLoadHealthy flips to false when a watcher-triggered policy reload
// fails, which the readiness probe surfaces.
var policyLoadHealthy atomic.Bool

func init() {
	policyLoadHealthy.Store(true)
}

// IsPolicyHealthy reports whether the last policy reload succeeded.
func IsPolicyHealthy() bool {
	return policyLoadHealthy.Load()
}

// CleanupFunc releases enforcer resources on shutdown.
type CleanupFunc func(ctx context.Context)

// NewEnforcer builds a Casbin DistributedEnforcer backed by the policy
// database. With policySync enabled it also subscribes a PostgreSQL
// NOTIFY watcher, so policy writes on one instance reach every other
// instance without a restart.
func NewEnforcer(modelPath, dsn string, policySync bool) (*casbin.DistributedEnforcer, CleanupFunc, error) {
	adapter, err := entadapter.NewAdapter("postgres", dsn)
	if err != nil {
		return nil, nil, err
	}

	e, err := casbin.NewDistributedEnforcer(modelPath, adapter)
	if err != nil {
		return nil, nil, err
	}
	e.EnableAutoSave(true)
	e.EnableEnforce(true)

	if !policySync {
		cleanup := func(ctx context.Context) {
			e.StopAutoLoadPolicy()
		}
		return e, cleanup, nil
	}

	// The channel is app-scoped so another service sharing the database
	// cannot trigger reloads here.
	w, err := psqlwatcher.NewWatcherWithConnString(context.Background(), dsn,
		psqlwatcher.Option{Channel: "ovelia_casbin_policies"})
	if err != nil {
		return nil, nil, err
	}

	reload := func(msg string) {
		slog.Debug("policy change notification", "message", msg)
		if err := e.LoadPolicy(); err != nil {
			slog.Error("reload policies after notify", "error", err)
			policyLoadHealthy.Store(false)
			return
		}
		policyLoadHealthy.Store(true)
	}
	if err := w.SetUpdateCallback(reload); err != nil {
		return nil, nil, err
	}
	if err := e.SetWatcher(w); err != nil {
		return nil, nil, err
	}

	cleanup := func(ctx context.Context) {
		slog.Info("closing casbin policy watcher")
		w.Close()
		e.StopAutoLoadPolicy()
	}
	return e, cleanup, nil
}
