package httpapi

import (
	"database/sql"
	"sync/atomic"

	"probatescout-engine/internal/config"
	"probatescout-engine/internal/events"
	"probatescout-engine/internal/resolve"
	"probatescout-engine/internal/search"
)

type Deps struct {
	DB *sql.DB

	Hub *events.Hub

	// Atomic config snapshot
	CfgVal *atomic.Value // stores config.Config

	// Config persistence
	UserCfgPath string
	LoadCfg     func() (config.Config, error)

	Resolver *resolve.Resolver
	Search   *search.Runner
}
