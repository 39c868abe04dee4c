package merchant

import (
	"context"
	"fmt"
	"io"

	"github.com/alovak/cardflow-paycharge/internal/state"
)

const (
	BackendFile     = "file"
	BackendMem      = "mem"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Stores is the durable state the service commits to after an approval.
type Stores struct {
	Sequence SequenceStore
	Orders   OrderRegistry
	closer   io.Closer
}

func (s *Stores) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// OpenStores builds the state backend selected by cfg.StateBackend. The mem
// backend is refused unless ALLOW_MEM_BACKEND_FOR_TESTS=true.
func OpenStores(ctx context.Context, cfg *Config) (*Stores, error) {
	switch cfg.StateBackend {
	case BackendFile, "":
		return &Stores{
			Sequence: state.NewFileSequence(cfg.SequenceFile),
			Orders:   state.NewFileOrders(cfg.OrderFile),
		}, nil
	case BackendMem:
		if getenv("ALLOW_MEM_BACKEND_FOR_TESTS", "false") != "true" {
			return nil, fmt.Errorf("mem state backend is disabled at runtime; set ALLOW_MEM_BACKEND_FOR_TESTS=true only in tests")
		}
		m := state.NewMemory()
		return &Stores{Sequence: m, Orders: m}, nil
	case BackendSQLite, BackendPostgres:
		dialect := state.SQLite
		if cfg.StateBackend == BackendPostgres {
			dialect = state.Postgres
		}
		store, err := state.OpenSQL(ctx, dialect, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening %s state: %w", cfg.StateBackend, err)
		}
		return &Stores{Sequence: store, Orders: store, closer: store}, nil
	case BackendRedis:
		store, err := state.OpenRedis(ctx, cfg.RedisAddr, cfg.RedisPrefix)
		if err != nil {
			return nil, fmt.Errorf("opening redis state: %w", err)
		}
		return &Stores{Sequence: store, Orders: store, closer: store}, nil
	default:
		return nil, fmt.Errorf("unsupported state_backend=%s", cfg.StateBackend)
	}
}
