/*
Package engine wires the four ledgers into one ready-to-use engine.

PURPOSE:
  Construction lives here so every entry point (CLI, tests, a future
  transport layer) assembles the same graph: one policy Settings, one
  per-employee lock table shared by all mutating ledgers, the payroll
  profile store doubling as the overtime rate source.

WIRING:
  punch.Ledger    <- punch.Store,    Settings, NetworkPolicy, KeyedMutex
  leave.Ledger    <- leave.Store,    Settings,                KeyedMutex
  overtime.Ledger <- overtime.Store, payroll.Profiles,        KeyedMutex
  payroll.Calculator <- punch.Ledger, payroll.Profiles, payroll.Store

  The shared KeyedMutex is what serializes an employee's mutations across
  ledgers; constructing ledgers with separate lock tables would lose that.

SEE ALSO:
  - store/sqlite: the persistent backing
  - store/memory: the test/dev backing
*/
package engine

import (
	"github.com/warp/timecomp/leave"
	"github.com/warp/timecomp/ledger"
	"github.com/warp/timecomp/overtime"
	"github.com/warp/timecomp/payroll"
	"github.com/warp/timecomp/policy"
	"github.com/warp/timecomp/punch"
	"github.com/warp/timecomp/store/memory"
	"github.com/warp/timecomp/store/sqlite"
)

// Stores carries one implementation of each persistence port.
type Stores struct {
	Punch    punch.Store
	Leave    leave.Store
	Overtime overtime.Store
	Payroll  payroll.Store
}

// Engine is the assembled time & compensation engine.
type Engine struct {
	Settings *policy.Settings

	Punch    *punch.Ledger
	Leave    *leave.Ledger
	Overtime *overtime.Ledger
	Profiles *payroll.Profiles
	Payroll  *payroll.Calculator
}

// New assembles an engine over the given stores. A nil network policy means
// every punch origin is accepted.
func New(stores Stores, settings *policy.Settings, network punch.NetworkPolicy) *Engine {
	if settings == nil {
		settings = policy.Default()
	}
	locks := ledger.NewKeyedMutex()
	profiles := payroll.NewProfiles(stores.Payroll, settings)
	punchLedger := punch.NewLedger(stores.Punch, settings, network, locks)

	return &Engine{
		Settings: settings,
		Punch:    punchLedger,
		Leave:    leave.NewLedger(stores.Leave, settings, locks),
		Overtime: overtime.NewLedger(stores.Overtime, profiles, settings, locks),
		Profiles: profiles,
		Payroll:  payroll.NewCalculator(punchLedger, profiles, stores.Payroll, settings),
	}
}

// NewSQLite assembles an engine backed by one SQLite database.
func NewSQLite(db *sqlite.DB, settings *policy.Settings, network punch.NetworkPolicy) *Engine {
	return New(Stores{
		Punch:    db.Punch(),
		Leave:    db.Leave(),
		Overtime: db.Overtime(),
		Payroll:  db.Payroll(),
	}, settings, network)
}

// NewInMemory assembles an engine on the in-memory stores.
func NewInMemory(settings *policy.Settings, network punch.NetworkPolicy) *Engine {
	return New(Stores{
		Punch:    memory.NewPunch(),
		Leave:    memory.NewLeave(),
		Overtime: memory.NewOvertime(),
		Payroll:  memory.NewPayroll(),
	}, settings, network)
}
