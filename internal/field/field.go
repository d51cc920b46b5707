// Package field is the shared resource ledger for one match: fuel pool
// accounting under a fixed-total conservation invariant, the transit queue
// that recycles scored and missed fuel back onto the field, hub congestion
// estimates and tower occupancy.
package field

import (
	"fmt"
	"math"

	"frcsim/internal/config"
	"frcsim/internal/model"
)

// State is the ledger snapshot. Fuel held or pushed by robots lives on the
// RobotState records; the invariant ties everything together:
//
//	neutral + redOutpost + blueOutpost + inFlight + inTransit
//	  + sum(robot.FuelHeld + robot.FuelPushed) == config.TotalFuel
type State struct {
	NeutralFuel     int
	RedOutpostFuel  int
	BlueOutpostFuel int
	FuelInFlight    int
	FuelInTransit   int

	RedTowerOccupants  []string
	BlueTowerOccupants []string

	CongestionRedHub  float64
	CongestionBlueHub float64
}

type transitEntry struct {
	returnTime float64
	count      int
}

// Manager owns the field state for one match. All mutations go through its
// methods so the conservation invariant survives every tick.
type Manager struct {
	state State

	// Time-ordered fuel scheduled to reappear in the neutral zone.
	transit []transitEntry
}

// NewManager returns a ledger in the match-start configuration: 20 fuel in
// the neutral zone, 10 at each outpost, and 20 preloaded across the six
// robots (tracked on their RobotState records).
func NewManager() *Manager {
	return &Manager{
		state: State{
			NeutralFuel:     config.InitialNeutralFuel,
			RedOutpostFuel:  config.InitialOutpostFuel,
			BlueOutpostFuel: config.InitialOutpostFuel,
		},
	}
}

// State returns the current ledger snapshot. Callers treat it as read-only;
// mutations go through Manager methods.
func (m *Manager) State() *State {
	return &m.state
}

// Tick advances the ledger: fuel whose transit timer has expired returns to
// the neutral zone, and hub congestion is recomputed from robot positions.
// Called once per simulation tick before any robot acts.
func (m *Manager) Tick(now float64, robots []*model.RobotState) {
	pending := m.transit[:0]
	for _, e := range m.transit {
		if e.returnTime <= now {
			m.state.NeutralFuel += e.count
			m.state.FuelInTransit -= e.count
		} else {
			pending = append(pending, e)
		}
	}
	m.transit = pending

	m.updateCongestion(robots)
}

// Congestion scales linearly from 0 with one robot at the hub to 1.0 with
// all three, so a lone scorer pays no crowding penalty.
func (m *Manager) updateCongestion(robots []*model.RobotState) {
	redAtHub, blueAtHub := 0, 0
	for _, r := range robots {
		if r.Position != model.ZoneHub {
			continue
		}
		if r.Alliance == model.Red {
			redAtHub++
		} else {
			blueAtHub++
		}
	}
	m.state.CongestionRedHub = congestion(redAtHub)
	m.state.CongestionBlueHub = congestion(blueAtHub)
}

func congestion(n int) float64 {
	c := float64(n-1) / 2.0
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

// Congestion returns the hub congestion factor for the given alliance.
func (m *Manager) Congestion(a model.Alliance) float64 {
	if a == model.Red {
		return m.state.CongestionRedHub
	}
	return m.state.CongestionBlueHub
}

// FuelShot moves count fuel from a robot's hopper into flight. The caller
// has already decremented the robot's FuelHeld.
func (m *Manager) FuelShot(count int) {
	if count <= 0 {
		return
	}
	m.state.FuelInFlight += count
}

// FuelScored moves count airborne fuel into the hub fall-through transit,
// returning to the neutral zone after the hub transit time. Points are the
// match engine's business, not the ledger's.
func (m *Manager) FuelScored(count int, now float64) {
	if count <= 0 {
		return
	}
	m.state.FuelInFlight -= count
	m.enqueueTransit(now+config.FuelHubTransitTime, count)
}

// FuelMissed routes count airborne fuel that missed the hub through the
// transit queue with the longer miss recovery delay.
func (m *Manager) FuelMissed(count int, now float64) {
	if count <= 0 {
		return
	}
	m.state.FuelInFlight -= count
	m.enqueueTransit(now+config.FuelMissRecoveryTime, count)
}

func (m *Manager) enqueueTransit(returnTime float64, count int) {
	m.state.FuelInTransit += count
	m.transit = append(m.transit, transitEntry{returnTime: returnTime, count: count})
}

// TryIntake attempts to draw up to amount fuel from a zone and returns how
// many were actually acquired. A depleted zone yields zero, which is the
// starvation signal the behavior engine waits on. Alliance and midfield
// zones draw from the shared neutral pool, as does any unrecognized zone.
func (m *Manager) TryIntake(a model.Alliance, zone model.RobotZone, amount int) int {
	if amount <= 0 {
		return 0
	}
	if zone == model.ZoneOutpost {
		if a == model.Red {
			return drain(&m.state.RedOutpostFuel, amount)
		}
		return drain(&m.state.BlueOutpostFuel, amount)
	}
	return drain(&m.state.NeutralFuel, amount)
}

func drain(pool *int, amount int) int {
	actual := amount
	if *pool < actual {
		actual = *pool
	}
	*pool -= actual
	return actual
}

// PushFuel bulldozes up to amount fuel across the floor. Pushing is
// imprecise: a fixed fraction scatters back into the neutral pool and only
// the remainder arrives in a useful pile. Both destinations land in the
// neutral pool, so the ledger total never changes; the return value is the
// useful count. Only the neutral pool can be pushed from.
func (m *Manager) PushFuel(from model.RobotZone, amount int) int {
	if amount <= 0 {
		return 0
	}
	if from != model.ZoneNeutral && from != model.ZoneMidfield {
		return 0
	}
	moved := drain(&m.state.NeutralFuel, amount)
	if moved <= 0 {
		return 0
	}
	scattered := int(math.Floor(float64(moved) * config.PushScatterRate))
	arrived := moved - scattered
	m.state.NeutralFuel += scattered + arrived
	return arrived
}

// DepositNeutral returns count fuel to the neutral pool. Used when a push
// trip completes: the bulldozed pile and its scatter both land back on the
// floor as pickable fuel.
func (m *Manager) DepositNeutral(count int) {
	if count <= 0 {
		return
	}
	m.state.NeutralFuel += count
}

// DepositOutpost adds count fuel to the alliance's outpost pool. Preload
// fuel an alliance does not carry onto its robots stays at its outpost so
// the match total never changes.
func (m *Manager) DepositOutpost(a model.Alliance, count int) {
	if count <= 0 {
		return
	}
	if a == model.Red {
		m.state.RedOutpostFuel += count
	} else {
		m.state.BlueOutpostFuel += count
	}
}

// HPThrow launches one fuel from the alliance outpost toward the hub.
// Returns false when the outpost is empty; the caller only resolves the
// throw as scored or missed when the launch happened.
func (m *Manager) HPThrow(a model.Alliance) bool {
	if !m.drainOutpost(a) {
		return false
	}
	m.state.FuelInFlight++
	return true
}

// HPFeed hands one outpost fuel to a robot. The caller increments the
// robot's FuelHeld on a true return.
func (m *Manager) HPFeed(a model.Alliance) bool {
	return m.drainOutpost(a)
}

func (m *Manager) drainOutpost(a model.Alliance) bool {
	pool := &m.state.BlueOutpostFuel
	if a == model.Red {
		pool = &m.state.RedOutpostFuel
	}
	if *pool <= 0 {
		return false
	}
	*pool--
	return true
}

// CanClimb reports whether the robot may start climbing its alliance tower.
// Towers hold at most three robots; a robot already registered may always
// continue.
func (m *Manager) CanClimb(a model.Alliance, robotID string) bool {
	occ := m.towerOccupants(a)
	for _, id := range *occ {
		if id == robotID {
			return true
		}
	}
	return len(*occ) < config.MaxTowerOccupants
}

// RegisterClimb records the robot as a tower occupant. Idempotent.
func (m *Manager) RegisterClimb(a model.Alliance, robotID string) {
	occ := m.towerOccupants(a)
	for _, id := range *occ {
		if id == robotID {
			return
		}
	}
	*occ = append(*occ, robotID)
}

func (m *Manager) towerOccupants(a model.Alliance) *[]string {
	if a == model.Red {
		return &m.state.RedTowerOccupants
	}
	return &m.state.BlueTowerOccupants
}

// CheckConservation verifies the fuel total across every pool and robot.
// A non-nil error means a bookkeeping bug, not a recoverable condition.
func (m *Manager) CheckConservation(robots []*model.RobotState) error {
	inRobots := 0
	for _, r := range robots {
		inRobots += r.FuelHeld + r.FuelPushed
	}
	total := m.state.NeutralFuel + m.state.RedOutpostFuel + m.state.BlueOutpostFuel +
		m.state.FuelInFlight + m.state.FuelInTransit + inRobots
	if total != config.TotalFuel {
		return fmt.Errorf(
			"fuel conservation violated: counted %d, expected %d (neutral=%d red_outpost=%d blue_outpost=%d in_flight=%d in_transit=%d in_robots=%d)",
			total, config.TotalFuel,
			m.state.NeutralFuel, m.state.RedOutpostFuel, m.state.BlueOutpostFuel,
			m.state.FuelInFlight, m.state.FuelInTransit, inRobots,
		)
	}
	return nil
}
