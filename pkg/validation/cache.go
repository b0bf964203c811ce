// Package validation memoises environment checks and validates project
// configuration.
package validation

import (
	"context"

	"github.com/releasekit/releasectl/pkg/builderr"
	"github.com/releasekit/releasectl/pkg/logger"
	"github.com/releasekit/releasectl/pkg/types"
)

// Check verifies one precondition. A nil error makes the fact true.
type Check func(ctx context.Context) error

type entry struct {
	check   Check
	deps    []types.FactID
	state   types.Fact
	err     error
	running bool
}

// Cache holds the tri-state facts of one invocation. Every registered check
// runs at most once; later lookups return the stored outcome. A Cache is
// not safe for concurrent use.
type Cache struct {
	entries map[types.FactID]*entry
	order   []types.FactID
	logger  logger.Logger
}

// NewCache creates an empty cache
func NewCache(log logger.Logger) *Cache {
	if log == nil {
		log = logger.Discard()
	}
	return &Cache{
		entries: make(map[types.FactID]*entry),
		logger:  log,
	}
}

// Register adds a fact with the facts it depends on. Registering an id
// again replaces the check and resets the fact to unknown.
func (c *Cache) Register(id types.FactID, check Check, deps ...types.FactID) {
	if _, exists := c.entries[id]; !exists {
		c.order = append(c.order, id)
	}
	c.entries[id] = &entry{
		check: check,
		deps:  append([]types.FactID(nil), deps...),
	}
}

// Ensure resolves a fact, running its check on first use. A false
// dependency makes the fact false without running its check.
func (c *Cache) Ensure(ctx context.Context, id types.FactID) error {
	e, ok := c.entries[id]
	if !ok {
		return builderr.New(builderr.KindEnvironment, "no check registered for %s", id)
	}

	switch e.state {
	case types.FactTrue:
		return nil
	case types.FactFalse:
		return e.err
	}

	if e.running {
		return builderr.New(builderr.KindEnvironment, "validation cycle through %s", id)
	}
	e.running = true
	defer func() { e.running = false }()

	for _, dep := range e.deps {
		if err := c.Ensure(ctx, dep); err != nil {
			if builderr.KindOf(err) == builderr.KindEnvironment && c.state(dep) == types.FactUnknown {
				// cycle or missing registration; leave the fact unresolved
				return err
			}
			c.settle(id, e, err)
			return err
		}
	}

	err := e.check(ctx)
	if err != nil && builderr.KindOf(err) == 0 {
		err = builderr.Wrap(builderr.KindEnvironment, err, "%s check failed", id)
	}
	c.settle(id, e, err)
	return err
}

func (c *Cache) settle(id types.FactID, e *entry, err error) {
	if err != nil {
		e.state = types.FactFalse
		e.err = err
		c.logger.Debug("Fact resolved", logger.WithField("fact", id), logger.WithField("state", e.state), logger.WithError(err))
		return
	}
	e.state = types.FactTrue
	c.logger.Debug("Fact resolved", logger.WithField("fact", id), logger.WithField("state", e.state))
}

func (c *Cache) state(id types.FactID) types.Fact {
	if e, ok := c.entries[id]; ok {
		return e.state
	}
	return types.FactUnknown
}

// State returns the current value of a fact without resolving it
func (c *Cache) State(id types.FactID) types.Fact {
	return c.state(id)
}

// Err returns the stored failure of a false fact
func (c *Cache) Err(id types.FactID) error {
	if e, ok := c.entries[id]; ok {
		return e.err
	}
	return nil
}

// FactState pairs a fact with its current value
type FactState struct {
	ID    types.FactID
	State types.Fact
	Err   error
}

// Snapshot lists every registered fact in registration order
func (c *Cache) Snapshot() []FactState {
	out := make([]FactState, 0, len(c.order))
	for _, id := range c.order {
		e := c.entries[id]
		out = append(out, FactState{ID: id, State: e.state, Err: e.err})
	}
	return out
}
