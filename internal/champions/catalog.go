package champions

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Catalog resolves champion keys to names and lane preferences. It is safe
// for concurrent use; the tables are never mutated after construction.
type Catalog struct {
	names    map[int]string
	lanes    map[int]Role
	affinity Affinity
	logger   *zap.Logger
	warned   sync.Map // champion id -> struct{}
}

// NewCatalog builds a catalog over the built-in tables. affinity may be nil.
func NewCatalog(logger *zap.Logger, affinity Affinity) *Catalog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		names:    championNames,
		lanes:    staticRoles,
		affinity: affinity,
		logger:   logger,
	}
}

// Name returns the display name for id, or a Champion_<id> placeholder.
// The first miss per id is logged.
func (c *Catalog) Name(id int) string {
	if name, ok := c.names[id]; ok {
		return name
	}
	if _, loaded := c.warned.LoadOrStore(id, struct{}{}); !loaded {
		c.logger.Warn("unknown champion id", zap.Int("champion_id", id))
	}
	return fmt.Sprintf("Champion_%d", id)
}

func (c *Catalog) staticRole(id int) (Role, bool) {
	role, ok := c.lanes[id]
	return role, ok
}

func (c *Catalog) HasAffinity() bool { return len(c.affinity) > 0 }

// Preferences returns the ranked lanes for a champion: the affinity entry
// for its normalized name, else the static lane for id, else nil.
func (c *Catalog) Preferences(name string, id int) []Role {
	if prefs, ok := c.affinity[Normalize(name)]; ok && len(prefs) > 0 {
		return prefs
	}
	if role, ok := c.staticRole(id); ok {
		return []Role{role}
	}
	return nil
}
