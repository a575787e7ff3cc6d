package condition

import (
	"github.com/AaronLay10/EpisodeEngine/internal/events"
	"github.com/AaronLay10/EpisodeEngine/internal/scene"
)

// Observer runs once per tick before the tree is evaluated. Tasks use it
// for per-tick feedback such as recoloring a pressed button.
type Observer func(s scene.Sensors)

// Tree is the per-episode success predicate. Terminal sets that have been
// satisfied are latched and not re-evaluated until Reset.
type Tree struct {
	root      *Node
	observers []Observer
	latched   map[*Node]bool
	met       bool
	ticks     int
}

// NewTree validates root and returns a tree ready for ticking.
func NewTree(root *Node, observers ...Observer) (*Tree, error) {
	if err := root.Validate(); err != nil {
		return nil, err
	}
	return &Tree{
		root:      root,
		observers: observers,
		latched:   make(map[*Node]bool),
	}, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.root
}

// Tick runs the observers, evaluates the tree and reports whether it is met.
// condition.met is emitted on the first satisfied tick.
func (t *Tree) Tick(s scene.Sensors) bool {
	t.ticks++
	for _, obs := range t.observers {
		obs(s)
	}

	met, _ := t.root.evaluate(s, t.latched)
	if met && !t.met {
		events.Emit("info", "condition.met", "", map[string]interface{}{
			"condition": t.root.String(),
			"tick":      t.ticks,
		})
	}
	t.met = met
	return met
}

// Met reports the result of the last tick.
func (t *Tree) Met() bool {
	return t.met
}

// Reset clears latches and the last result.
func (t *Tree) Reset() {
	t.latched = make(map[*Node]bool)
	t.met = false
	t.ticks = 0
	events.Emit("info", "condition.reset", "", nil)
}
