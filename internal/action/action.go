// Package action implements the action scheduler that sits above the
// opcode-dispatched rule engine (§4.6): a named Action wraps one analysis
// or rewrite step (which may itself be an ActionPool sweep, a heritage
// pass, or a bespoke transform), and an ActionGroup sequences Actions into
// the "universal action tree" that drives one function through the whole
// pipeline.
package action

import "github.com/tsgates/pcodec/internal/ir"

// Flag controls how an ActionGroup schedules one Action across passes.
type Flag uint32

const (
	// RuleOncePerFunc runs the action at most once per function, even if
	// its enclosing group restarts.
	RuleOncePerFunc Flag = 1 << iota
	// RuleRepeatApply re-invokes the action within the same group pass
	// until it reports no change.
	RuleRepeatApply
	// RuleRestartGroup, when the action reports a change, restarts its
	// enclosing group from the beginning rather than continuing to the
	// next action in sequence.
	RuleRestartGroup
)

func (f Flag) Has(bit Flag) bool { return f&bit != 0 }

// Action is one named analysis or rewrite step over a function.
type Action interface {
	Name() string
	// Apply performs one invocation of the action, returning whether it
	// changed the function.
	Apply(f *ir.Funcdata) (bool, error)
}

// ActionFunc adapts a plain function to the Action interface.
type ActionFunc struct {
	FuncName string
	Fn       func(f *ir.Funcdata) (bool, error)
}

func (a ActionFunc) Name() string { return a.FuncName }
func (a ActionFunc) Apply(f *ir.Funcdata) (bool, error) { return a.Fn(f) }

type entry struct {
	action Action
	flags  Flag
}

// Group is a named, ordered sequence of actions — a node in the universal
// action tree. Groups may nest: a sub-Group satisfies the Action
// interface itself, so composing a tree is just nesting Groups and leaf
// Actions.
type Group struct {
	name    string
	entries []entry
	ran     map[string]bool // once-per-func bookkeeping, keyed by action name
}

func NewGroup(name string) *Group {
	return &Group{name: name, ran: make(map[string]bool)}
}

func (g *Group) Name() string { return g.name }

// Add registers an action with its scheduling flags, in sequence order.
func (g *Group) Add(a Action, flags Flag) *Group {
	g.entries = append(g.entries, entry{action: a, flags: flags})
	return g
}

// Apply runs the group's actions once through in sequence, honouring each
// entry's flags, and reports whether anything in the group changed f.
func (g *Group) Apply(f *ir.Funcdata) (bool, error) {
	anyChanged := false
	i := 0
	for i < len(g.entries) {
		e := g.entries[i]
		if e.flags.Has(RuleOncePerFunc) && g.ran[e.action.Name()] {
			i++
			continue
		}

		changed, err := e.action.Apply(f)
		if err != nil {
			return anyChanged, err
		}
		g.ran[e.action.Name()] = true

		if changed {
			anyChanged = true
			if e.flags.Has(RuleRepeatApply) {
				for {
					again, err := e.action.Apply(f)
					if err != nil {
						return anyChanged, err
					}
					if !again {
						break
					}
				}
			}
			if e.flags.Has(RuleRestartGroup) {
				i = 0
				continue
			}
		}
		i++
	}
	return anyChanged, nil
}

// Database is the top-level registry of named groups, resolved by name so
// that a config-driven preset (see internal/config) can select which
// group to run without the caller constructing the tree in code.
type Database struct {
	groups map[string]*Group
	order  []string
}

func NewDatabase() *Database {
	return &Database{groups: make(map[string]*Group)}
}

func (d *Database) Register(g *Group) {
	if _, exists := d.groups[g.name]; !exists {
		d.order = append(d.order, g.name)
	}
	d.groups[g.name] = g
}

func (d *Database) Get(name string) (*Group, bool) {
	g, ok := d.groups[name]
	return g, ok
}

func (d *Database) Names() []string { return append([]string(nil), d.order...) }
