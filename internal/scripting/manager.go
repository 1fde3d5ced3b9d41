package scripting

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/dice"
	"github.com/cory-johannsen/survivors/internal/game/event"
)

// HookPrefix precedes the event kind in a hook's global name.
const HookPrefix = "on_"

// Manager opens per-run script runtimes from a scripts root laid out as
// <root>/<stage id>/*.lua.
type Manager struct {
	root      string
	instLimit int
	logger    *zap.Logger
}

// NewManager creates a Manager.
//
// Precondition: logger must be non-nil.
func NewManager(root string, instLimit int, logger *zap.Logger) *Manager {
	return &Manager{root: root, instLimit: instLimit, logger: logger}
}

// Open creates a runtime for one run on stageID and loads every *.lua file
// of the stage directory in lexicographic order. A stage without a script
// directory gets a runtime with no hooks.
//
// engine.roll draws from host.Roller(), the run's own random source.
//
// Postcondition: on error no VM is leaked.
func (m *Manager) Open(stageID string, host Host) (*Runtime, error) {
	rt := &Runtime{
		L:         NewSandboxedState(),
		stage:     stageID,
		host:      host,
		instLimit: m.instLimit,
		logger:    m.logger.With(zap.String("stage", stageID)),
	}
	if host != nil {
		rt.roller = host.Roller()
	}
	rt.registerModules()

	dir := filepath.Join(m.root, stageID)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return rt, nil
	}
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("scripting: reading script dir %q: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".lua" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	for _, path := range files {
		err := Limited(rt.L, rt.instLimit, func() error { return rt.L.DoFile(path) })
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("scripting: loading %q: %w", path, err)
		}
	}
	rt.logger.Debug("scripts loaded", zap.Int("files", len(files)))
	return rt, nil
}

// Runtime is one run's script VM. It is an event.Sink and must be driven
// from the simulation's goroutine.
type Runtime struct {
	L         *lua.LState
	stage     string
	host      Host
	instLimit int
	roller    *dice.Roller
	logger    *zap.Logger
}

// Publish calls the on_<kind> hook for e, if one is defined. Lua errors,
// including an exhausted instruction budget, are logged at Warn and dropped.
func (rt *Runtime) Publish(e event.Event) {
	if rt.L == nil {
		return
	}
	if _, err := rt.CallHook(HookPrefix+string(e.Kind), eventTable(rt.L, e)); err != nil {
		rt.logger.Warn("scripting: hook failed",
			zap.String("kind", string(e.Kind)),
			zap.Error(err),
		)
	}
}

// CallHook calls the global function hook with args.
//
// Postcondition: returns (LNil, nil) when hook is not defined; otherwise
// the hook's first return value or the Lua error.
func (rt *Runtime) CallHook(hook string, args ...lua.LValue) (lua.LValue, error) {
	if rt.L == nil {
		return lua.LNil, nil
	}
	fn := rt.L.GetGlobal(hook)
	if fn.Type() != lua.LTFunction {
		return lua.LNil, nil
	}
	err := Limited(rt.L, rt.instLimit, func() error {
		return rt.L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}, args...)
	})
	if err != nil {
		return lua.LNil, err
	}
	ret := rt.L.Get(-1)
	rt.L.Pop(1)
	return ret, nil
}

// Close releases the VM. Safe to call more than once.
func (rt *Runtime) Close() {
	if rt.L != nil {
		rt.L.Close()
		rt.L = nil
	}
}

// eventTable converts e to {kind, at_ms, subject, ref, x, y, value}.
func eventTable(L *lua.LState, e event.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("kind", lua.LString(e.Kind))
	t.RawSetString("at_ms", lua.LNumber(e.At.Milliseconds()))
	t.RawSetString("subject", lua.LNumber(e.SubjectID))
	t.RawSetString("ref", lua.LString(e.Ref))
	t.RawSetString("x", lua.LNumber(e.Pos.X))
	t.RawSetString("y", lua.LNumber(e.Pos.Y))
	t.RawSetString("value", lua.LNumber(e.Value))
	return t
}
