// Package scripting runs stage scripts in sandboxed GopherLua VMs. Scripts
// react to simulation events through on_<event kind> hooks and act on the
// run only through the queued engine.* commands.
package scripting

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	lua "github.com/yuin/gopher-lua"
)

// DefaultInstructionLimit is the opcode budget of one script call when the
// configuration sets none.
const DefaultInstructionLimit = 100_000

// ErrBudgetExhausted marks a call stopped for running out of opcodes.
var ErrBudgetExhausted = errors.New("scripting: instruction budget exhausted")

// unsafeGlobals are base library functions scripts may not reach.
var unsafeGlobals = []string{"dofile", "loadfile", "load", "loadstring", "collectgarbage", "require"}

// opBudget is a context that GopherLua polls once per opcode; it cancels
// itself when the budget reaches zero.
type opBudget struct {
	context.Context
	cancel context.CancelFunc
	left   atomic.Int64
	spent  atomic.Bool
}

func newOpBudget(limit int) *opBudget {
	ctx, cancel := context.WithCancel(context.Background())
	b := &opBudget{Context: ctx, cancel: cancel}
	b.left.Store(int64(limit))
	return b
}

func (b *opBudget) Done() <-chan struct{} {
	if b.left.Add(-1) <= 0 && !b.spent.Swap(true) {
		b.cancel()
	}
	return b.Context.Done()
}

// NewSandboxedState returns a VM with only the base, table, string and math
// libraries and without the loaders in unsafeGlobals.
//
// Postcondition: the caller owns the LState and must Close it.
func NewSandboxedState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		open(L)
	}
	for _, name := range unsafeGlobals {
		L.SetGlobal(name, lua.LNil)
	}
	return L
}

// Limited runs fn with L bounded to limit opcodes; limit <= 0 uses
// DefaultInstructionLimit. Every call gets a fresh budget.
//
// Postcondition: an exhausted budget yields an error matching
// ErrBudgetExhausted; L carries no context once Limited returns.
func Limited(L *lua.LState, limit int, fn func() error) error {
	if limit <= 0 {
		limit = DefaultInstructionLimit
	}
	b := newOpBudget(limit)
	defer b.cancel()
	L.SetContext(b)
	defer L.RemoveContext()
	err := fn()
	if err != nil && b.spent.Load() {
		return fmt.Errorf("%w after %d opcodes: %v", ErrBudgetExhausted, limit, err)
	}
	return err
}
