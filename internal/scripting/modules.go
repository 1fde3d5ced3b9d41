package scripting

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/survivors/internal/game/dice"
)

// Host is the slice of a running simulation scripts may act on. The queue
// calls take effect at the start of the next tick; Roller is the run's own
// random source.
type Host interface {
	QueueSpawn(enemyID string, count int)
	QueueHeal(amount float64)
	Roller() *dice.Roller
}

// registerModules installs the engine table into rt's VM.
//
// Postcondition: engine.log, engine.spawn, engine.heal and engine.roll are
// defined.
func (rt *Runtime) registerModules() {
	L := rt.L
	engine := L.NewTable()
	L.SetFuncs(engine, map[string]lua.LGFunction{
		"log":   rt.luaLog,
		"spawn": rt.luaSpawn,
		"heal":  rt.luaHeal,
		"roll":  rt.luaRoll,
	})
	L.SetGlobal("engine", engine)
}

// engine.log(msg)
func (rt *Runtime) luaLog(L *lua.LState) int {
	rt.logger.Info(L.CheckString(1), zap.String("stage", rt.stage))
	return 0
}

// engine.spawn(enemy_id, count)
func (rt *Runtime) luaSpawn(L *lua.LState) int {
	id := L.CheckString(1)
	count := L.OptInt(2, 1)
	if count < 1 {
		return 0
	}
	if rt.host != nil {
		rt.host.QueueSpawn(id, count)
	}
	return 0
}

// engine.heal(amount)
func (rt *Runtime) luaHeal(L *lua.LState) int {
	amount := float64(L.CheckNumber(1))
	if amount <= 0 {
		return 0
	}
	if rt.host != nil {
		rt.host.QueueHeal(amount)
	}
	return 0
}

// engine.roll(expr) returns the total of an amount expression such as
// "2d6+1", or nil and an error message.
func (rt *Runtime) luaRoll(L *lua.LState) int {
	if rt.roller == nil {
		L.Push(lua.LNil)
		L.Push(lua.LString("engine.roll: no random source"))
		return 2
	}
	res, err := rt.roller.RollExpr(L.CheckString(1))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(res.Total()))
	return 1
}
