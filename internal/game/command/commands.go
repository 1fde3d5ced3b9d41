// Package command provides the text command registry, parser and the
// executor that turns a line of input into a run command.
package command

import "github.com/cory-johannsen/survivors/internal/game/geom"

// Categories for organizing commands.
const (
	CategoryMovement = "movement"
	CategoryRun      = "run"
	CategoryMeta     = "meta"
	CategorySystem   = "system"
)

// Handler identifiers mapping commands to run operations.
const (
	HandlerMove   = "move"
	HandlerStop   = "stop"
	HandlerPause  = "pause"
	HandlerChoose = "choose"
	HandlerStart  = "start"
	HandlerBuy    = "buy"
	HandlerShop   = "shop"
	HandlerStatus = "status"
	HandlerHelp   = "help"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Help is the short help text.
	Help string
	// Category groups the command for help output.
	Category string
	// Handler selects the run operation the executor performs.
	Handler string
}

// BuiltinCommands returns every built-in command.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "north", Aliases: []string{"n"}, Help: "Walk north", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "south", Aliases: []string{"s"}, Help: "Walk south", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "east", Aliases: []string{"e"}, Help: "Walk east", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "west", Aliases: []string{"w"}, Help: "Walk west", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "northeast", Aliases: []string{"ne"}, Help: "Walk northeast", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "northwest", Aliases: []string{"nw"}, Help: "Walk northwest", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "southeast", Aliases: []string{"se"}, Help: "Walk southeast", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "southwest", Aliases: []string{"sw"}, Help: "Walk southwest", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "move", Aliases: []string{"mv"}, Help: "Walk along a vector (move <x> <y>) or a direction (move <dir>)", Category: CategoryMovement, Handler: HandlerMove},
		{Name: "stop", Aliases: []string{"halt"}, Help: "Stand still", Category: CategoryMovement, Handler: HandlerStop},

		{Name: "start", Aliases: []string{"run"}, Help: "Start a run (start [character] [stage])", Category: CategoryRun, Handler: HandlerStart},
		{Name: "pause", Aliases: []string{"p"}, Help: "Pause or resume the run", Category: CategoryRun, Handler: HandlerPause},
		{Name: "choose", Aliases: []string{"c", "pick"}, Help: "Take an offered upgrade (choose <1..n>)", Category: CategoryRun, Handler: HandlerChoose},
		{Name: "status", Aliases: []string{"st"}, Help: "Show the run state", Category: CategoryRun, Handler: HandlerStatus},

		{Name: "shop", Aliases: []string{"upgrades"}, Help: "List permanent upgrades", Category: CategoryMeta, Handler: HandlerShop},
		{Name: "buy", Aliases: []string{"purchase"}, Help: "Buy a permanent upgrade level (buy <upgrade>)", Category: CategoryMeta, Handler: HandlerBuy},

		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
	}
}

// directions are unit compass vectors; north is -Y, matching screen
// coordinates.
var directions = map[string]geom.Vec2{
	"north":     geom.V(0, -1),
	"south":     geom.V(0, 1),
	"east":      geom.V(1, 0),
	"west":      geom.V(-1, 0),
	"northeast": geom.V(1, -1).Normalize(),
	"northwest": geom.V(-1, -1).Normalize(),
	"southeast": geom.V(1, 1).Normalize(),
	"southwest": geom.V(-1, 1).Normalize(),
}

// Direction returns the unit vector for a canonical compass name.
func Direction(name string) (geom.Vec2, bool) {
	v, ok := directions[name]
	return v, ok
}

// IsMovementCommand reports whether the command name is a compass direction.
func IsMovementCommand(name string) bool {
	_, ok := directions[name]
	return ok
}
