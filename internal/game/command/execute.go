package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cory-johannsen/survivors/internal/game/geom"
	"github.com/cory-johannsen/survivors/internal/game/meta"
	"github.com/cory-johannsen/survivors/internal/game/sim"
)

var (
	// ErrUnknownCommand is returned for input that matches no command.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrUsage is returned when a command's arguments are malformed.
	ErrUsage = errors.New("usage")
)

// Target is what commands act on: one player's run plus their meta profile.
type Target interface {
	StartRun(characterID, stageID string) error
	SetMovement(v geom.Vec2) error
	TogglePause() (sim.State, error)
	SubmitChoice(index int) error
	Purchase(upgradeID string) (cost int, err error)
	Snapshot() sim.Snapshot
	Meta() meta.State
	Shop() *meta.Catalog
}

// Executor resolves text lines and runs them against a Target.
type Executor struct {
	Registry *Registry
	// DefaultCharacter and DefaultStage fill in a bare "start".
	DefaultCharacter string
	DefaultStage     string
}

// NewExecutor returns an Executor over the built-in commands.
func NewExecutor(defaultCharacter, defaultStage string) *Executor {
	return &Executor{
		Registry:         DefaultRegistry(),
		DefaultCharacter: defaultCharacter,
		DefaultStage:     defaultStage,
	}
}

// Execute runs line against t and returns the reply text.
//
// Postcondition: an empty line returns ("", nil); a failed command leaves
// t unchanged and returns a non-nil error.
func (x *Executor) Execute(t Target, line string) (string, error) {
	in := Parse(line)
	if in.Name == "" {
		return "", nil
	}
	cmd, ok := x.Registry.Resolve(in.Name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, in.Name)
	}

	switch cmd.Handler {
	case HandlerMove:
		v, err := moveVector(cmd.Name, in)
		if err != nil {
			return "", err
		}
		if err := t.SetMovement(v); err != nil {
			return "", err
		}
		return fmt.Sprintf("moving %.2f,%.2f", v.X, v.Y), nil

	case HandlerStop:
		if err := t.SetMovement(geom.Vec2{}); err != nil {
			return "", err
		}
		return "stopped", nil

	case HandlerPause:
		st, err := t.TogglePause()
		if err != nil {
			return "", err
		}
		return string(st), nil

	case HandlerChoose:
		n, err := in.Int(0)
		if err != nil {
			return "", fmt.Errorf("%w: choose <1..n>", ErrUsage)
		}
		if err := t.SubmitChoice(n - 1); err != nil {
			return "", err
		}
		return fmt.Sprintf("took option %d", n), nil

	case HandlerStart:
		char, stage := x.DefaultCharacter, x.DefaultStage
		if a := in.Arg(0); a != "" {
			char = a
		}
		if a := in.Arg(1); a != "" {
			stage = a
		}
		if err := t.StartRun(char, stage); err != nil {
			return "", err
		}
		return fmt.Sprintf("run started: %s on %s", char, stage), nil

	case HandlerBuy:
		id := in.Arg(0)
		if id == "" {
			return "", fmt.Errorf("%w: buy <upgrade>", ErrUsage)
		}
		cost, err := t.Purchase(id)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("bought %s for %d", id, cost), nil

	case HandlerShop:
		return FormatShop(t.Shop(), t.Meta()), nil

	case HandlerStatus:
		return FormatStatus(t.Snapshot()), nil

	case HandlerHelp:
		return x.help(), nil
	}
	return "", fmt.Errorf("%w: %q has no handler", ErrUnknownCommand, cmd.Name)
}

// moveVector reads a compass command, "move <dir>" or "move <x> <y>".
func moveVector(name string, in Input) (geom.Vec2, error) {
	if v, ok := Direction(name); ok {
		return v, nil
	}
	switch len(in.Args) {
	case 1:
		dir := strings.ToLower(in.Args[0])
		if c, ok := DefaultRegistry().Resolve(dir); ok {
			dir = c.Name
		}
		if v, ok := Direction(dir); ok {
			return v, nil
		}
	case 2:
		x, errX := in.Float(0)
		y, errY := in.Float(1)
		if errX == nil && errY == nil {
			return geom.V(x, y).Normalize(), nil
		}
	}
	return geom.Vec2{}, fmt.Errorf("%w: move <x> <y> | move <direction>", ErrUsage)
}

func (x *Executor) help() string {
	var b strings.Builder
	for _, cat := range []string{CategoryMovement, CategoryRun, CategoryMeta, CategorySystem} {
		cmds := x.Registry.InCategory(cat)
		if len(cmds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s:\n", cat)
		for _, c := range cmds {
			fmt.Fprintf(&b, "  %-10s %s\n", c.Name, c.Help)
		}
	}
	return b.String()
}

// FormatStatus renders a snapshot as a few lines of text.
func FormatStatus(s sim.Snapshot) string {
	if s.Player == nil {
		return fmt.Sprintf("state: %s", s.State)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "state: %s  stage: %s  time: %s  wave: %d\n",
		s.State, s.Stage, s.Elapsed.Truncate(time.Second), s.Wave+1)
	p := s.Player
	fmt.Fprintf(&b, "hp: %.0f/%.0f  level: %d (%.0f/%.0f)  kills: %d  gold: %d  enemies: %d\n",
		p.Health, p.MaxHealth, p.Level, p.Exp, p.ToNext, s.Kills, s.Currency, len(s.Enemies))
	for _, w := range p.Weapons {
		fmt.Fprintf(&b, "  weapon %s lv%d\n", w.ID, w.Level)
	}
	for _, ps := range p.Passives {
		fmt.Fprintf(&b, "  passive %s lv%d\n", ps.ID, ps.Level)
	}
	for i, c := range s.Choices {
		fmt.Fprintf(&b, "  [%d] %s\n", i+1, c.ID)
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatShop lists every upgrade with its owned level and next cost.
func FormatShop(cat *meta.Catalog, st meta.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "gold: %d\n", st.Currency)
	if cat == nil {
		return strings.TrimRight(b.String(), "\n")
	}
	for _, u := range cat.All() {
		lv := st.Level(u.ID)
		if lv >= u.MaxLevel {
			fmt.Fprintf(&b, "  %-14s %d/%d  maxed\n", u.ID, lv, u.MaxLevel)
			continue
		}
		fmt.Fprintf(&b, "  %-14s %d/%d  %d gold\n", u.ID, lv, u.MaxLevel, u.Cost(lv))
	}
	return strings.TrimRight(b.String(), "\n")
}
