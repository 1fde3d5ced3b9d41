package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()
	assert.NotNil(t, r)
	assert.Len(t, r.Commands(), len(BuiltinCommands()))
}

func TestResolve_CanonicalName(t *testing.T) {
	r := DefaultRegistry()
	cmd, ok := r.Resolve("north")
	assert.True(t, ok)
	assert.Equal(t, "north", cmd.Name)
	assert.Equal(t, HandlerMove, cmd.Handler)
}

func TestResolve_Alias(t *testing.T) {
	r := DefaultRegistry()
	cmd, ok := r.Resolve("n")
	assert.True(t, ok)
	assert.Equal(t, "north", cmd.Name)
}

func TestResolve_NotFound(t *testing.T) {
	r := DefaultRegistry()
	_, ok := r.Resolve("teleport")
	assert.False(t, ok)
}

func TestResolve_AllMovementDirections(t *testing.T) {
	r := DefaultRegistry()
	directions := []struct {
		name  string
		alias string
	}{
		{"north", "n"},
		{"south", "s"},
		{"east", "e"},
		{"west", "w"},
		{"northeast", "ne"},
		{"northwest", "nw"},
		{"southeast", "se"},
		{"southwest", "sw"},
	}
	for _, d := range directions {
		cmd, ok := r.Resolve(d.name)
		require.True(t, ok, "canonical name %q not found", d.name)
		assert.Equal(t, HandlerMove, cmd.Handler)

		aliasCmd, ok := r.Resolve(d.alias)
		require.True(t, ok, "alias %q not found", d.alias)
		assert.Equal(t, d.name, aliasCmd.Name)

		v, ok := Direction(d.name)
		require.True(t, ok)
		assert.InDelta(t, 1.0, v.Len(), 1e-9)
	}
}

func TestResolve_RunCommands(t *testing.T) {
	r := DefaultRegistry()
	tests := []struct {
		input   string
		handler string
	}{
		{"start", HandlerStart},
		{"run", HandlerStart},
		{"p", HandlerPause},
		{"pick", HandlerChoose},
		{"c", HandlerChoose},
		{"st", HandlerStatus},
		{"purchase", HandlerBuy},
		{"upgrades", HandlerShop},
		{"halt", HandlerStop},
		{"mv", HandlerMove},
		{"?", HandlerHelp},
	}
	for _, tt := range tests {
		cmd, ok := r.Resolve(tt.input)
		require.True(t, ok, "input %q not found", tt.input)
		assert.Equal(t, tt.handler, cmd.Handler, "input %q wrong handler", tt.input)
	}
}

func TestNewRegistry_DuplicateName(t *testing.T) {
	_, err := NewRegistry([]Command{{Name: "test", Handler: "a"}, {Name: "test", Handler: "b"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"test"`)
}

func TestNewRegistry_AliasClashesWithName(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "stop", Handler: "a"},
		{Name: "halt", Aliases: []string{"stop"}, Handler: "b"},
	})
	assert.Error(t, err)
}

func TestNewRegistry_DuplicateAlias(t *testing.T) {
	_, err := NewRegistry([]Command{
		{Name: "test1", Aliases: []string{"t"}, Handler: "a"},
		{Name: "test2", Aliases: []string{"t"}, Handler: "b"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "test1")
	assert.Contains(t, err.Error(), "test2")
}

func TestInCategory(t *testing.T) {
	r := DefaultRegistry()
	assert.Len(t, r.InCategory(CategoryMovement), 10)
	assert.NotEmpty(t, r.InCategory(CategoryRun))
	assert.NotEmpty(t, r.InCategory(CategoryMeta))
	assert.NotEmpty(t, r.InCategory(CategorySystem))
	assert.Empty(t, r.InCategory("combat"))
}

func TestCommands_SortedByName(t *testing.T) {
	cmds := DefaultRegistry().Commands()
	for i := 1; i < len(cmds); i++ {
		assert.Less(t, cmds[i-1].Name, cmds[i].Name)
	}
}

func TestPropertyAllAliasesResolveToCanonical(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := DefaultRegistry()
		cmds := r.Commands()
		cmd := cmds[rapid.IntRange(0, len(cmds)-1).Draw(t, "cmd_idx")]

		resolved, ok := r.Resolve(cmd.Name)
		if !ok || resolved.Name != cmd.Name {
			t.Fatalf("canonical name %q did not resolve to itself", cmd.Name)
		}
		for _, alias := range cmd.Aliases {
			aliasResolved, ok := r.Resolve(alias)
			if !ok || aliasResolved.Name != cmd.Name {
				t.Fatalf("alias %q did not resolve to %q", alias, cmd.Name)
			}
		}
	})
}

func TestIsMovementCommand(t *testing.T) {
	assert.True(t, IsMovementCommand("north"))
	assert.True(t, IsMovementCommand("southwest"))
	assert.False(t, IsMovementCommand("move"))
	assert.False(t, IsMovementCommand("status"))
}
