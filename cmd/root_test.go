package main

import (
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandNames(c *cobra.Command) map[string]bool {
	names := make(map[string]bool)
	for _, sub := range c.Commands() {
		names[sub.Name()] = true
	}
	return names
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := commandNames(rootCmd)

	expected := []string{"build", "leaves", "sample", "validate", "codes", "parse", "zone", "library"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "scheme-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	require.NotNil(t, rootCmd.PersistentFlags().Lookup("schema"))
}

func TestZoneCommand_HasRename(t *testing.T) {
	assert.True(t, commandNames(zoneCmd)["rename"])
}

func TestLibraryCommand_HasSubcommands(t *testing.T) {
	names := commandNames(libraryCmd)
	for _, name := range []string{"save", "list", "show", "delete"} {
		assert.True(t, names[name], "library should have subcommand %q", name)
	}
}

func TestCommand_Flags(t *testing.T) {
	tests := []struct {
		cmd   *cobra.Command
		flags []string
	}{
		{buildCmd, []string{"survey", "out", "library", "source", "quality"}},
		{leavesCmd, []string{"ms", "zone", "no-modifiers", "positional", "format"}},
		{sampleCmd, []string{"ms", "count", "seed", "workers"}},
		{validateCmd, []string{"ms"}},
		{codesCmd, []string{"attribute", "parent"}},
		{zoneRenameCmd, []string{"ms", "from", "to"}},
		{librarySaveCmd, []string{"ms", "source", "quality", "notes"}},
		{libraryShowCmd, []string{"out"}},
	}
	for _, tt := range tests {
		for _, f := range tt.flags {
			assert.NotNil(t, tt.cmd.Flags().Lookup(f), "%s should have --%s flag", tt.cmd.Name(), f)
		}
	}
}

func TestLeavesCommand_FormatDefault(t *testing.T) {
	flag := leavesCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)
}
