package cmd

import (
	"github.com/josephlewis42/pipegate/commands"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// builtinCmd holds the helper commands. It's a separate tree reached through
// `pipegate builtin` so its names never shadow a stage program.
var builtinCmd = &cobra.Command{
	Use:           "builtin",
	Short:         "Helper commands bundled with pipegate.",
	SilenceErrors: true,
	SilenceUsage:  true,
}

func builtinExit(code int) error {
	if code == 0 {
		return nil
	}
	return exitCodeError(code)
}

var printCmd = &cobra.Command{
	Use:                "print [TEXT] ...",
	Short:              "Print each TEXT followed by a newline.",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := commands.Print(append([]string{"print"}, args...), cmd.OutOrStdout(), cmd.ErrOrStderr())
		return builtinExit(code)
	},
}

var treeCmd = &cobra.Command{
	Use:                "tree [DIR]",
	Short:              "List a directory and its subdirectories recursively.",
	DisableFlagParsing: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code := commands.Tree(append([]string{"tree"}, args...), afero.NewOsFs(), cmd.OutOrStdout(), cmd.ErrOrStderr())
		return builtinExit(code)
	},
}

func init() {
	builtinCmd.PersistentFlags().StringVar(&cfgPath, "config", ".", "directory containing pipegate.yaml")
	builtinCmd.AddCommand(printCmd)
	builtinCmd.AddCommand(treeCmd)
}
