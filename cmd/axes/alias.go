package main

import (
	"github.com/spf13/cobra"
)

var aliasCmd = &cobra.Command{
	Use:   "alias",
	Short: "manage the alias map (g!, name!, ...) decoupled from the project hierarchy",
}

var aliasSetCmd = &cobra.Command{
	Use:   "set <alias> <context>",
	Short: "register alias (without its trailing !) for a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		res, err := resolve(store, args[1])
		if err != nil {
			return err
		}
		return store.SetAlias(args[0], res.UUID)
	},
}

var aliasRmCmd = &cobra.Command{
	Use:   "rm <alias>",
	Short: "remove an alias",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		return store.RemoveAlias(args[0])
	},
}

func init() {
	aliasCmd.AddCommand(aliasSetCmd, aliasRmCmd)
}
