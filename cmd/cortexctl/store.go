package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeseh/cortex/internal/model"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "manage stores registered with this data path",
}

var (
	storeKind         string
	storeDescription  string
	storeCategoryMode string
)

var storeAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "register and initialize a new store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		def := model.StoreDefinition{Kind: storeKind, CategoryMode: model.CategoryMode(storeCategoryMode)}
		if storeDescription != "" {
			def.Description = &storeDescription
		}
		if def.CategoryMode == "" {
			def.CategoryMode = model.ModeFree
		}

		sc, err := cortex.AddStore(cmd.Context(), args[0], def)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "store %q initialized\n", sc.Name())
		return nil
	},
}

var storeGetCmd = &cobra.Command{
	Use:   "get <name>",
	Short: "show a registered store's definition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		def, err := sc.Load(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "name: %s\nkind: %s\ncategory_mode: %s\n", def.Name.String(), def.Kind, def.CategoryMode)
		if def.Description != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "description: %s\n", *def.Description)
		}
		return nil
	},
}

var storeListCmd = &cobra.Command{
	Use:   "list",
	Short: "list every registered store",
	RunE: func(cmd *cobra.Command, args []string) error {
		defs, err := cortex.GetStoreDefinitions(cmd.Context())
		if err != nil {
			return err
		}
		for _, d := range defs {
			fmt.Fprintln(cmd.OutOrStdout(), d.Name.String())
		}
		return nil
	},
}

var storeRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "remove a store's registry entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cortex.RemoveStore(cmd.Context(), args[0])
	},
}

func init() {
	storeAddCmd.Flags().StringVar(&storeKind, "kind", "fs", "adapter tag backing this store")
	storeAddCmd.Flags().StringVar(&storeDescription, "description", "", "human-readable store description")
	storeAddCmd.Flags().StringVar(&storeCategoryMode, "category-mode", "free", "free | subcategories | strict")

	storeCmd.AddCommand(storeAddCmd, storeGetCmd, storeListCmd, storeRemoveCmd)
}
