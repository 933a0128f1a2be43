package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeseh/cortex/internal/store"
)

var memoryStoreName string

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "manage memories within a store",
}

var memoryCreateContent string
var memoryCreateSource string

var memoryCreateCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "create a new memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), memoryStoreName)
		if err != nil {
			return err
		}
		_, err = sc.GetMemory(args[0]).Create(cmd.Context(), store.CreateMemoryInput{
			Content: memoryCreateContent,
			Source:  memoryCreateSource,
		})
		return err
	},
}

var memoryGetIncludeExpired bool

var memoryGetCmd = &cobra.Command{
	Use:   "get <path>",
	Short: "print a memory's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), memoryStoreName)
		if err != nil {
			return err
		}
		mem, err := sc.GetMemory(args[0]).Get(cmd.Context(), memoryGetIncludeExpired)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mem.Content)
		return nil
	},
}

var memoryUpdateContent string

var memoryUpdateCmd = &cobra.Command{
	Use:   "update <path>",
	Short: "replace a memory's content",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), memoryStoreName)
		if err != nil {
			return err
		}
		_, err = sc.GetMemory(args[0]).Update(cmd.Context(), store.UpdateMemoryInput{Content: &memoryUpdateContent})
		return err
	},
}

var memoryMoveCmd = &cobra.Command{
	Use:   "move <from> <to>",
	Short: "move a memory to a new path",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), memoryStoreName)
		if err != nil {
			return err
		}
		_, err = sc.GetMemory(args[0]).Move(cmd.Context(), args[1])
		return err
	},
}

var memoryRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "delete a memory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), memoryStoreName)
		if err != nil {
			return err
		}
		return sc.GetMemory(args[0]).Remove(cmd.Context())
	},
}

func init() {
	memoryCmd.PersistentFlags().StringVar(&memoryStoreName, "store", "", "store name (required)")
	_ = memoryCmd.MarkPersistentFlagRequired("store")

	memoryCreateCmd.Flags().StringVar(&memoryCreateContent, "content", "", "memory content body")
	memoryCreateCmd.Flags().StringVar(&memoryCreateSource, "source", "", "provenance tag for this memory")

	memoryGetCmd.Flags().BoolVar(&memoryGetIncludeExpired, "include-expired", false, "return the memory even if it has expired")

	memoryUpdateCmd.Flags().StringVar(&memoryUpdateContent, "content", "", "replacement content body")

	memoryCmd.AddCommand(memoryCreateCmd, memoryGetCmd, memoryUpdateCmd, memoryMoveCmd, memoryRemoveCmd)
}
