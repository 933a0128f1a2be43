package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yeseh/cortex/internal/store"
)

var categoryStoreName string

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "manage categories within a store",
}

var categoryCreateCmd = &cobra.Command{
	Use:   "create <path>",
	Short: "idempotently create a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		result, err := sc.GetCategory(args[0]).Create(cmd.Context())
		if err != nil {
			return err
		}
		if result.Created {
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", result.Path)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "already exists %s\n", result.Path)
		}
		return nil
	},
}

var categoryDeleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "recursively delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		return sc.GetCategory(args[0]).Delete(cmd.Context())
	},
}

var categoryDescribeCmd = &cobra.Command{
	Use:   "describe <path> <text>",
	Short: "set (or, given blank text, clear) a category's description",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		return sc.GetCategory(args[0]).SetDescription(cmd.Context(), args[1])
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list <path>",
	Short: "list memories and subcategories directly under a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		cat := sc.GetCategory(args[0])

		entries, err := cat.ListMemories(cmd.Context(), store.ListOptions{})
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Fprintf(cmd.OutOrStdout(), "memory  %s\n", e.Path.String())
		}

		subs, err := cat.ListSubcategories(cmd.Context())
		if err != nil {
			return err
		}
		for _, s := range subs {
			fmt.Fprintf(cmd.OutOrStdout(), "subcat  %s (%d)\n", s.Path.String(), s.MemoryCount)
		}
		return nil
	},
}

var categoryReindexCmd = &cobra.Command{
	Use:   "reindex <path>",
	Short: "rebuild every index under a category from ground truth",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		result, err := sc.GetCategory(args[0]).Reindex(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "rebuilt %d categories\n", result.CategoriesRebuilt)
		for _, w := range result.Warnings {
			fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
		}
		return nil
	},
}

var categoryPruneDryRun bool

var categoryPruneCmd = &cobra.Command{
	Use:   "prune <path>",
	Short: "remove expired memories under a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		removed, err := sc.GetCategory(args[0]).Prune(cmd.Context(), store.PruneOptions{DryRun: categoryPruneDryRun})
		if err != nil {
			return err
		}
		for _, p := range removed {
			fmt.Fprintln(cmd.OutOrStdout(), p.String())
		}
		return nil
	},
}

var categoryRecentLimit int

var categoryRecentCmd = &cobra.Command{
	Use:   "recent <path>",
	Short: "show the most recently updated memories under a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sc, err := cortex.GetStore(cmd.Context(), categoryStoreName)
		if err != nil {
			return err
		}
		recent, err := sc.GetCategory(args[0]).GetRecent(cmd.Context(), store.RecentOptions{Limit: categoryRecentLimit})
		if err != nil {
			return err
		}
		for _, r := range recent {
			updated := ""
			if r.UpdatedAt != nil {
				updated = r.UpdatedAt.Format("2006-01-02T15:04:05Z")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  updated %s\n", r.Path, updated)
		}
		return nil
	},
}

func init() {
	categoryCmd.PersistentFlags().StringVar(&categoryStoreName, "store", "", "store name (required)")
	_ = categoryCmd.MarkPersistentFlagRequired("store")

	categoryPruneCmd.Flags().BoolVar(&categoryPruneDryRun, "dry-run", false, "report what would be removed without deleting")
	categoryRecentCmd.Flags().IntVar(&categoryRecentLimit, "limit", store.DefaultRecentLimit, "maximum number of memories to return")

	categoryCmd.AddCommand(categoryCreateCmd, categoryDeleteCmd, categoryDescribeCmd, categoryListCmd,
		categoryReindexCmd, categoryPruneCmd, categoryRecentCmd)
}
