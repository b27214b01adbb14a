package main

import (
	"fmt"
	"strings"

	"bakery/internal/service"
	"bakery/internal/storage"

	"github.com/spf13/cobra"
)

var (
	exportList bool
	exportShow string
)

var exportCmd = &cobra.Command{
	Use:   "export <home|search|orders> [term]...",
	Short: "Save a listing snapshot to the object store",
	Long: `Loads every page of a listing and writes it as one JSON snapshot to the
SNAPSHOT_BUCKET bucket. A later export of the same listing overwrites it.
--list prints the stored snapshot keys, --show prints one snapshot.`,
	Args: cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.cfg.RequireMinio(); err != nil {
			return err
		}
		ctx := cmd.Context()
		store, err := storage.NewSnapshotStore(cli.cfg.Minio, cli.cfg.SnapshotBucket, cli.logger)
		if err != nil {
			return err
		}

		switch {
		case exportList:
			view := ""
			if len(args) > 0 {
				view = args[0]
			}
			keys, err := store.List(ctx, view)
			if err != nil {
				return err
			}
			for _, k := range keys {
				cli.println(k)
			}
			return nil
		case exportShow != "":
			snap, err := store.Load(ctx, exportShow)
			if err != nil {
				return err
			}
			cli.printf("%s  %d items, page %d of %d, exported %s\n",
				titleStyle.Render(snap.View), snap.Count, snap.CurrentPage, snap.TotalPages,
				snap.ExportedAt.Local().Format("02 Jan 2006 15:04"))
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("name a view: home, search or orders")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return err
		}
		view, term := args[0], strings.Join(args[1:], " ")

		var key string
		switch view {
		case "home":
			state, err := loadList(ctx, cli.client.ListShops, cli.locatedKey(ctx, view, ""), true)
			if err != nil {
				return err
			}
			key, err = storage.Export(ctx, store, state)
			if err != nil {
				return err
			}
		case "search":
			if term == "" {
				return fmt.Errorf("search export needs a term")
			}
			state, err := loadList(ctx, cli.client.Search, cli.locatedKey(ctx, view, term), true)
			if err != nil {
				return err
			}
			key, err = storage.Export(ctx, store, state)
			if err != nil {
				return err
			}
		case "orders":
			state, err := loadList(ctx, cli.client.MyOrders, service.QueryKey{View: view}, true)
			if err != nil {
				return err
			}
			key, err = storage.Export(ctx, store, state)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown view %q, want home, search or orders", view)
		}
		cli.println(accentStyle.Render("exported " + key))
		return nil
	},
}

func init() {
	exportCmd.Flags().BoolVar(&exportList, "list", false, "list stored snapshots, optionally of one view")
	exportCmd.Flags().StringVar(&exportShow, "show", "", "print the snapshot stored under this key")
	exportCmd.MarkFlagsMutuallyExclusive("list", "show")
	rootCmd.AddCommand(exportCmd)
}
