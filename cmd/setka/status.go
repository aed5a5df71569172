package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/valstan/setka/internal/core"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print a summary of regions, credentials, and recent tasks",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		ctx := context.Background()

		regions, err := rt.store.Regions.List(ctx)
		if err != nil {
			return err
		}
		creds, err := rt.store.Credentials.List(ctx)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "REGION\tACTIVE\tACCEPTED\tREJECTED")
		for _, r := range regions {
			accepted, _ := rt.store.Posts.ByStatus(ctx, r.ID, core.PostStatusAccepted)
			rejected, _ := rt.store.Posts.ByStatus(ctx, r.ID, core.PostStatusRejected)
			fmt.Fprintf(w, "%s\t%v\t%d\t%d\n", r.Code, r.IsActive, len(accepted), len(rejected))
		}
		w.Flush()

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CREDENTIAL\tSTATUS\tACTIVE")
		for _, c := range creds {
			fmt.Fprintf(w, "%s\t%s\t%v\n", c.Name, c.Status, c.IsActive)
		}
		w.Flush()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
