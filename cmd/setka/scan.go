package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	pb "gopkg.in/cheggaaa/pb.v1"

	"github.com/valstan/setka/internal/core"
	"github.com/valstan/setka/internal/filters"
	"github.com/valstan/setka/internal/ingest"
)

var scanCmd = &cobra.Command{
	Use:   "scan <region-code> <credential-name>",
	Short: "Run one manual carousel scan of a region's communities",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		ctx := context.Background()

		region, ok, err := findRegionByCode(ctx, rt, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no region with code %q", args[0])
		}
		credential, ok, err := findCredentialByName(ctx, rt, args[1])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no credential named %q", args[1])
		}

		communities, err := rt.store.Communities.ByRegion(ctx, region.ID)
		if err != nil {
			return err
		}
		bar := pb.StartNew(len(communities))
		bar.Prefix(fmt.Sprintf("scanning %s: ", region.Code))

		scanner := ingest.NewScanner(rt.store, filters.DefaultConfig(), rt.clientFor, rt.logger)
		fetched, err := scanner.Scan(ctx, region, credential)
		bar.Set(len(communities))
		bar.Finish()
		if err != nil {
			return err
		}
		fmt.Printf("scan complete: %d posts accepted across %d communities\n", fetched, len(communities))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(scanCmd)
}

func findRegionByCode(ctx context.Context, rt *runtime, code string) (core.Region, bool, error) {
	regions, err := rt.store.Regions.List(ctx)
	if err != nil {
		return core.Region{}, false, err
	}
	for _, r := range regions {
		if r.Code == code {
			return r, true, nil
		}
	}
	return core.Region{}, false, nil
}

func findCredentialByName(ctx context.Context, rt *runtime, name string) (core.Credential, bool, error) {
	creds, err := rt.store.Credentials.List(ctx)
	if err != nil {
		return core.Credential{}, false, err
	}
	for _, c := range creds {
		if c.Name == name {
			return c, true, nil
		}
	}
	return core.Credential{}, false, nil
}
