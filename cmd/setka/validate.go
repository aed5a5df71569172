package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valstan/setka/internal/ingest"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Probe every configured credential against the upstream API",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := loadRuntime()
		if err != nil {
			return err
		}
		ctx := context.Background()

		creds, err := rt.store.Credentials.List(ctx)
		if err != nil {
			return err
		}
		validator := ingest.NewValidator(rt.store, rt.clientFor)

		failures := 0
		for _, c := range creds {
			if verr := validator.Validate(ctx, c); verr != nil {
				failures++
				fmt.Printf("%-20s invalid: %v\n", c.Name, verr)
				continue
			}
			fmt.Printf("%-20s valid\n", c.Name)
		}
		if failures > 0 {
			return fmt.Errorf("%d of %d credentials failed validation", failures, len(creds))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
