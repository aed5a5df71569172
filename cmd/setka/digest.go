package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valstan/setka/internal/core"
	"github.com/valstan/setka/internal/mixer"
	"github.com/valstan/setka/internal/regionconfig"
)

var digestSlot string
var digestCount int

var digestCmd = &cobra.Command{
	Use:   "digest <region-code> <topic>",
	Short: "Preview a digest assembly for a region and topic",
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
		topic := args[1]

		candidates, err := rt.store.Posts.ByStatus(ctx, region.ID, core.PostStatusAccepted)
		if err != nil {
			return err
		}
		pointers := make([]*core.Post, len(candidates))
		for i := range candidates {
			pointers[i] = &candidates[i]
		}

		slot := mixer.TimeSlot(digestSlot)
		result := mixer.Mix(pointers, digestCount, slot)

		title, footer, err := regionconfig.RenderEffective(region.Config, topic, regionconfig.RenderData{
			RegionName: region.Name,
			RegionCode: region.Code,
			Topic:      topic,
			Date:       time.Now().Format("2006-01-02"),
		})
		if err != nil {
			return err
		}

		fmt.Printf("%s\n\n", title)
		for _, p := range result.Posts {
			fmt.Printf("  [%s] %.1f  %s\n", p.AICategory, p.AIScore, truncate(p.Text, 60))
		}
		fmt.Printf("\n%s\n", footer)
		fmt.Printf("\n%d posts, avg score %.1f, diversity %.2f\n", len(result.Posts), result.Stats.AverageScore, result.Stats.DiversityScore)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(digestCmd)
	digestCmd.Flags().StringVar(&digestSlot, "slot", string(mixer.SlotMorning), "Publication slot: morning, afternoon, or evening")
	digestCmd.Flags().IntVar(&digestCount, "count", 10, "Number of posts to select")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
