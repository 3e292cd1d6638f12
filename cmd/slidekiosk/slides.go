package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/export"
	"github.com/fredcamaral/slidekiosk/internal/adapters/secondary/renderer"
	"github.com/fredcamaral/slidekiosk/internal/domain/entities"
)

// newSlidesCmd groups the offline deck maintenance commands
func newSlidesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slides",
		Short: "Inspect and maintain the slide deck",
	}

	cmd.AddCommand(newSlidesListCmd())
	cmd.AddCommand(newSlidesStatsCmd())
	cmd.AddCommand(newSlidesExportCmd())
	cmd.AddCommand(newSlidesCleanupCmd())

	return cmd
}

func newSlidesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List slides with layout and image count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKiosk(cmd, func(ctx context.Context, k *kiosk) error {
				return printSlides(cmd.OutOrStdout(), k.store.GetAllSlides())
			})
		},
	}
}

func printSlides(w io.Writer, slides map[int]*entities.Slide) error {
	ids := make([]int, 0, len(slides))
	for id := range slides {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tLAYOUT\tIMAGES\tTITLE")
	for _, id := range ids {
		s := slides[id]
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\n", id, renderer.LayoutLabel(string(s.Layout)), len(s.Images()), s.Title)
	}
	return tw.Flush()
}

func newSlidesStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show presentation statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")
			return withKiosk(cmd, func(ctx context.Context, k *kiosk) error {
				stats := k.store.Statistics()
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(stats)
				}
				return printStatistics(cmd.OutOrStdout(), stats)
			})
		},
	}
	cmd.Flags().Bool("json", false, "Print statistics as JSON")
	return cmd
}

func printStatistics(w io.Writer, stats entities.PresentationStatistics) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Slides:\t%d\n", stats.TotalSlides)
	fmt.Fprintf(tw, "Images:\t%d\n", stats.TotalImages)
	fmt.Fprintf(tw, "Content length:\t%d\n", stats.TotalContentLength)
	fmt.Fprintf(tw, "Backups:\t%d\n", stats.BackupCount)

	layouts := make([]string, 0, len(stats.Layouts))
	for l := range stats.Layouts {
		layouts = append(layouts, l)
	}
	sort.Strings(layouts)
	for _, l := range layouts {
		fmt.Fprintf(tw, "%s slides:\t%d\n", renderer.LayoutLabel(l), stats.Layouts[l])
	}
	return tw.Flush()
}

func newSlidesExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the deck as JSON or YAML",
		Long: `Write the whole deck with presentation metadata and statistics.

Example:
  slidekiosk slides export --format yaml
  slidekiosk slides export --format json --output deck.json`,
		Args: cobra.NoArgs,
		RunE: runSlidesExport,
	}

	cmd.Flags().StringP("format", "f", export.FormatJSON, "Export format: json or yaml")
	cmd.Flags().StringP("output", "o", "", "Output file (default: exports/presentation_<timestamp>.<ext>)")
	cmd.Flags().String("title", entities.DefaultPresentationTitle, "Presentation title")
	cmd.Flags().String("description", entities.DefaultPresentationDescription, "Presentation description")

	return cmd
}

func runSlidesExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")

	return withKiosk(cmd, func(ctx context.Context, k *kiosk) error {
		doc := entities.NewPresentationExport(k.store.Snapshot(), k.store.Statistics(), title, description, k.clock.Now())

		svc := export.NewService("", k.clock)
		result, err := svc.Export(ctx, doc, export.ExportOptions{Format: format, OutputPath: output})
		if err != nil {
			return fmt.Errorf("exporting slides: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d slides to %s (%d bytes)\n", result.SlideCount, result.OutputPath, result.FileSize)
		return nil
	})
}

func newSlidesCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete image files no slide references",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKiosk(cmd, func(ctx context.Context, k *kiosk) error {
				removed, err := k.store.CleanupOrphanedFiles(ctx)
				for _, path := range removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", path)
				}
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d orphaned files removed\n", len(removed))
				return nil
			})
		},
	}
}
