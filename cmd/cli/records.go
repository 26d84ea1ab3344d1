package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/himanishpuri/adrift/pkg/models"
)

func newListCommand(ctx *commandContext) *cobra.Command {
	var segmentType string
	var limit int
	var offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored fingerprints, most frequent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := models.RecordFilter{Limit: limit, Offset: offset}
			if segmentType != "" {
				t := models.SegmentType(strings.ToLower(strings.TrimSpace(segmentType)))
				if !t.Valid() {
					return fmt.Errorf("unknown segment type %q (want commercial or station_id)", segmentType)
				}
				filter.Type = t
			}

			svc, err := ctx.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			records, err := svc.ListRecords(filter)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No fingerprints stored")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, r := range records {
				rows = append(rows, []string{
					strconv.FormatInt(r.ID, 10),
					typeLabel(r.SegmentType),
					formatSeconds(r.Duration),
					formatCount(int64(r.OccurrenceCount)),
					formatSeen(r.FirstSeen),
					formatSeen(r.LastSeen),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Type", "Duration", "Seen", "First seen", "Last seen"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}

	cmd.Flags().StringVarP(&segmentType, "type", "t", "", "Only list this type: commercial or station_id")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum number of records (0 for all)")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of records to skip")
	return cmd
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one stored fingerprint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid id %q", args[0])
			}

			svc, err := ctx.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			rec, err := svc.GetRecord(id)
			if err != nil {
				return fmt.Errorf("fingerprint %d: %w", id, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:          %d\n", rec.ID)
			fmt.Fprintf(out, "Type:        %s\n", typeLabel(rec.SegmentType))
			fmt.Fprintf(out, "Duration:    %s\n", formatSeconds(rec.Duration))
			fmt.Fprintf(out, "Audio hash:  %016x\n", rec.AudioHash)
			fmt.Fprintf(out, "Video hash:  %016x\n", rec.VideoHash)
			fmt.Fprintf(out, "Occurrences: %s\n", formatCount(int64(rec.OccurrenceCount)))
			fmt.Fprintf(out, "First seen:  %s (%s)\n", rec.FirstSeen.Local().Format("2006-01-02 15:04:05"), formatSeen(rec.FirstSeen))
			fmt.Fprintf(out, "Last seen:   %s (%s)\n", rec.LastSeen.Local().Format("2006-01-02 15:04:05"), formatSeen(rec.LastSeen))
			return nil
		},
	}
}

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the fingerprint database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			svc, err := ctx.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			stats, err := svc.Stats()
			if err != nil {
				return err
			}

			rows := [][]string{
				{typeLabel(models.SegmentCommercial), formatCount(stats.ByType[models.SegmentCommercial])},
				{typeLabel(models.SegmentStationID), formatCount(stats.ByType[models.SegmentStationID])},
				{"Total", formatCount(stats.Records)},
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Type", "Fingerprints"}, rows, []columnAlignment{alignLeft, alignRight}))
			fmt.Fprintf(out, "Occurrences: %s\n", formatCount(stats.Occurrences))

			path := cfg.DatabasePath()
			if info, err := os.Stat(path); err == nil {
				fmt.Fprintf(out, "Database:    %s (%s)\n", path, humanize.Bytes(uint64(info.Size())))
			}
			return nil
		},
	}
}
