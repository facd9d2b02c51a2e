package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"iiqsort/internal/exifmeta"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file...]",
	Short: "Show how filenames parse and what capture time the files embed",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := cfg.BuildGrammar()
		if err != nil {
			return err
		}

		tw := table.NewWriter()
		tw.SetOutputMirror(os.Stdout)
		tw.SetStyle(table.StyleRounded)
		tw.AppendHeader(table.Row{"File", "Station", "Name time", "EXIF time", "Camera", "Note"})

		for _, path := range args {
			row := table.Row{filepath.Base(path), "", "", "", "", ""}

			var size int64
			if info, err := os.Stat(path); err == nil {
				size = info.Size()
			}

			rec, err := g.Parse(path, filepath.Base(path), size)
			if err != nil {
				row[5] = err.Error()
			} else {
				row[1] = rec.Station
				row[2] = rec.Timestamp.Format(time.RFC3339Nano)
			}

			meta, err := exifmeta.Read(path)
			if err != nil {
				if row[5] == "" {
					row[5] = err.Error()
				}
			} else {
				if !meta.CaptureTime.IsZero() {
					row[3] = meta.CaptureTime.Format(time.RFC3339)
				}
				row[4] = fmt.Sprintf("%s %s", meta.Make, meta.Model)
			}

			tw.AppendRow(row)
		}

		tw.Render()
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
