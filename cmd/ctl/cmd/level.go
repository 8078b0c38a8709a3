package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jpfielding/dicomwsi/pkg/dicom"
	"github.com/spf13/cobra"
)

// NewLevelCmd is a command to dump a WSMIS instance's geometry and tile table.
func NewLevelCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "level",
		Short: "inspect a VL Whole Slide Microscopy Image Storage instance",
		Long:  "parses a WSMIS instance and prints its tile grid geometry, fingerprint, and tile table",
		RunE: func(cmd *cobra.Command, args []string) error {
			dcmPath, _ := cmd.Flags().GetString("uri")
			lvl, err := dicom.ReadLevel(dcmPath)
			if err != nil {
				return fmt.Errorf("failed to read level: %w", err)
			}
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				fmt.Printf("%d x %d, tiles %d x %d (%d x %d), overview=%v, fingerprint=%s\n",
					lvl.TotalPixelMatrixColumns, lvl.TotalPixelMatrixRows,
					lvl.TileWidth, lvl.TileHeight,
					lvl.TilesAcross, lvl.TilesDown,
					lvl.IsOverview, lvl.FingerprintUUID)
			default:
				j, _ := json.Marshal(lvl)
				os.Stdout.Write(j)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "path to the WSMIS DICOM file")
	pf.StringP("format", "f", "json", "output format (text|json)")
	return cmd
}
