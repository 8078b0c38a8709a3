package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/jpfielding/dicomwsi/pkg/dicom"
	"github.com/spf13/cobra"
)

// NewIndexCmd is a command to list the files referenced by a DICOMDIR.
func NewIndexCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index",
		Short: "list files referenced by a DICOMDIR",
		Long:  "parses a DICOMDIR and prints the relative paths of every referenced file",
		RunE: func(cmd *cobra.Command, args []string) error {
			dcmPath, _ := cmd.Flags().GetString("uri")
			files, err := dicom.ReadIndex(dcmPath)
			if err != nil {
				return fmt.Errorf("failed to read index: %w", err)
			}
			switch format, _ := cmd.Flags().GetString("format"); format {
			case "text":
				for _, f := range files {
					fmt.Println(f)
				}
			default:
				j, _ := json.Marshal(files)
				os.Stdout.Write(j)
			}
			return nil
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringP("uri", "u", "", "path to the DICOMDIR file")
	pf.StringP("format", "f", "json", "output format (text|json)")
	return cmd
}
