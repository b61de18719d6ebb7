package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilecut/internal/batch"
	"github.com/kiesman99/tilecut/internal/config"
	"github.com/kiesman99/tilecut/pkg/tile"
)

var tilesCmd = &cobra.Command{
	Use:   "tiles",
	Short: "List the tiles covering a bounding box",
	Long: `List the tiles covering a bounding box at one zoom level, one z/x/y per line.

Examples:
  # Slippy map numbering
  tilecut tiles --bbox 37.371794,-122.917099,38.226853,-121.564407 --zoom 10

  # MBTiles numbering
  tilecut tiles --bbox 37.371794,-122.917099,38.226853,-121.564407 --zoom 10 --scheme tms`,
	RunE: runTiles,
}

func init() {
	rootCmd.AddCommand(tilesCmd)

	tilesCmd.Flags().String("bbox", "", "bounding box as 'min-lat,min-lon,max-lat,max-lon' (required)")
	tilesCmd.Flags().Uint32("zoom", 0, "zoom level")
	tilesCmd.Flags().String("scheme", "xyz", "row numbering (xyz|tms)")
	tilesCmd.MarkFlagRequired("bbox")
}

func runTiles(cmd *cobra.Command, args []string) error {
	p, err := config.ProjectionFor(viper.GetString("projection"))
	if err != nil {
		return err
	}

	bboxStr, _ := cmd.Flags().GetString("bbox")
	bound, err := config.ParseExtent(bboxStr, p)
	if err != nil {
		return fmt.Errorf("invalid bbox: %w", err)
	}

	zoom, _ := cmd.Flags().GetUint32("zoom")
	if zoom > tile.MaxZoom {
		return fmt.Errorf("zoom must be between 0 and %d", tile.MaxZoom)
	}

	schemeStr, _ := cmd.Flags().GetString("scheme")
	scheme, err := tile.ParseScheme(schemeStr)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, k := range batch.Keys(bound, zoom, zoom) {
		fmt.Fprintf(out, "%d/%d/%d\n", k.Zoom, k.X, scheme.Row(k))
	}
	return nil
}
