package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/internal/batch"
	"github.com/kiesman99/tilecut/internal/config"
	"github.com/kiesman99/tilecut/internal/extract"
	"github.com/kiesman99/tilecut/internal/mosaic"
	"github.com/kiesman99/tilecut/pkg/geo"
	"github.com/kiesman99/tilecut/pkg/raster"
	"github.com/kiesman99/tilecut/pkg/tile"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Cut a raster into a tile pyramid",
	Long: `Cut a georeferenced raster into tiles for a range of zoom levels.

Tiles are written to {output}/{z}/{x}/{y}.{ext}. With --catalog they are stored
in the configured tile catalog instead.

Examples:
  # Cut a PNG into zoom levels 8 to 12
  tilecut extract --source bay.png --extent 37.37,-122.92,38.23,-121.56 --min-zoom 8 --max-zoom 12 -o tiles

  # Only the tiles over the city, as JPEG with world files and TMS rows
  tilecut extract --source bay.png --extent 37.37,-122.92,38.23,-121.56 --bbox 37.70,-122.52,37.83,-122.35 --max-zoom 14 -f jpeg -w --scheme tms -o tiles`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	// Source options
	extractCmd.Flags().String("source", "", "source raster (png|jpeg|tiff|webp) (required)")
	extractCmd.Flags().String("extent", "", "source extent as 'min-lat,min-lon,max-lat,max-lon' (required)")
	extractCmd.Flags().Float64("nodata", 0, "value for pixels outside the source")

	// Tile options
	extractCmd.Flags().String("bbox", "", "only cut tiles in 'min-lat,min-lon,max-lat,max-lon' (default: the extent)")
	extractCmd.Flags().Uint32("min-zoom", 0, "lowest zoom level")
	extractCmd.Flags().Uint32("max-zoom", 0, "highest zoom level")
	extractCmd.Flags().IntP("tilesize", "t", tile.Size, "tile size in pixels")
	extractCmd.Flags().String("scheme", "xyz", "row numbering of the output tree (xyz|tms)")

	// Output options
	extractCmd.Flags().StringP("output", "o", "tiles", "output directory")
	extractCmd.Flags().StringP("format", "f", "png", "output format (png|jpeg|tiff)")
	extractCmd.Flags().BoolP("worldfile", "w", false, "write a world file next to every tile")
	extractCmd.Flags().Bool("catalog", false, "store tiles in the configured catalog instead of a directory")
	extractCmd.Flags().Int("workers", 0, "concurrent renders (default: one per CPU)")

	extractCmd.MarkFlagRequired("source")
	extractCmd.MarkFlagRequired("extent")

	viper.BindPFlag("extract.workers", extractCmd.Flags().Lookup("workers"))
	viper.BindPFlag("extract.tilesize", extractCmd.Flags().Lookup("tilesize"))
}

func runExtract(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()

	p, err := config.ProjectionFor(viper.GetString("projection"))
	if err != nil {
		return err
	}

	extentStr, _ := flags.GetString("extent")
	extent, err := config.ParseExtent(extentStr, p)
	if err != nil {
		return fmt.Errorf("invalid extent: %w", err)
	}

	bound := extent
	if bboxStr, _ := flags.GetString("bbox"); bboxStr != "" {
		bbox, err := config.ParseExtent(bboxStr, p)
		if err != nil {
			return fmt.Errorf("invalid bbox: %w", err)
		}
		if bound, err = geo.Intersect(extent, bbox); err != nil {
			return fmt.Errorf("bbox does not overlap the extent: %w", err)
		}
	}

	formatStr, _ := flags.GetString("format")
	format, err := raster.ParseFormat(formatStr)
	if err != nil {
		return err
	}
	schemeStr, _ := flags.GetString("scheme")
	scheme, err := tile.ParseScheme(schemeStr)
	if err != nil {
		return err
	}

	minZoom, _ := flags.GetUint32("min-zoom")
	maxZoom, _ := flags.GetUint32("max-zoom")
	nodata, _ := flags.GetFloat64("nodata")
	tileSize := viper.GetInt("extract.tilesize")

	source, _ := flags.GetString("source")
	driver := raster.NewMemory()
	e, err := extract.Open(driver, source, extent,
		extract.WithNoData(nodata),
		extract.WithTileSize(tileSize),
		extract.WithLogger(log),
	)
	if err != nil {
		return err
	}

	// Through a mosaic, tiles where the source shrinks below one pixel come
	// out as nodata instead of failing.
	m := mosaic.New(driver,
		mosaic.WithProjection(p),
		mosaic.WithNoData(nodata),
		mosaic.WithTileSize(tileSize),
		mosaic.WithLogger(log),
	)
	m.Add(source, e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink batch.Sink
	if toCatalog, _ := flags.GetBool("catalog"); toCatalog {
		cfg, err := config.Load(viper.GetViper())
		if err != nil {
			return err
		}
		if cfg.Cache.Backend != "valkey" {
			return errors.New("--catalog needs cache.backend valkey")
		}
		store, closeStore, err := openCatalog(ctx, cfg.Cache)
		if err != nil {
			return err
		}
		defer closeStore()
		sink = batch.CatalogSink{Store: store}
	} else {
		output, _ := flags.GetString("output")
		sink = batch.NewDirSink(output)
	}

	worldFile, _ := flags.GetBool("worldfile")
	result, err := batch.Run(ctx, m, sink, batch.Options{
		Bound:          bound,
		MinZoom:        minZoom,
		MaxZoom:        maxZoom,
		Format:         format,
		Workers:        viper.GetInt("extract.workers"),
		WriteWorldFile: worldFile,
		TileSize:       tileSize,
		Scheme:         scheme,
		Logger:         log,
	})
	if result != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "%d/%d tiles written in %s\n",
			result.Successful, result.Total, result.Duration.Round(time.Millisecond))
	}

	var tileErr *batch.TileError
	if errors.As(err, &tileErr) {
		for _, f := range tileErr.FailedTiles {
			log.Error("tile failed", zap.Stringer("key", f.Key), zap.Error(f.Err))
		}
	}
	return err
}
