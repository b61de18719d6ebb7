package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/kiesman99/tilecut/internal/config"
	"github.com/kiesman99/tilecut/internal/logger"
)

// Version is reported by the server health check.
var Version = "dev"

var (
	cfgFile string
	log     = zap.NewNop()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "tilecut",
	Short: "Cut georeferenced rasters into web map tiles",
	Long: `tilecut cuts georeferenced rasters into XYZ or TMS map tiles.

Rasters are PNG, JPEG, TIFF or WebP images whose extent is given in degrees.
Tiles can be written to a directory tree, with optional world files, or served
on demand over HTTP from a mosaic of sources.

Examples:
  # List the tiles covering the San Francisco bay at zoom 10
  tilecut tiles --bbox 37.371794,-122.917099,38.226853,-121.564407 --zoom 10

  # Cut a raster into zoom levels 8 to 12
  tilecut extract --source bay.tif --extent 37.37,-122.92,38.23,-121.56 --min-zoom 8 --max-zoom 12 -o tiles

  # Start HTTP server
  tilecut serve --port 8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		log = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tilecut.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json|console)")
	rootCmd.PersistentFlags().String("projection", "spherical", "projection for east/north output (spherical|mercator)")

	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
	viper.BindPFlag("projection", rootCmd.PersistentFlags().Lookup("projection"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".tilecut" (without extension).
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tilecut")
	}

	config.BindEnv(viper.GetViper())

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
