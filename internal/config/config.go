// Package config loads tilecut settings from defaults, an optional YAML
// file, TILECUT_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
	"github.com/spf13/viper"

	"github.com/kiesman99/tilecut/pkg/geo"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TILECUT"

type Config struct {
	Server     Server   `mapstructure:"server"`
	Cache      Cache    `mapstructure:"cache"`
	Log        Log      `mapstructure:"log"`
	Projection string   `mapstructure:"projection" validate:"oneof=spherical mercator"`
	Sources    []Source `mapstructure:"sources" validate:"dive"`
}

type Server struct {
	Bind        string        `mapstructure:"bind"`
	Port        int           `mapstructure:"port" validate:"min=1,max=65535"`
	Timeout     time.Duration `mapstructure:"timeout" validate:"gt=0"`
	MaxZoom     uint32        `mapstructure:"max_zoom" validate:"lte=31"`
	RateLimit   float64       `mapstructure:"rate_limit" validate:"gte=0"`
	Burst       int           `mapstructure:"burst" validate:"gte=0"`
	CORSOrigins []string      `mapstructure:"cors_origins"`
}

type Cache struct {
	Backend string        `mapstructure:"backend" validate:"oneof=none memory valkey"`
	Address string        `mapstructure:"address" validate:"required_if=Backend valkey"`
	TTL     time.Duration `mapstructure:"ttl" validate:"gte=0"`
}

type Log struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// Source is one georeferenced raster served by the mosaic. Extent is
// "minLat,minLon,maxLat,maxLon" in degrees.
type Source struct {
	Name   string  `mapstructure:"name" validate:"required"`
	Path   string  `mapstructure:"path" validate:"required"`
	Extent string  `mapstructure:"extent" validate:"required"`
	NoData float64 `mapstructure:"nodata"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.bind", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout", 30*time.Second)
	v.SetDefault("server.max_zoom", 22)
	v.SetDefault("server.rate_limit", 0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.ttl", 24*time.Hour)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("projection", "spherical")
}

// BindEnv makes v read TILECUT_SERVER_PORT style variables.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the settings held by v.
func Load(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the struct tags of cfg and reports every failure in
// English.
func Validate(cfg *Config) error {
	validate := validator.New()
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(validate, trans)

	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, e.Translate(trans))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// ProjectionFor returns the projection named by name.
func ProjectionFor(name string) (geo.Projection, error) {
	switch name {
	case "", "spherical":
		return geo.NewSphericalProjection(geo.EarthRadius), nil
	case "mercator":
		return geo.NewMercatorProjection(geo.EarthRadius), nil
	}
	return nil, fmt.Errorf("unknown projection %q", name)
}

// ParseExtent parses "minLat,minLon,maxLat,maxLon" in degrees.
func ParseExtent(s string, p geo.Projection) (geo.BoundingBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geo.BoundingBox{}, fmt.Errorf("extent must be in format 'min-lat,min-lon,max-lat,max-lon'")
	}

	var v [4]float64
	names := [4]string{"min-lat", "min-lon", "max-lat", "max-lon"}
	for i, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return geo.BoundingBox{}, fmt.Errorf("invalid %s in extent: %w", names[i], err)
		}
		v[i] = f
	}

	minLat, minLon, maxLat, maxLon := v[0], v[1], v[2], v[3]
	return geo.NewBoundingBoxLatLon(
		geo.NewLatLonDegrees(maxLat, minLon),
		geo.NewLatLonDegrees(minLat, maxLon),
		p,
	)
}
