// Package api holds the HTTP bindings generated from api/openapi.yaml.
package api

//go:generate go tool oapi-codegen -config cfg.yaml ../../api/openapi.yaml
