// Types and chi routing for api/openapi.yaml, written in the layout
// oapi-codegen emits. Running go generate replaces this file with the
// generator's output.

package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// Defines values for HealthResponseStatus.
const (
	Healthy HealthResponseStatus = "healthy"
)

// Defines values for Scheme.
const (
	Tms Scheme = "tms"
	Xyz Scheme = "xyz"
)

// Defines values for TileFormat.
const (
	Jpeg TileFormat = "jpeg"
	Jpg  TileFormat = "jpg"
	Png  TileFormat = "png"
	Tif  TileFormat = "tif"
	Tiff TileFormat = "tiff"
)

// CatalogResponse defines model for CatalogResponse.
type CatalogResponse struct {
	Zooms []int `json:"zooms"`
}

// ErrorResponse defines model for ErrorResponse.
type ErrorResponse struct {
	Error     string  `json:"error"`
	Message   string  `json:"message"`
	RequestId *string `json:"request_id,omitempty"`
}

// HealthResponse defines model for HealthResponse.
type HealthResponse struct {
	Status    HealthResponseStatus `json:"status"`
	Timestamp time.Time            `json:"timestamp"`

	// Uptime Seconds since start
	Uptime  *int    `json:"uptime,omitempty"`
	Version *string `json:"version,omitempty"`
}

// HealthResponseStatus defines model for HealthResponse.Status.
type HealthResponseStatus string

// Scheme defines model for Scheme.
type Scheme string

// Source defines model for Source.
type Source struct {
	Bands int `json:"bands"`

	// Bbox min-lat, min-lon, max-lat, max-lon in degrees
	Bbox []float64 `json:"bbox"`
	Name string    `json:"name"`
}

// SourcesResponse defines model for SourcesResponse.
type SourcesResponse struct {
	Sources []Source `json:"sources"`
}

// TileFormat defines model for TileFormat.
type TileFormat string

// ZoomCatalogResponse defines model for ZoomCatalogResponse.
type ZoomCatalogResponse struct {
	Scheme Scheme `json:"scheme"`
	X      []int  `json:"x"`
	Y      []int  `json:"y"`
	Zoom   int    `json:"zoom"`
}

// Error defines model for Error.
type Error = ErrorResponse

// GetCatalogZoomParams defines parameters for GetCatalogZoom.
type GetCatalogZoomParams struct {
	Scheme *Scheme `form:"scheme,omitempty" json:"scheme,omitempty"`
}

// GetTileParams defines parameters for GetTile.
type GetTileParams struct {
	Scheme *Scheme `form:"scheme,omitempty" json:"scheme,omitempty"`
}

// ServerInterface represents all server handlers.
type ServerInterface interface {
	// List cached zoom levels
	// (GET /catalog)
	GetCatalog(w http.ResponseWriter, r *http.Request)
	// List cached columns and rows of one zoom level
	// (GET /catalog/{z})
	GetCatalogZoom(w http.ResponseWriter, r *http.Request, z int, params GetCatalogZoomParams)
	// Health check
	// (GET /health)
	GetHealth(w http.ResponseWriter, r *http.Request)
	// List the rasters composing the mosaic
	// (GET /sources)
	GetSources(w http.ResponseWriter, r *http.Request)
	// Render one tile
	// (GET /tiles/{z}/{x}/{y}.{format})
	GetTile(w http.ResponseWriter, r *http.Request, z int, x int, y int, format TileFormat, params GetTileParams)
}

// Unimplemented server implementation that returns http.StatusNotImplemented for each endpoint.

type Unimplemented struct{}

// List cached zoom levels
// (GET /catalog)
func (_ Unimplemented) GetCatalog(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// List cached columns and rows of one zoom level
// (GET /catalog/{z})
func (_ Unimplemented) GetCatalogZoom(w http.ResponseWriter, r *http.Request, z int, params GetCatalogZoomParams) {
	w.WriteHeader(http.StatusNotImplemented)
}

// Health check
// (GET /health)
func (_ Unimplemented) GetHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// List the rasters composing the mosaic
// (GET /sources)
func (_ Unimplemented) GetSources(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotImplemented)
}

// Render one tile
// (GET /tiles/{z}/{x}/{y}.{format})
func (_ Unimplemented) GetTile(w http.ResponseWriter, r *http.Request, z int, x int, y int, format TileFormat, params GetTileParams) {
	w.WriteHeader(http.StatusNotImplemented)
}

// ServerInterfaceWrapper converts contexts to parameters.
type ServerInterfaceWrapper struct {
	Handler            ServerInterface
	HandlerMiddlewares []MiddlewareFunc
	ErrorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

type MiddlewareFunc func(http.Handler) http.Handler

// GetCatalog operation middleware
func (siw *ServerInterfaceWrapper) GetCatalog(w http.ResponseWriter, r *http.Request) {

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetCatalog(w, r)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// GetCatalogZoom operation middleware
func (siw *ServerInterfaceWrapper) GetCatalogZoom(w http.ResponseWriter, r *http.Request) {

	var err error

	// ------------- Path parameter "z" -------------
	var z int

	err = runtime.BindStyledParameterWithOptions("simple", "z", chi.URLParam(r, "z"), &z, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "z", Err: err})
		return
	}

	// Parameter object where we will unmarshal all parameters from the context
	var params GetCatalogZoomParams

	// ------------- Optional query parameter "scheme" -------------

	err = runtime.BindQueryParameter("form", true, false, "scheme", r.URL.Query(), &params.Scheme)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "scheme", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetCatalogZoom(w, r, z, params)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// GetHealth operation middleware
func (siw *ServerInterfaceWrapper) GetHealth(w http.ResponseWriter, r *http.Request) {

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetHealth(w, r)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// GetSources operation middleware
func (siw *ServerInterfaceWrapper) GetSources(w http.ResponseWriter, r *http.Request) {

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetSources(w, r)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

// GetTile operation middleware
func (siw *ServerInterfaceWrapper) GetTile(w http.ResponseWriter, r *http.Request) {

	var err error

	// ------------- Path parameter "z" -------------
	var z int

	err = runtime.BindStyledParameterWithOptions("simple", "z", chi.URLParam(r, "z"), &z, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "z", Err: err})
		return
	}

	// ------------- Path parameter "x" -------------
	var x int

	err = runtime.BindStyledParameterWithOptions("simple", "x", chi.URLParam(r, "x"), &x, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "x", Err: err})
		return
	}

	// ------------- Path parameter "y" -------------
	var y int

	err = runtime.BindStyledParameterWithOptions("simple", "y", chi.URLParam(r, "y"), &y, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "y", Err: err})
		return
	}

	// ------------- Path parameter "format" -------------
	var format TileFormat

	err = runtime.BindStyledParameterWithOptions("simple", "format", chi.URLParam(r, "format"), &format, runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "format", Err: err})
		return
	}

	// Parameter object where we will unmarshal all parameters from the context
	var params GetTileParams

	// ------------- Optional query parameter "scheme" -------------

	err = runtime.BindQueryParameter("form", true, false, "scheme", r.URL.Query(), &params.Scheme)
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "scheme", Err: err})
		return
	}

	handler := http.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.Handler.GetTile(w, r, z, x, y, format, params)
	}))

	for _, middleware := range siw.HandlerMiddlewares {
		handler = middleware(handler)
	}

	handler.ServeHTTP(w, r)
}

type UnescapedCookieParamError struct {
	ParamName string
	Err       error
}

func (e *UnescapedCookieParamError) Error() string {
	return fmt.Sprintf("error unescaping cookie parameter '%s'", e.ParamName)
}

func (e *UnescapedCookieParamError) Unwrap() error {
	return e.Err
}

type UnmarshalingParamError struct {
	ParamName string
	Err       error
}

func (e *UnmarshalingParamError) Error() string {
	return fmt.Sprintf("Error unmarshaling parameter %s as JSON: %s", e.ParamName, e.Err.Error())
}

func (e *UnmarshalingParamError) Unwrap() error {
	return e.Err
}

type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("Query argument %s is required, but not found", e.ParamName)
}

type RequiredHeaderError struct {
	ParamName string
	Err       error
}

func (e *RequiredHeaderError) Error() string {
	return fmt.Sprintf("Header parameter %s is required, but not found", e.ParamName)
}

func (e *RequiredHeaderError) Unwrap() error {
	return e.Err
}

type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("Invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

type TooManyValuesForParamError struct {
	ParamName string
	Count     int
}

func (e *TooManyValuesForParamError) Error() string {
	return fmt.Sprintf("Expected one value for %s, got %d", e.ParamName, e.Count)
}

// Handler creates http.Handler with routing matching OpenAPI spec.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// HandlerFromMux creates http.Handler with routing matching OpenAPI spec based on the provided mux.
func HandlerFromMux(si ServerInterface, r chi.Router) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseRouter: r,
	})
}

func HandlerFromMuxWithBaseURL(si ServerInterface, r chi.Router, baseURL string) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{
		BaseURL:    baseURL,
		BaseRouter: r,
	})
}

// HandlerWithOptions creates http.Handler with additional options
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter

	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	wrapper := ServerInterfaceWrapper{
		Handler:            si,
		HandlerMiddlewares: options.Middlewares,
		ErrorHandlerFunc:   options.ErrorHandlerFunc,
	}

	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/catalog", wrapper.GetCatalog)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/catalog/{z}", wrapper.GetCatalogZoom)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/health", wrapper.GetHealth)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/sources", wrapper.GetSources)
	})
	r.Group(func(r chi.Router) {
		r.Get(options.BaseURL+"/tiles/{z}/{x}/{y}.{format}", wrapper.GetTile)
	})

	return r
}
