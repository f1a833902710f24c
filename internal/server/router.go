package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/render"

	"github.com/loykin/recipebook/internal/history"
	"github.com/loykin/recipebook/internal/metrics"
	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
	"github.com/loykin/recipebook/internal/view"
)

// Deps carries everything the HTTP layer needs. Recipes and Timings are
// required; the rest is optional.
type Deps struct {
	Recipes *recipe.Store
	Timings *timing.Calculator
	Views   *view.Renderer
	History history.Sink
	Logger  *slog.Logger

	// BasePath prefixes every route, e.g. "/kitchen". It may be empty.
	BasePath string
	// MetricsPath mounts the Prometheus handler when non-empty.
	MetricsPath    string
	MetricsHandler http.Handler
}

// Router serves the recipe book pages and its JSON API.
// Pages:
//
//	GET  {base}/            recipe list
//	GET  {base}/new         new recipe form
//	POST {base}/new_recipe  form: name, ingredients, recipe
//	GET  {base}/roast       roast timing form
//	POST {base}/roast       form: end (HH:MM), returns the schedule table
//
// API:
//
//	GET  {base}/api/recipes
//	GET  {base}/api/roast
//	POST {base}/api/roast   body: {"end":"HH:MM"}
//	GET  {base}/healthz
type Router struct {
	recipes  *recipe.Store
	timings  *timing.Calculator
	views    *view.Renderer
	history  history.Sink
	log      *slog.Logger
	basePath string

	metricsPath    string
	metricsHandler http.Handler
}

// NewRouter validates deps and constructs a Router.
func NewRouter(d Deps) (*Router, error) {
	if d.Recipes == nil {
		return nil, errors.New("server: recipe store is required")
	}
	if d.Timings == nil {
		return nil, errors.New("server: timing calculator is required")
	}
	views := d.Views
	if views == nil {
		v, err := view.New()
		if err != nil {
			return nil, err
		}
		views = v
	}
	log := d.Logger
	if log == nil {
		log = slog.Default()
	}
	mh := d.MetricsHandler
	if mh == nil {
		mh = metrics.Handler()
	}
	metrics.SetRecipesStored(d.Recipes.Len())
	return &Router{
		recipes:        d.Recipes,
		timings:        d.Timings,
		views:          views,
		history:        d.History,
		log:            log.With("component", "http"),
		basePath:       sanitizeBase(d.BasePath),
		metricsPath:    d.MetricsPath,
		metricsHandler: mh,
	}, nil
}

// BasePath returns the sanitized mount prefix.
func (r *Router) BasePath() string { return r.basePath }

// Handler returns an http.Handler powered by gin that can be mounted in any server/mux.
func (r *Router) Handler() http.Handler {
	g := gin.New()
	g.Use(gin.Recovery(), requestLogger(r.log), observeRequests())
	g.SetHTMLTemplate(r.views.Template())
	r.Register(g.Group(r.basePath))
	if r.metricsPath != "" {
		g.GET(r.metricsPath, gin.WrapH(r.metricsHandler))
	}
	return g
}

// Register adds every page and API route to an existing gin group, so the
// recipe book can share an engine with other handlers. Links rendered in
// pages use the Router's base path, which should match the group's.
func (r *Router) Register(g gin.IRoutes) {
	g.GET("/", r.handleHome)
	g.GET("/new", r.handleNew)
	g.POST("/new_recipe", r.handleNewRecipe)
	g.GET("/roast", r.handleRoast)
	g.POST("/roast", r.handleSetEnd)
	g.GET("/api/recipes", r.handleAPIRecipes)
	g.GET("/api/roast", r.handleAPIRoast)
	g.POST("/api/roast", r.handleAPISetEnd)
	g.GET("/healthz", r.handleHealth)
}

func (r *Router) page(title, active string) view.Page {
	return view.Page{Base: r.basePath, Title: title, Active: active}
}

// html renders with the Router's own template set so it also works when
// Register was used on an engine without SetHTMLTemplate.
func (r *Router) html(c *gin.Context, code int, name string, p view.Page) {
	c.Render(code, render.HTML{Template: r.views.Template(), Name: name, Data: p})
}
