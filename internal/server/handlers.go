package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/loykin/recipebook/internal/history"
	"github.com/loykin/recipebook/internal/metrics"
	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
	"github.com/loykin/recipebook/internal/view"
)

const (
	msgRecipeCreated = "Recipe created"
	msgRecipeFailed  = "Failed to create recipe"

	historyTimeout = 5 * time.Second
)

type errorResp struct {
	Error string `json:"error"`
}

type okResp struct {
	OK bool `json:"ok"`
}

// RoastResp is the JSON shape of the current roast schedule.
type RoastResp struct {
	End   string         `json:"end"`
	Steps []timing.Entry `json:"steps"`
}

// EndReq sets a new end time through the API.
type EndReq struct {
	End string `json:"end" form:"end"`
}

func (r *Router) handleHome(c *gin.Context) {
	p := r.page("Recipes", view.PageHome)
	p.Recipes = r.recipes.List()
	r.html(c, http.StatusOK, view.PageHome, p)
}

func (r *Router) handleNew(c *gin.Context) {
	r.html(c, http.StatusOK, view.PageNew, r.page("New recipe", view.PageNew))
}

func (r *Router) handleNewRecipe(c *gin.Context) {
	var f recipe.Form
	// missing fields bind as empty strings
	if err := c.ShouldBind(&f); err != nil {
		c.String(http.StatusBadRequest, "invalid form: %v", err)
		return
	}
	rec := f.ToRecipe()
	if err := r.recipes.Append(rec); err != nil {
		metrics.IncRecipePersistFailure()
		r.log.Error("create recipe", "name", rec.Name, "err", err)
		c.String(http.StatusInternalServerError, msgRecipeFailed)
		return
	}
	metrics.IncRecipeCreated()
	metrics.SetRecipesStored(r.recipes.Len())
	r.log.Info("recipe created", "name", rec.Name, "ingredients", len(rec.Ingredients))
	r.record(c.Request.Context(), history.Event{
		Type:    history.EventRecipeCreated,
		Subject: rec.Name,
		Detail:  rec.Anchor(),
	})
	c.String(http.StatusCreated, msgRecipeCreated)
}

func (r *Router) handleRoast(c *gin.Context) {
	p := r.page("Roast", view.PageRoast)
	p.End = r.timings.CurrentEnd()
	r.html(c, http.StatusOK, view.PageRoast, p)
}

func (r *Router) handleSetEnd(c *gin.Context) {
	entries, err := r.apply(c.Request.Context(), c.PostForm("end"))
	if err != nil {
		c.String(http.StatusBadRequest, "invalid end time: %v", err)
		return
	}
	p := r.page("Roast", view.PageSteps)
	p.Steps = entries
	r.html(c, http.StatusOK, view.PageSteps, p)
}

func (r *Router) handleAPIRecipes(c *gin.Context) {
	writeJSON(c, http.StatusOK, r.recipes.List())
}

func (r *Router) handleAPIRoast(c *gin.Context) {
	writeJSON(c, http.StatusOK, RoastResp{End: r.timings.CurrentEnd(), Steps: r.timings.Schedule()})
}

func (r *Router) handleAPISetEnd(c *gin.Context) {
	var req EndReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid JSON: " + err.Error()})
		return
	}
	entries, err := r.apply(c.Request.Context(), req.End)
	if err != nil {
		writeJSON(c, http.StatusBadRequest, errorResp{Error: "invalid end time: " + err.Error()})
		return
	}
	writeJSON(c, http.StatusOK, RoastResp{End: req.End, Steps: entries})
}

func (r *Router) handleHealth(c *gin.Context) {
	writeJSON(c, http.StatusOK, okResp{OK: true})
}

// apply sets the end time and returns the matching schedule. On failure
// the state is unchanged.
func (r *Router) apply(ctx context.Context, end string) ([]timing.Entry, error) {
	entries, err := r.timings.Apply(end)
	if err != nil {
		metrics.IncRoastInvalidEnd()
		r.log.Warn("rejected end time", "end", end, "err", err)
		return nil, err
	}
	metrics.IncRoastSchedule()
	r.log.Info("end time set", "end", end, "steps", len(entries))
	r.record(ctx, history.Event{
		Type:    history.EventEndTimeSet,
		Subject: end,
		Detail:  strconv.Itoa(len(entries)),
	})
	return entries, nil
}

// record sends e to the history sink. Failures are logged and counted;
// they never fail the request.
func (r *Router) record(parent context.Context, e history.Event) {
	if r.history == nil {
		return
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), historyTimeout)
	defer cancel()
	if err := r.history.Send(ctx, e); err != nil {
		metrics.IncHistoryFailure(string(e.Type))
		r.log.Warn("history send failed", "event", e.Type, "subject", e.Subject, "err", err)
	}
}
