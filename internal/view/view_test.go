package view

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
)

func TestHomeListsRecipesWithAnchors(t *testing.T) {
	r, err := New()
	require.NoError(t, err)

	out, err := r.RenderString(PageHome, Page{
		Active: PageHome,
		Recipes: []recipe.Recipe{
			recipe.New("Roast Chicken", []string{"chicken", "lemon"}, "Season.\nRoast."),
			recipe.New("Gravy", []string{"stock"}, "Reduce."),
		},
	})
	require.NoError(t, err)

	assert.Contains(t, out, `<a href="#Roast-Chicken">Roast Chicken</a>`)
	assert.Contains(t, out, `<div id="Roast-Chicken">`)
	assert.Contains(t, out, `<li>lemon</li>`)
	assert.Contains(t, out, `<div id="Gravy">`)
	assert.Contains(t, out, "htmx.org")
	assert.Less(t, strings.Index(out, "Roast-Chicken\">"), strings.Index(out, "id=\"Gravy\""), "recipes must keep order")
}

func TestHomeEscapesUserInput(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	out, err := r.RenderString(PageHome, Page{
		Recipes: []recipe.Recipe{recipe.New("<script>x</script>", nil, "")},
	})
	require.NoError(t, err)
	assert.NotContains(t, out, "<script>x</script>")
}

func TestNewFormPostsToBase(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	out, err := r.RenderString(PageNew, Page{Base: "/kitchen"})
	require.NoError(t, err)
	assert.Contains(t, out, `hx-post="/kitchen/new_recipe"`)
	assert.Contains(t, out, `name="ingredients"`)
	assert.Contains(t, out, `href="/kitchen/"`)
}

func TestRoastPrefillsEnd(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	out, err := r.RenderString(PageRoast, Page{End: "18:30"})
	require.NoError(t, err)
	assert.Contains(t, out, `value="18:30"`)
	assert.Contains(t, out, `hx-post="/roast"`)
}

func TestStepsFragment(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	out, err := r.RenderString(PageSteps, Page{Steps: []timing.Entry{{Step: "Oven on", Time: "15:30"}, {Step: "Serve", Time: "18:00"}}})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "<table>"), "steps must be a bare fragment")
	assert.NotContains(t, out, "<html")
	assert.Contains(t, out, "<td>Oven on</td><td>15:30</td>")
	assert.Less(t, strings.Index(out, "Oven on"), strings.Index(out, "Serve"))
}

func TestUnknownTemplate(t *testing.T) {
	r, err := New()
	require.NoError(t, err)
	_, err = r.RenderString("missing", Page{})
	assert.Error(t, err)
}
