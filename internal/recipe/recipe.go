package recipe

import (
	"encoding/json"
	"strings"
)

// Recipe is a single cooking recipe. Ingredients keep the order they were
// entered in. The anchor used for in-page links is derived from Name on
// demand and is never stored.
type Recipe struct {
	Name        string   `yaml:"name"`
	Ingredients []string `yaml:"ingredients"`
	Recipe      string   `yaml:"recipe"`
}

// New builds a Recipe from its stored fields.
func New(name string, ingredients []string, text string) Recipe {
	return Recipe{Name: name, Ingredients: ingredients, Recipe: text}
}

// Anchor returns the URL fragment for the recipe: the name with every
// space replaced by a hyphen.
func (r Recipe) Anchor() string {
	return AnchorFor(r.Name)
}

// AnchorFor derives the anchor for a recipe name.
func AnchorFor(name string) string {
	return strings.ReplaceAll(name, " ", "-")
}

// clone returns a deep copy so callers cannot alias the store's slices.
func (r Recipe) clone() Recipe {
	out := r
	if r.Ingredients != nil {
		out.Ingredients = append([]string(nil), r.Ingredients...)
	}
	return out
}

type recipeJSON struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Recipe      string   `json:"recipe"`
	Anchor      string   `json:"anchor"`
}

// MarshalJSON includes the computed anchor for API consumers.
func (r Recipe) MarshalJSON() ([]byte, error) {
	ing := r.Ingredients
	if ing == nil {
		ing = []string{}
	}
	return json.Marshal(recipeJSON{Name: r.Name, Ingredients: ing, Recipe: r.Recipe, Anchor: r.Anchor()})
}

// UnmarshalJSON accepts the API shape; any anchor field is ignored.
func (r *Recipe) UnmarshalJSON(b []byte) error {
	var v recipeJSON
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*r = New(v.Name, v.Ingredients, v.Recipe)
	return nil
}

// Form is a new-recipe submission. Ingredients arrive as one block of
// newline separated lines.
type Form struct {
	Name        string `form:"name" json:"name"`
	Ingredients string `form:"ingredients" json:"ingredients"`
	Recipe      string `form:"recipe" json:"recipe"`
}

// ToRecipe converts the submission, splitting ingredients on line breaks.
func (f Form) ToRecipe() Recipe {
	return New(f.Name, SplitIngredients(f.Ingredients), f.Recipe)
}

// SplitIngredients splits a textarea value into one ingredient per line.
// CRLF pairs sent by browsers are folded to LF first; the split itself is
// exact, so empty lines survive as empty entries.
func SplitIngredients(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.Split(s, "\n")
}
