package client

// Recipe is a recipe as returned by GET /api/recipes.
type Recipe struct {
	Name        string   `json:"name"`
	Ingredients []string `json:"ingredients"`
	Recipe      string   `json:"recipe"`
	Anchor      string   `json:"anchor,omitempty"`
}

// AddRecipeRequest is submitted as the new-recipe form. Ingredients are
// sent one per line.
type AddRecipeRequest struct {
	Name        string
	Ingredients []string
	Recipe      string
}

// Step is one row of a roast schedule.
type Step struct {
	Step string `json:"step"`
	Time string `json:"time"`
}

// Schedule is the roast end time with the computed step times.
type Schedule struct {
	End   string `json:"end"`
	Steps []Step `json:"steps"`
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error string `json:"error"`
}
