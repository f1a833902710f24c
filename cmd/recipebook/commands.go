package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/loykin/recipebook"
	"github.com/loykin/recipebook/internal/recipe"
	"github.com/loykin/recipebook/internal/timing"
	"github.com/loykin/recipebook/pkg/client"
	"github.com/loykin/recipebook/pkg/scaffold"
)

type command struct {
	out    io.Writer
	global *GlobalFlags
}

func (c command) config() (*recipebook.Config, error) {
	cfg, err := recipebook.LoadConfig(c.global.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, nil
}

func (c command) apiClient(url string, timeout time.Duration) (*client.Client, error) {
	return client.New(client.Config{
		BaseURL: url,
		Timeout: timeout,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// Serve runs the web server until SIGINT or SIGTERM.
func (c command) Serve(parent context.Context, f ServeFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if f.Listen != "" {
		cfg.Server.Listen = f.Listen
	}
	app, err := recipebook.NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	slog.SetDefault(app.Logger())

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

func (c command) recipesFile(f RecipesFlags) (string, error) {
	if f.File != "" {
		return f.File, nil
	}
	cfg, err := c.config()
	if err != nil {
		return "", err
	}
	return cfg.Data.Recipes, nil
}

// ListRecipes prints every recipe from the file or the server.
func (c command) ListRecipes(ctx context.Context, f RecipesFlags) error {
	var list []client.Recipe
	if f.APIUrl != "" {
		api, err := c.apiClient(f.APIUrl, f.APITimeout)
		if err != nil {
			return err
		}
		if list, err = api.ListRecipes(ctx); err != nil {
			return fmt.Errorf("list recipes: %w", err)
		}
	} else {
		path, err := c.recipesFile(f)
		if err != nil {
			return err
		}
		store, err := recipe.Open(path)
		if err != nil {
			return err
		}
		for _, r := range store.List() {
			list = append(list, client.Recipe{Name: r.Name, Ingredients: r.Ingredients, Recipe: r.Recipe, Anchor: r.Anchor()})
		}
	}

	if f.JSON {
		return printJSON(c.out, list)
	}
	for _, r := range list {
		_, _ = fmt.Fprintf(c.out, "%s (#%s)\n", r.Name, r.Anchor)
		for _, ing := range r.Ingredients {
			_, _ = fmt.Fprintf(c.out, "  - %s\n", ing)
		}
	}
	return nil
}

// AddRecipe appends a recipe to the file or posts it to the server. Both
// paths go through the new-recipe form, so they store the same record.
func (c command) AddRecipe(ctx context.Context, f RecipesFlags) error {
	if strings.TrimSpace(f.Name) == "" {
		return fmt.Errorf("recipe name is required")
	}
	if f.APIUrl != "" {
		api, err := c.apiClient(f.APIUrl, f.APITimeout)
		if err != nil {
			return err
		}
		req := client.AddRecipeRequest{Name: f.Name, Ingredients: f.Ingredients, Recipe: f.Text}
		if err := api.AddRecipe(ctx, req); err != nil {
			return fmt.Errorf("add recipe: %w", err)
		}
	} else {
		path, err := c.recipesFile(f)
		if err != nil {
			return err
		}
		store, err := recipe.Open(path)
		if err != nil {
			return err
		}
		form := recipe.Form{Name: f.Name, Ingredients: strings.Join(f.Ingredients, "\n"), Recipe: f.Text}
		if err := store.Append(form.ToRecipe()); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintf(c.out, "Recipe '%s' added\n", f.Name)
	return nil
}

// Roast prints the schedule for f.End. Locally the timings file is only read.
func (c command) Roast(ctx context.Context, f RoastFlags) error {
	var sched client.Schedule
	if f.APIUrl != "" {
		api, err := c.apiClient(f.APIUrl, f.APITimeout)
		if err != nil {
			return err
		}
		if f.End != "" {
			sched, err = api.SetEnd(ctx, f.End)
		} else {
			sched, err = api.Roast(ctx)
		}
		if err != nil {
			return fmt.Errorf("roast: %w", err)
		}
	} else {
		path := f.File
		if path == "" {
			cfg, err := c.config()
			if err != nil {
				return err
			}
			path = cfg.Data.Timings
		}
		calc, err := timing.Load(path)
		if err != nil {
			return err
		}
		entries := calc.Schedule()
		if f.End != "" {
			if entries, err = calc.Apply(f.End); err != nil {
				return fmt.Errorf("invalid end time: %w", err)
			}
		}
		sched.End = calc.CurrentEnd()
		for _, e := range entries {
			sched.Steps = append(sched.Steps, client.Step{Step: e.Step, Time: e.Time})
		}
	}

	if f.JSON {
		return printJSON(c.out, sched)
	}
	_, _ = fmt.Fprintf(c.out, "End: %s\n", sched.End)
	for _, s := range sched.Steps {
		_, _ = fmt.Fprintf(c.out, "%s  %s\n", s.Time, s.Step)
	}
	return nil
}

// Init writes the starter files.
func (c command) Init(f InitFlags) error {
	paths, err := scaffold.NewGenerator().Generate(scaffold.Options{
		Dir:        f.Dir,
		Format:     scaffold.Format(f.Format),
		Force:      f.Force,
		SelfSigned: f.SelfSigned,
	})
	if err != nil {
		return err
	}
	for _, p := range paths {
		_, _ = fmt.Fprintf(c.out, "created %s\n", p)
	}
	_, _ = fmt.Fprintf(c.out, "Start the server with: recipebook serve --config %s\n", paths[0])
	return nil
}
