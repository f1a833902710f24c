package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot(os.Stdout)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds the persistent flags shared by every subcommand
type GlobalFlags struct {
	ConfigPath string
}

// ServeFlags holds flags for the serve command
type ServeFlags struct {
	Listen string
}

// RecipesFlags holds flags for recipes list and recipes add
type RecipesFlags struct {
	File        string
	Name        string
	Ingredients []string
	Text        string
	JSON        bool
	APIUrl      string
	APITimeout  time.Duration
}

// RoastFlags holds flags for the roast command
type RoastFlags struct {
	End        string
	File       string
	JSON       bool
	APIUrl     string
	APITimeout time.Duration
}

// InitFlags holds flags for the init command
type InitFlags struct {
	Dir        string
	Format     string
	Force      bool
	SelfSigned bool
}

// buildRoot creates the root command and wires every subcommand to out
func buildRoot(out io.Writer) *cobra.Command {
	globalFlags := &GlobalFlags{}
	c := command{out: out, global: globalFlags}

	root := createRootCommand(globalFlags)
	root.SetOut(out)
	root.AddCommand(
		createServeCommand(c, &ServeFlags{}),
		createRecipesCommand(c, &RecipesFlags{}),
		createRoastCommand(c, &RoastFlags{}),
		createInitCommand(c, &InitFlags{}),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "recipebook",
		Short: "Recipe book and roast timing web application",
		Long: `Recipebook serves a small recipe collection and a roast timing
calculator over HTTP, and manages both from the command line.

Examples:
  recipebook init --dir ./kitchen
  recipebook serve --config ./kitchen/config.toml
  recipebook recipes list --config ./kitchen/config.toml
  recipebook roast --end 18:30 --api-url http://localhost:8080`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML or YAML config file (optional)")
	return root
}

func createServeCommand(c command, f *ServeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web server",
		Long: `Start the recipe book web server. It runs until SIGINT or SIGTERM.

Examples:
  recipebook serve --config config.toml
  recipebook serve --config config.toml --listen 127.0.0.1:9090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Serve(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.Listen, "listen", "", "override server.listen")
	return cmd
}

func createRecipesCommand(c command, f *RecipesFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recipes",
		Short: "List or add recipes",
	}
	cmd.PersistentFlags().StringVar(&f.File, "recipes", "", "recipes file (defaults to data.recipes from the config)")
	cmd.PersistentFlags().StringVar(&f.APIUrl, "api-url", "", "running server URL (e.g. http://host:8080)")
	cmd.PersistentFlags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")

	list := &cobra.Command{
		Use:   "list",
		Short: "List recipes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.ListRecipes(cmd.Context(), *f)
		},
	}
	list.Flags().BoolVar(&f.JSON, "json", false, "print JSON")

	add := &cobra.Command{
		Use:   "add",
		Short: "Add a recipe",
		Long: `Add a recipe to the recipe file, or to a running server with --api-url.

Examples:
  recipebook recipes add --name "Bread Sauce" --ingredient milk --ingredient bread --recipe "Simmer."`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.AddRecipe(cmd.Context(), *f)
		},
	}
	add.Flags().StringVar(&f.Name, "name", "", "recipe name (required)")
	add.Flags().StringArrayVar(&f.Ingredients, "ingredient", nil, "ingredient line, repeatable")
	add.Flags().StringVar(&f.Text, "recipe", "", "method text")
	if err := add.MarkFlagRequired("name"); err != nil {
		panic(err)
	}

	cmd.AddCommand(list, add)
	return cmd
}

func createRoastCommand(c command, f *RoastFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "roast",
		Short: "Print the roast schedule",
		Long: `Print the roast schedule for an end time. Without --end the current
end time is used. Locally the timings file is never rewritten; with
--api-url the end time is set on the running server.

Examples:
  recipebook roast --end 18:30
  recipebook roast --end 19:00 --api-url http://localhost:8080`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Roast(cmd.Context(), *f)
		},
	}
	cmd.Flags().StringVar(&f.End, "end", "", "end time, HH:MM")
	cmd.Flags().StringVar(&f.File, "timings", "", "timings file (defaults to data.timings from the config)")
	cmd.Flags().BoolVar(&f.JSON, "json", false, "print JSON")
	cmd.Flags().StringVar(&f.APIUrl, "api-url", "", "running server URL (e.g. http://host:8080)")
	cmd.Flags().DurationVar(&f.APITimeout, "api-timeout", 10*time.Second, "request timeout")
	return cmd
}

func createInitCommand(c command, f *InitFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config, recipes and timings",
		Long: `Write config, recipes.yaml and timings.yaml into a directory.

Examples:
  recipebook init --dir ./kitchen
  recipebook init --dir ./kitchen --format yaml --self-signed`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.Init(*f)
		},
	}
	cmd.Flags().StringVar(&f.Dir, "dir", ".", "output directory")
	cmd.Flags().StringVar(&f.Format, "format", "toml", "config format: toml or yaml")
	cmd.Flags().BoolVar(&f.Force, "force", false, "overwrite existing files")
	cmd.Flags().BoolVar(&f.SelfSigned, "self-signed", false, "also generate a development TLS certificate")
	return cmd
}
