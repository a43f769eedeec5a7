package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/starford/smartscribe/internal"
	"github.com/starford/smartscribe/internal/catalog"
	"github.com/starford/smartscribe/internal/compiler"
	"github.com/starford/smartscribe/internal/noteservice"
	pkgconfig "github.com/starford/smartscribe/pkg/config"
)

var version = "dev"

const exampleConfigFile = "config/config.example.yaml"

var errInvalidNote = errors.New("note failed validation")

func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	configPath := cmd.String("config")

	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadWithDefaults(configPath, exampleConfigFile, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func serveMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := internal.RunMCP(ctx, internal.WithConfig(cfg), internal.WithVersion(version)); err != nil {
		return fmt.Errorf("mcp server error: %w", err)
	}
	return nil
}

// openApp builds the application for one-shot commands, logging to stderr.
func openApp(ctx context.Context, cmd *cli.Command) (*internal.App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return internal.Open(ctx,
		internal.WithConfig(cfg),
		internal.WithLogger(internal.NewLogger(os.Stderr, cfg.App.LogLevel)),
	)
}

// readInput reads a file, or stdin when path is "-".
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func compilePrompt(ctx context.Context, cmd *cli.Command) error {
	transcript, err := readInput(cmd.String("transcript"))
	if err != nil {
		return err
	}
	req := noteservice.CompileRequest{TemplateID: cmd.String("template")}
	req.Transcript = transcript
	req.VisitKind = compiler.VisitKind(cmd.String("visit-kind"))
	req.PriorFactsEnabled = cmd.Bool("prior-facts")
	if path := cmd.String("prior-note"); path != "" {
		if req.PriorNote, err = readInput(path); err != nil {
			return err
		}
	}

	app, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	prompt, err := app.Service.Compile(ctx, req)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return printJSON(os.Stdout, prompt)
	}
	_, err = io.WriteString(os.Stdout, prompt.Text)
	return err
}

func validateNote(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: validate <note-file|->")
	}
	text, err := readInput(cmd.Args().First())
	if err != nil {
		return err
	}

	app, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	res := app.Service.Validate(ctx, text)
	if err := printJSON(os.Stdout, res); err != nil {
		return err
	}
	if !res.Valid {
		return errInvalidNote
	}
	return nil
}

func exportCatalog(ctx context.Context, cmd *cli.Command) error {
	app, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.String("output")
	format := cmd.String("format")
	if format == "" && out != "" {
		format = catalog.FormatOf(out)
	}
	if format == "" {
		format = catalog.FormatCSV
	}

	if out == "" {
		return app.Service.ExportCatalog(ctx, os.Stdout, format)
	}
	f, err := os.Create(filepath.Clean(out))
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	if err := app.Service.ExportCatalog(ctx, f, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func importCatalog(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: catalog import <file>")
	}
	path := cmd.Args().First()
	format := cmd.String("format")
	if format == "" {
		format = catalog.FormatOf(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	app, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	n, err := app.Service.ImportCatalog(ctx, f, format)
	if err != nil {
		return err
	}
	app.Logger.Info("catalog imported", slog.Int("lists", n), slog.String("source", path))
	return nil
}

func formatFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "format",
		Usage: "Catalog format: csv or yaml (defaults from the file extension)",
	}
}

func main() {
	cmd := &cli.Command{
		Name:    "smartscribe",
		Usage:   "Psychiatric note prompt compiler and SmartTools validator",
		Version: version,
		Action:  serve,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API (default)",
				Action: serve,
			},
			{
				Name:   "mcp",
				Usage:  "Serve MCP tools over stdio",
				Action: serveMCP,
			},
			{
				Name:   "compile",
				Usage:  "Compile a stored template and a transcript into a prompt",
				Action: compilePrompt,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "template", Aliases: []string{"t"}, Usage: "Template id", Required: true},
					&cli.StringFlag{Name: "transcript", Usage: "Transcript file, or - for stdin", Value: "-"},
					&cli.StringFlag{Name: "prior-note", Usage: "Previous note file"},
					&cli.StringFlag{Name: "visit-kind", Usage: "intake or follow_up"},
					&cli.BoolFlag{Name: "prior-facts", Usage: "Extract facts from the prior note on follow-up"},
					&cli.BoolFlag{Name: "json", Usage: "Print the full compile result as JSON"},
				},
			},
			{
				Name:      "validate",
				Usage:     "Validate a note and print the report",
				ArgsUsage: "<note-file|->",
				Action:    validateNote,
			},
			{
				Name:  "catalog",
				Usage: "SmartList catalog maintenance",
				Commands: []*cli.Command{
					{
						Name:   "export",
						Usage:  "Write the catalog as CSV or YAML",
						Action: exportCatalog,
						Flags: []cli.Flag{
							formatFlag(),
							&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Output file (stdout when empty)"},
						},
					},
					{
						Name:      "import",
						Usage:     "Replace the catalog from a CSV or YAML file",
						ArgsUsage: "<file>",
						Action:    importCatalog,
						Flags:     []cli.Flag{formatFlag()},
					},
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
