package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	sieve "github.com/sieveworks/go-sieve"
	"github.com/sieveworks/go-sieve/interp"
	"github.com/sieveworks/go-sieve/internal/config"
	"github.com/sieveworks/go-sieve/internal/engine"
	"github.com/sieveworks/go-sieve/internal/logging"
	"github.com/sieveworks/go-sieve/internal/metrics"
	"github.com/sieveworks/go-sieve/parser"
)

type cli struct {
	cfgFile string
	debug   bool

	cfg     *config.Config
	logger  *slog.Logger
	logFile *os.File
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "sieve-run",
		Short: "Check, dump and run Sieve mail filtering scripts",
		Long: `sieve-run loads Sieve scripts (RFC 5228) and runs them against
messages stored as .eml files. Actions are printed, never carried out.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return c.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if c.logFile != nil {
				return c.logFile.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "config file path (.yaml or .toml)")
	root.PersistentFlags().BoolVar(&c.debug, "debug", false, "enable debug logging")

	root.AddCommand(c.checkCmd(), c.dumpCmd(), c.runCmd(), c.extensionsCmd())
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if c.debug {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, f, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	c.cfg, c.logger, c.logFile = cfg, logger, f
	return nil
}

func (c *cli) options() sieve.Options {
	return c.cfg.SieveOptions(c.logger)
}

func (c *cli) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <script>...",
		Short: "Parse and validate scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := c.engine(nil)
			if err != nil {
				return err
			}

			failed := 0
			for _, path := range args {
				script, err := compile(eng, path)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", path, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: ok", path)
				if exts := script.Extensions(); len(exts) > 0 {
					fmt.Fprintf(cmd.OutOrStdout(), " (%s)", strings.Join(exts, ", "))
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d scripts failed", failed, len(args))
			}
			return nil
		},
	}
}

func (c *cli) engine(reg prometheus.Registerer) (*engine.Engine, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return engine.New(engine.Options{
		Sieve:         c.options(),
		MaxScriptSize: c.cfg.Sieve.MaxScriptSize,
		Workers:       c.cfg.Engine.Workers,
		Metrics:       metrics.New(reg),
		Logger:        c.logger,
	})
}

// compile loads the script at path into eng, named after its base name.
func compile(eng *engine.Engine, path string) (*interp.Script, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return eng.Compile(filepath.Base(path), f)
}

func (c *cli) dumpCmd() *cobra.Command {
	var syntaxOnly bool
	cmd := &cobra.Command{
		Use:   "dump <script>",
		Short: "Print the syntax tree of a script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !syntaxOnly {
				eng, err := c.engine(nil)
				if err != nil {
					return err
				}
				script, err := compile(eng, args[0])
				if err != nil {
					return err
				}
				parser.Dump(cmd.OutOrStdout(), script.Tree())
				return nil
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			opts := c.options()
			opts.Lexer.Filename = filepath.Base(args[0])
			tree, err := sieve.Parse(f, opts)
			if err != nil {
				return err
			}
			parser.Dump(cmd.OutOrStdout(), tree)
			return nil
		},
	}
	cmd.Flags().BoolVar(&syntaxOnly, "syntax-only", false, "only parse the script, skip validation")
	return cmd
}

func (c *cli) extensionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extensions",
		Short: "List the extensions that scripts can require",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := sieve.NewRegistries(c.options())
			if err != nil {
				return err
			}
			for _, ext := range reg.Extensions() {
				fmt.Fprintln(cmd.OutOrStdout(), ext)
			}
			return nil
		},
	}
}

func (c *cli) runCmd() *cobra.Command {
	var (
		scriptPath  string
		envFrom     string
		envTo       string
		showMetrics bool
	)
	cmd := &cobra.Command{
		Use:   "run --script <script> <message.eml>...",
		Short: "Run a script against messages and print the resulting actions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			eng, err := c.engine(reg)
			if err != nil {
				return err
			}
			if _, err := compile(eng, scriptPath); err != nil {
				return err
			}

			var env interp.Envelope
			if envFrom != "" || envTo != "" {
				env = interp.EnvelopeStatic{From: envFrom, To: envTo}
			}
			jobs := make([]engine.Job, 0, len(args))
			for _, path := range args {
				msg, err := readMessage(path)
				if err != nil {
					return err
				}
				jobs = append(jobs, engine.Job{ID: path, Envelope: env, Message: msg})
			}

			rec := &engine.Recorder{Separator: c.cfg.Engine.MailboxSeparator}
			results, err := eng.EvaluateAll(ctx, filepath.Base(scriptPath), jobs, rec)
			if err != nil {
				return err
			}
			if err := printResults(cmd.OutOrStdout(), results, c.cfg.Engine.MailboxSeparator); err != nil {
				return err
			}
			if showMetrics {
				if err := writeMetrics(cmd.ErrOrStderr(), reg); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&scriptPath, "script", "s", "", "script to run")
	cmd.Flags().StringVar(&envFrom, "from", "", "envelope sender")
	cmd.Flags().StringVar(&envTo, "to", "", "envelope recipient")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print metrics to stderr after the run")
	_ = cmd.MarkFlagRequired("script")
	return cmd
}

func readMessage(path string) (interp.MessageStatic, error) {
	f, err := os.Open(path)
	if err != nil {
		return interp.MessageStatic{}, err
	}
	defer f.Close()

	msg, err := interp.ReadMessage(f)
	if err != nil {
		return interp.MessageStatic{}, fmt.Errorf("%s: %w", path, err)
	}
	return msg, nil
}

func printResults(w io.Writer, results []engine.Result, sep string) error {
	var errs []error
	for _, res := range results {
		targets := make([]string, 0, len(res.Actions))
		for _, a := range res.Actions {
			rec, err := engine.Describe(a, sep)
			if err != nil {
				return err
			}
			targets = append(targets, rec.String())
		}
		line := fmt.Sprintf("%s: %s", res.ID, strings.Join(targets, "; "))
		if res.Fallback {
			line += " (fallback)"
		}
		fmt.Fprintln(w, line)
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.ID, res.Err))
		}
	}
	return errors.Join(errs...)
}

func writeMetrics(w io.Writer, reg *prometheus.Registry) error {
	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
