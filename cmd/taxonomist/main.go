package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pbaille/taxonomist/internal/api"
	"github.com/pbaille/taxonomist/internal/config"
	"github.com/pbaille/taxonomist/internal/domain"
	"github.com/pbaille/taxonomist/internal/labels"
	"github.com/pbaille/taxonomist/internal/logging"
	"github.com/pbaille/taxonomist/internal/session"
	"github.com/pbaille/taxonomist/internal/store"
	"github.com/pbaille/taxonomist/internal/tui"
)

var (
	dataDir string
	dbPath  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "taxonomist",
		Short:         "Sort images into labelled folders",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "journal database path (default: <data dir>/journal.db)")

	rootCmd.AddCommand(labelsCmd())
	rootCmd.AddCommand(classifyCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(historyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the environment then applies the persistent flags
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
		if dbPath == "" && os.Getenv("TAXONOMIST_DB_PATH") == "" {
			cfg.DBPath = filepath.Join(dataDir, "journal.db")
		}
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

func getStore(cfg *config.Config) (*store.Store, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(cfg.DBPath)
}

// startSession opens a session on set and journals it as a new run
func startSession(st *store.Store, set domain.LabelSet, inputDir, outputDir string, logger *slog.Logger) (*session.Session, error) {
	sess, err := session.New(set.Labels, inputDir, outputDir,
		session.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	run, err := st.StartRun(context.Background(), store.RunInfo{
		LabelSet:  set.Name,
		Labels:    set.Labels,
		InputDir:  sess.InputDir(),
		OutputDir: sess.OutputDir(),
		Total:     sess.Total(),
	})
	if err != nil {
		logger.Warn("journal unavailable, decisions will not be recorded", "error", err)
		return sess, nil
	}
	sess.SetHook(store.NewRecorder(st, run.ID, logger))
	logger.Info("run started", "run_id", run.ID, "label_set", set.Name, "images", sess.Total())
	return sess, nil
}

func labelsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "List the label sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)

			catalog, err := labels.Load(cfg.LabelsDir())
			if err != nil {
				return err
			}

			sets := make([]domain.LabelSet, 0, len(catalog))
			for _, name := range catalog.Names() {
				sets = append(sets, catalog[name])
			}

			if output == "yaml" {
				return writeYAML(cmd.OutOrStdout(), sets)
			}

			out := cmd.OutOrStdout()
			if len(sets) == 0 {
				fmt.Fprintf(out, "No label sets yet. Add a text file with one label per line to %s\n", cfg.LabelsDir())
				return nil
			}
			for _, set := range sets {
				fmt.Fprintf(out, "%s (%d labels)\n", set.Name, len(set.Labels))
				for _, l := range set.Labels {
					fmt.Fprintf(out, "  - %s\n", l)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the labels directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cfg.LabelsDir())
			return nil
		},
	})
	return cmd
}

func classifyCmd() *cobra.Command {
	var setName, inputDir, outputDir string

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify images in the terminal UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			// The UI owns the terminal, so logs go to a file
			if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
				return fmt.Errorf("create data dir: %w", err)
			}
			logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer logFile.Close()
			logger := logging.Init(cfg.LogLevel, cfg.LogFormat, logFile)

			st, err := getStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			model := tui.NewRootModel(tui.Params{
				LabelsDir: cfg.LabelsDir(),
				InputDir:  inputDir,
				OutputDir: outputDir,
				SetName:   setName,
				Start: func(set domain.LabelSet, in, out string) (*session.Session, error) {
					return startSession(st, set, in, out, logger)
				},
			})

			p := tea.NewProgram(model, tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&setName, "set", "s", "", "label set to use (default: choose in the UI)")
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory of images to classify")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory to copy classified images into")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func serveCmd() *cobra.Command {
	var setName, inputDir, outputDir, addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a classification session over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)
			if addr != "" {
				cfg.Addr = addr
			}

			catalog, err := labels.Load(cfg.LabelsDir())
			if err != nil {
				return err
			}
			set, err := catalog.Get(setName)
			if err != nil {
				return err
			}

			st, err := getStore(cfg)
			if err != nil {
				return err
			}
			// Note: don't defer st.Close() as server runs indefinitely

			sess, err := startSession(st, set, inputDir, outputDir, logger)
			if err != nil {
				return err
			}

			server := api.New(sess, cfg.LabelsDir(), cfg.Addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&setName, "set", "s", "", "label set to use")
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "directory of images to classify")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "directory to copy classified images into")
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "server address (default: $TAXONOMIST_ADDR or :8080)")
	cmd.MarkFlagRequired("set")
	cmd.MarkFlagRequired("input")
	cmd.MarkFlagRequired("output")
	return cmd
}

func historyCmd() *cobra.Command {
	var (
		limit  int
		output string
	)

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show journaled runs, or the decisions of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logging.Init(cfg.LogLevel, cfg.LogFormat, os.Stderr)

			st, err := getStore(cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				run, err := st.FindRun(ctx, args[0])
				if err != nil {
					return err
				}

				if output == "yaml" {
					return writeYAML(out, run)
				}
				printRun(out, *run)
				return nil
			}

			runs, err := st.ListRuns(ctx, limit)
			if err != nil {
				return err
			}
			if output == "yaml" {
				return writeYAML(out, runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs yet. Use 'taxonomist classify' to start one.")
				return nil
			}
			for _, r := range runs {
				fmt.Fprintf(out, "%s  %s  %-12s %d images  %s -> %s\n",
					r.ID[:8], r.StartedAt.Local().Format("2006-01-02 15:04"), r.LabelSet, r.Total, r.InputDir, r.OutputDir)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of runs to show")
	cmd.Flags().StringVarP(&output, "output", "o", "text", "output format: text or yaml")
	return cmd
}

func printRun(w io.Writer, r domain.Run) {
	fmt.Fprintf(w, "ID:        %s\n", r.ID)
	fmt.Fprintf(w, "Started:   %s\n", r.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Label set: %s (%d labels)\n", r.LabelSet, len(r.Labels))
	fmt.Fprintf(w, "Input:     %s\n", r.InputDir)
	fmt.Fprintf(w, "Output:    %s\n", r.OutputDir)
	fmt.Fprintf(w, "Images:    %d\n", r.Total)

	if len(r.Decisions) == 0 {
		fmt.Fprintf(w, "\nNo decisions recorded.\n")
		return
	}

	fmt.Fprintf(w, "\nDecisions:\n")
	for _, d := range r.Decisions {
		name := filepath.Base(d.SourceFile)
		switch d.Action {
		case domain.ActionClassify:
			fmt.Fprintf(w, "  %4d  %-8s %s -> %s\n", d.Position+1, d.Action, name, d.Label)
		default:
			fmt.Fprintf(w, "  %4d  %-8s %s\n", d.Position+1, d.Action, name)
		}
	}
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
