// Package main is the entry point for the Pheoni assistant.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/normanking/pheoni/internal/assistant"
	"github.com/normanking/pheoni/internal/config"
	"github.com/normanking/pheoni/internal/corpus"
	"github.com/normanking/pheoni/internal/gateway"
	"github.com/normanking/pheoni/internal/logging"
	"github.com/normanking/pheoni/internal/meetings"
	"github.com/normanking/pheoni/internal/server"
)

var (
	promptStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	responseStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

var (
	flagConfig  string
	flagVerbose bool
)

func main() {
	root := &cobra.Command{
		Use:   "pheoni",
		Short: "Pheoni is a local-first assistant for questions and meeting scheduling",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := logging.Setup(cfg.Logging); err != nil {
				return err
			}
			if flagVerbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default ~/.pheoni/config.yaml)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(newServeCmd(), newAskCmd(), newMeetingsCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	if flagConfig == "" {
		if _, err := config.EnsureDefault(); err != nil {
			log.Warn().Err(err).Msg("could not write default config")
		}
	}
	return config.Load(flagConfig)
}

// buildResponder wires the full pipeline from config. The returned cleanup
// closes both stores.
func buildResponder(ctx context.Context, cfg *config.Config) (*assistant.Responder, *meetings.Store, *corpus.Refresher, func(), error) {
	store, err := meetings.Open(cfg.DataDir)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open meeting store: %w", err)
	}

	links, err := assistant.OpenLinks(cfg.DataDir)
	if err != nil {
		store.Close()
		return nil, nil, nil, nil, fmt.Errorf("open link store: %w", err)
	}

	refresher := corpus.NewRefresher(
		&corpus.JSONSource{Path: cfg.Corpus.JSONPath},
		&corpus.CSVSource{Path: cfg.Corpus.CSVPath},
		&corpus.MeetingSource{Store: store},
	)
	if err := refresher.Refresh(ctx); err != nil {
		// Missing dataset files are common on first run; the assistant
		// still works without them.
		log.Warn().Err(err).Msg("corpus loaded with errors")
	}

	gen := gateway.New(gateway.Config{
		Command: cfg.Gateway.Command,
		Args:    cfg.Gateway.CommandArgs(),
		Budget:  cfg.Gateway.Budget(),
	})

	responder := assistant.New(store, refresher, gen, links)
	cleanup := func() {
		links.Close()
		store.Close()
	}
	return responder, store, refresher, cleanup, nil
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server, expiry sweeper and corpus watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			responder, store, refresher, cleanup, err := buildResponder(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			store.StartSweeper(ctx, cfg.Sweep.Interval())
			if cfg.Corpus.Watch {
				if err := refresher.Watch(ctx, cfg.Corpus.JSONPath, cfg.Corpus.CSVPath); err != nil {
					log.Warn().Err(err).Msg("corpus watcher unavailable")
				}
			}

			srv := &http.Server{
				Addr:    cfg.Server.Addr,
				Handler: server.New(responder, store).Handler(),
			}
			go func() {
				<-ctx.Done()
				srv.Shutdown(context.Background())
			}()

			log.Info().Str("addr", cfg.Server.Addr).Msg("server listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <text>...",
		Short: "Resolve a single request and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			responder, _, _, cleanup, err := buildResponder(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			text := strings.Join(args, " ")
			fmt.Println(promptStyle.Render("> ") + text)

			resp, err := responder.Resolve(ctx, text)
			if err != nil {
				return err
			}
			fmt.Println(responseStyle.Render(resp))
			return nil
		},
	}
}

func newMeetingsCmd() *cobra.Command {
	meetingsCmd := &cobra.Command{
		Use:   "meetings",
		Short: "Inspect and manage scheduled meetings",
	}

	meetingsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all scheduled meetings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := meetings.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			all, err := store.ListAll(cmd.Context())
			if err != nil {
				return err
			}
			if len(all) == 0 {
				fmt.Println(dimStyle.Render("no meetings scheduled"))
				return nil
			}
			for _, m := range all {
				fmt.Printf("%s  %-14s %s\n", m.Date, m.Time, m.Counterpart)
			}
			return nil
		},
	})

	meetingsCmd.AddCommand(&cobra.Command{
		Use:   "cancel <date> <with>",
		Short: "Cancel meetings on a date with a counterpart",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := meetings.Open(cfg.DataDir)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Cancel(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("deleted %d meeting(s)\n", n)
			return nil
		},
	})

	return meetingsCmd
}
