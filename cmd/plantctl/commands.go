package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sakif/plantkeeper/internal/auth"
	"github.com/sakif/plantkeeper/internal/config"
	"github.com/sakif/plantkeeper/internal/factory"
	"github.com/sakif/plantkeeper/internal/logging"
	"github.com/sakif/plantkeeper/internal/perenual"
	"github.com/sakif/plantkeeper/internal/service"
)

// newRootCmd builds the command tree. in and out replace stdin and stdout
// so tests can drive it.
func newRootCmd(in io.Reader, out io.Writer) *cobra.Command {
	var envFile string
	root := &cobra.Command{
		Use:           "plantctl",
		Short:         "Operator CLI for the plantkeeper service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(in)
	root.SetOut(out)
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file to load before the environment (default .env)")

	loadConfig := func() (*config.Config, *slog.Logger, error) {
		var files []string
		if envFile != "" {
			files = append(files, envFile)
		}
		cfg, err := config.Load(files...)
		if err != nil {
			return nil, nil, err
		}
		// logs go to stderr so stdout stays machine-readable
		logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, root.ErrOrStderr())
		if err != nil {
			return nil, nil, err
		}
		return cfg, logger, nil
	}

	root.AddCommand(
		newMigrateCmd(loadConfig),
		newIngestCmd(loadConfig),
		newHashPasswordCmd(),
		newTokenCmd(loadConfig),
	)
	return root
}

type configLoader func() (*config.Config, *slog.Logger, error)

func newMigrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the plant table in the configured store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			repo, err := factory.NewRepository(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			n, err := repo.Count(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "store ready (%s): %d plants\n", cfg.DBDriver, n)
			return nil
		},
	}
}

func newIngestCmd(load configLoader) *cobra.Command {
	var (
		ids    []int64
		random int
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Fetch species from Perenual and store them locally",
		Example: "  plantctl ingest --id 1 --id 2\n" +
			"  plantctl ingest --random 5",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(ids) == 0 && random <= 0 {
				return errors.New("nothing to ingest: pass --id and/or --random")
			}
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if cfg.PerenualAPIKey == "" {
				return errors.New("PERENUAL_API_KEY is required for ingest")
			}

			ctx := cmd.Context()
			repo, err := factory.NewRepository(ctx, cfg)
			if err != nil {
				return err
			}
			defer repo.Close()

			client := perenual.New(perenual.Config{
				BaseURL:    cfg.PerenualBaseURL,
				APIKey:     cfg.PerenualAPIKey,
				Timeout:    cfg.ProviderTimeout,
				MaxRetries: cfg.ProviderMaxRetries,
			}, logger)
			plants := service.NewPlantService(repo, client, logger)

			results, err := plants.IngestMany(ctx, ids)
			if err != nil {
				return err
			}
			for range random {
				p, err := plants.IngestRandom(ctx)
				r := service.IngestResult{Plant: p, Err: err}
				if p != nil {
					r.ID = p.ID
				}
				results = append(results, r)
			}
			return report(cmd.OutOrStdout(), results)
		},
	}
	cmd.Flags().Int64SliceVar(&ids, "id", nil, "species id to ingest (repeatable)")
	cmd.Flags().IntVar(&random, "random", 0, "number of random species to ingest")
	return cmd
}

// report prints one line per result and fails if any ingest failed.
func report(w io.Writer, results []service.IngestResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(w, "FAIL %d\t%v\n", r.ID, r.Err)
			continue
		}
		fmt.Fprintf(w, "OK   %d\t%s\n", r.Plant.ID, r.Plant.CommonName)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ingests failed", failed, len(results))
	}
	return nil
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for ADMIN_PASSWORD_HASH",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && !errors.Is(err, io.EOF) {
				return fmt.Errorf("reading password: %w", err)
			}
			password := strings.TrimRight(line, "\r\n")
			hash, err := auth.NewPasswordService().Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}

func newTokenCmd(load configLoader) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token with the configured JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, _, err := load()
			if err != nil {
				return err
			}
			if !cfg.AuthEnabled() {
				return errors.New("JWT_SECRET is not set")
			}
			tokens, err := auth.NewTokenService(cfg.JWTSecret)
			if err != nil {
				return err
			}
			signed, expires, err := tokens.Generate(auth.AdminSubject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), signed)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "token lifetime")
	return cmd
}
