package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/studygen/internal/handler"
	"github.com/xxxsen/studygen/internal/ingest"
	"github.com/xxxsen/studygen/internal/job"
	"github.com/xxxsen/studygen/internal/model"
	appErr "github.com/xxxsen/studygen/internal/pkg/errors"
	"github.com/xxxsen/studygen/internal/schedule"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "studygen",
		Short:         "turn documents into flashcards, quizzes and short-answer drills",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "studygen.json", "path to config.json")

	withApp := func(instructions string, fn func(ctx context.Context, a *app) error) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		ctx := context.Background()
		a, err := newApp(ctx, cfg, instructions)
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a)
	}

	rootCmd.AddCommand(
		generateCmd(withApp),
		banksCmd(withApp),
		providerCmd(withApp),
		serveCmd(withApp),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", userMessage(err))
		os.Exit(1)
	}
}

type appRunner func(instructions string, fn func(ctx context.Context, a *app) error) error

func userMessage(err error) string {
	switch {
	case errors.Is(err, appErr.ErrEmptyContent):
		return "the document has no readable text"
	case errors.Is(err, appErr.ErrUnsupportedFile):
		return err.Error() + " (extract the text first and pass it with --text-file)"
	case errors.Is(err, appErr.ErrBusy):
		return "a document is already being processed"
	}
	return err.Error()
}

func generateCmd(run appRunner) *cobra.Command {
	var file, textFile, instructions, provider string
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "generate a study bank from a document",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" && textFile == "" {
				return fmt.Errorf("--file or --text-file is required")
			}
			var doc *ingest.Document
			var err error
			if textFile != "" {
				doc, err = ingest.LoadFile(textFile)
				if err == nil && file != "" {
					doc.FileName = file
				}
			} else {
				doc, err = ingest.LoadFile(file)
			}
			if err != nil {
				return err
			}
			return run(instructions, func(ctx context.Context, a *app) error {
				if provider != "" {
					if err := a.providers.Override(ctx, provider); err != nil {
						return err
					}
				}
				out := cmd.ErrOrStderr()
				a.banks.OnStatus(func(s model.ProcessingStatus) {
					if s.IsProcessing && s.Message != "" {
						fmt.Fprintf(out, "\r\033[K[%d/%d] %s", s.CurrentChunk, s.TotalChunks, s.Message)
					}
				})
				bank, err := a.banks.Process(ctx, doc.FileName, doc.Text)
				fmt.Fprintln(out)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d flashcards, %d mcqs, %d fill-in-the-blanks, %d short answers\n",
					bank.ID, len(bank.Flashcards), len(bank.MCQs), len(bank.FillBlanks), len(bank.ShortAnswers))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "document to read (.txt, .md); with --text-file, the name to record")
	cmd.Flags().StringVar(&textFile, "text-file", "", "pre-extracted text of a pdf or image")
	cmd.Flags().StringVar(&instructions, "instructions", "", "extra instructions for the model")
	cmd.Flags().StringVar(&provider, "provider", "", "provider for this run only; the saved selection is unchanged")
	return cmd
}

func banksCmd(run appRunner) *cobra.Command {
	cmd := &cobra.Command{Use: "banks", Short: "inspect saved study banks"}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "list study banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tFILE\tCREATED\tCHUNKS\tITEMS")
				for _, b := range a.banks.List() {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%d\n", b.ID, b.FileName, b.CreatedAt, b.ProcessedChunks, b.TotalChunks, b.ItemCount())
				}
				return w.Flush()
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <id>",
		Short: "print a study bank as json",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				bank, err := a.banks.Get(args[0])
				if err != nil {
					return err
				}
				bank.RawText = ""
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(bank)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "delete a study bank",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				return a.banks.Delete(ctx, args[0])
			})
		},
	})
	return cmd
}

func providerCmd(run appRunner) *cobra.Command {
	cmd := &cobra.Command{Use: "provider", Short: "choose and configure the generation provider"}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "print the active provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				p := a.providers.Current()
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", p.Name(), p.DefaultModel())
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "use <name>",
		Short: "switch the active provider",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				return a.providers.Use(ctx, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set-key <name> <key>",
		Short: "store the api key of a hosted provider",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				return a.providers.SetKey(ctx, args[0], args[1])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "probe every provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "PROVIDER\tMODEL\tACTIVE\tKEY\tAVAILABLE")
				for _, st := range a.providers.Status(ctx) {
					fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\n", st.Name, st.Model, st.Active, st.HasKey, st.Available)
				}
				return w.Flush()
			})
		},
	})
	return cmd
}

func serveCmd(run appRunner) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "serve the provider proxy, bank api and static app",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run("", func(ctx context.Context, a *app) error {
				return serve(ctx, a)
			})
		},
	}
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := logutil.GetLogger(ctx)

	scheduler := schedule.NewCronScheduler()
	resync := job.NewMirrorResyncJob(a.store)
	if err := scheduler.AddJob(resync, cfg.MirrorResyncCron); err != nil {
		return fmt.Errorf("schedule mirror resync: %w", err)
	}
	if err := scheduler.RunNow(resync.Name()); err != nil {
		return err
	}

	router := handler.NewRouter(handler.RouterDeps{
		Proxy: handler.NewProxyHandler(a.providers, handler.GenerateOptions{
			Temperature: cfg.Generation.Temperature,
			MaxTokens:   cfg.Generation.MaxTokens,
			Timeout:     time.Duration(cfg.Generation.Timeout) * time.Second,
		}),
		Banks:       handler.NewBankHandler(a.banks),
		Mode:        cfg.Providers.Mode,
		StaticDir:   cfg.Server.StaticDir,
		CORSOrigins: cfg.Server.CORSOrigins,
		RateLimit:   time.Duration(cfg.Server.RateLimitMs) * time.Millisecond,
	})
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	scheduler.Start(ctx)
	defer scheduler.Stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", zap.String("addr", addr), zap.String("mode", cfg.Providers.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("server stopping...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
