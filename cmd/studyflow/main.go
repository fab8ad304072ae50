package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"studyflow/internal/ai"
	"studyflow/internal/exam"
	"studyflow/internal/examstore"
	"studyflow/internal/extract"
	"studyflow/internal/handler"
	"studyflow/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "studyflow",
		Short: "Study assistant backend: summaries, flashcards and practice exams from lecture notes",
	}

	serve := serveCmd()
	root.AddCommand(serve, printCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `studyflow --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8000", "HTTP listen address")
	f.String("data-dir", "data", "Directory for uploads, summaries and exam files")
	f.String("db", "studyflow.db", "SQLite database path")
	f.String("ollama-url", "http://localhost:11434/v1", "Ollama OpenAI-compatible API base URL")
	f.String("ollama-model", "llama3.2", "Default Ollama model name")
	f.String("openai-url", "https://api.openai.com/v1", "OpenAI API base URL")
	f.String("openai-model", "gpt-4o-mini", "Default OpenAI model name")
	f.String("openai-key", "", "OpenAI API key (or set STUDYFLOW_OPENAI_KEY)")
	f.String("provider", ai.ProviderOllama, "Default AI provider (ollama, openai)")
	f.StringSlice("cors-origins", []string{"*"}, "Allowed CORS origins")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func printCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "print",
		Short: "Render a stored exam as printable text",
		RunE:  runPrint,
	}
	f := cmd.Flags()
	f.String("data-dir", "data", "Directory for uploads, summaries and exam files")
	f.String("exam-id", "", "Exam identifier (required)")
	f.Bool("answer-key", false, "Render the answer key instead of the question sheet")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	_ = cmd.MarkFlagRequired("exam-id")

	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("STUDYFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("studyflow")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/studyflow")
	v.AddConfigPath("/etc/studyflow")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	dataDir := v.GetString("data-dir")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	exams, err := examstore.New(filepath.Join(dataDir, "exams"))
	if err != nil {
		return fmt.Errorf("open exam store: %w", err)
	}

	aiCfg := ai.Config{
		DefaultProvider: strings.ToLower(v.GetString("provider")),
		OllamaURL:       v.GetString("ollama-url"),
		OllamaModel:     v.GetString("ollama-model"),
		OpenAIURL:       v.GetString("openai-url"),
		OpenAIModel:     v.GetString("openai-model"),
		OpenAIKey:       v.GetString("openai-key"),
	}

	h := handler.New(db, exams, extract.PlainText{}, handler.Config{
		DataDir: dataDir,
		AI:      aiCfg,
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   v.GetStringSlice("cors-origins"),
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-AI-Model", "X-AI-Backend-Model", "X-OpenAI-API-Key"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"data_dir", dataDir,
		"db", v.GetString("db"),
		"provider", aiCfg.DefaultProvider,
		"ollama_url", aiCfg.OllamaURL,
		"ollama_model", aiCfg.OllamaModel,
		"openai_model", aiCfg.OpenAIModel,
	)
	return http.ListenAndServe(addr, r)
}

func runPrint(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	exams, err := examstore.New(filepath.Join(v.GetString("data-dir"), "exams"))
	if err != nil {
		return fmt.Errorf("open exam store: %w", err)
	}

	record, err := exams.Load(v.GetString("exam-id"))
	if err != nil {
		return fmt.Errorf("load exam: %w", err)
	}

	if v.GetBool("answer-key") {
		fmt.Print(exam.FormatAnswerKey(*record))
	} else {
		fmt.Print(exam.FormatForPrint(*record))
	}
	return nil
}
