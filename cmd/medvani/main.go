package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/medvani/medvani/ai/embedding"
	"github.com/medvani/medvani/ai/guardrail"
	"github.com/medvani/medvani/ai/llm"
	"github.com/medvani/medvani/ai/metrics"
	"github.com/medvani/medvani/ai/orchestrator"
	"github.com/medvani/medvani/ai/speech"
	"github.com/medvani/medvani/internal/crypto"
	"github.com/medvani/medvani/internal/profile"
	"github.com/medvani/medvani/internal/version"
	"github.com/medvani/medvani/memory"
	"github.com/medvani/medvani/memory/pgvector"
	"github.com/medvani/medvani/server"
	"github.com/medvani/medvani/store"
	"github.com/medvani/medvani/store/db"
)

var rootCmd = &cobra.Command{
	Use:   "medvani",
	Short: "A multilingual, retrieval-grounded medical chat backend with encrypted per-user memory.",
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// .env is a convenience for direct binary execution; process managers
		// inject the environment themselves.
		if !isRunningAsSystemdService() {
			_ = godotenv.Load()
		}
		return nil
	},
	Run: func(_ *cobra.Command, _ []string) {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			panic(err)
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		dbDriver, err := db.NewDBDriver(instanceProfile)
		if err != nil {
			slog.Error("failed to create db driver", "error", err)
			return
		}
		storeInstance := store.New(dbDriver, instanceProfile)
		if err := storeInstance.Migrate(ctx); err != nil {
			slog.Error("failed to migrate", "error", err)
			return
		}

		orch, speechClient, exporter := buildPipeline(instanceProfile, storeInstance)

		s, err := server.NewServer(ctx, instanceProfile, storeInstance, orch, speechClient, exporter)
		if err != nil {
			slog.Error("failed to create server", "error", err)
			return
		}

		c := make(chan os.Signal, 1)
		// SIGTERM is the graceful shutdown signal for most process managers.
		signal.Notify(c, terminationSignals...)

		if err := s.Start(ctx); err != nil {
			slog.Error("failed to start server", "error", err)
			return
		}
		printGreetings(instanceProfile)

		go func() {
			<-c
			s.Shutdown(ctx)
			cancel()
		}()

		<-ctx.Done()
	},
}

// buildPipeline resolves the profile's capabilities into concrete backends
// and wires the chat orchestrator. Missing capabilities stay nil and the
// pipeline degrades per step instead of failing at startup.
func buildPipeline(instanceProfile *profile.Profile, storeInstance *store.Store) (*orchestrator.Orchestrator, *speech.Client, *metrics.Exporter) {
	logger := slog.Default()

	var modelService llm.Service
	if instanceProfile.IsLLMEnabled() {
		modelService = llm.NewService(&llm.Config{
			APIKey:      instanceProfile.LLMAPIKey,
			BaseURL:     instanceProfile.LLMBaseURL,
			Model:       instanceProfile.LLMModel,
			VisionModel: instanceProfile.LLMVisionModel,
			Timeout:     instanceProfile.LLMTimeout,
		})
		slog.Info("llm service initialized", "model", instanceProfile.LLMModel)
	} else {
		slog.Warn("GROQ_API_KEY not set, model invocation disabled")
	}

	speechClient := speech.NewClient(&speech.Config{
		APIKey:   instanceProfile.SpeechAPIKey,
		BaseURL:  instanceProfile.SpeechBaseURL,
		STTModel: instanceProfile.SpeechSTTModel,
		TTSModel: instanceProfile.SpeechTTSModel,
	})
	if speechClient == nil {
		slog.Warn("SARVAM_API_KEY not set, speech and translation disabled")
	}

	embedder := embedding.NewDigestProvider(embedding.DefaultDimensions)

	var vectorBackend memory.Backend
	if instanceProfile.IsVectorEnabled() {
		backend, err := pgvector.New(instanceProfile.VectorDSN, embedder.Dimensions())
		if err != nil {
			slog.Error("failed to connect vector backend, retrieval disabled", "error", err)
		} else {
			vectorBackend = backend
			slog.Info("vector backend connected", "namespace", instanceProfile.VectorNamespace)
		}
	} else {
		slog.Warn("MEDVANI_VECTOR_DSN not set, retrieval runs in local fallback mode")
	}

	codec := crypto.NewCodec(instanceProfile.AESKey)
	memoryStore := memory.NewStore(vectorBackend, codec, embedder, instanceProfile.VectorNamespace, logger)

	exporter := metrics.NewExporter()

	return orchestrator.New(orchestrator.Config{
		Guardrail:  guardrail.NewEngine(logger),
		LLM:        modelService,
		Translator: asTranslator(speechClient),
		Memory:     memoryStore,
		Sessions:   storeInstance,
		Metrics:    exporter,
		TopK:       instanceProfile.VectorTopK,
		Logger:     logger,
	}), speechClient, exporter
}

// asTranslator keeps a nil *speech.Client from becoming a non-nil interface.
func asTranslator(client *speech.Client) orchestrator.Translator {
	if client == nil {
		return nil
	}
	return client
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("port", 8000)

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev" or "demo"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8000, "port of server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "session store driver (postgres, sqlite)")
	rootCmd.PersistentFlags().String("dsn", "", "database source name(aka. DSN)")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("medvani")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

func printGreetings(instanceProfile *profile.Profile) {
	fmt.Printf("MedVani %s started successfully!\n", instanceProfile.Version)
	if instanceProfile.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}
	fmt.Printf("Data directory: %s\n", instanceProfile.Data)
	fmt.Printf("Session store driver: %s\n", instanceProfile.Driver)
	fmt.Printf("Mode: %s\n", instanceProfile.Mode)
	if instanceProfile.Addr == "" {
		fmt.Printf("Server running on port %d\n", instanceProfile.Port)
	} else {
		fmt.Printf("Server running on %s:%d\n", instanceProfile.Addr, instanceProfile.Port)
	}
}

// isRunningAsSystemdService detects if the process is running under systemd.
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		panic(err)
	}
}
