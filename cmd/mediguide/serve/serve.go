// Package servecmder provides the serve command for running the API and MCP servers.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mediguideco/mediguide/api"
	"github.com/mediguideco/mediguide/api/mcp"
	"github.com/mediguideco/mediguide/pkg/auth"
	"github.com/mediguideco/mediguide/pkg/config"
	"github.com/mediguideco/mediguide/pkg/embeddings"
	embeddingutils "github.com/mediguideco/mediguide/pkg/embeddings/utils"
	"github.com/mediguideco/mediguide/pkg/eventstream"
	eventstreamutils "github.com/mediguideco/mediguide/pkg/eventstream/utils"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/llm/gateway"
	"github.com/mediguideco/mediguide/pkg/logger"
	"github.com/mediguideco/mediguide/pkg/rag"
	"github.com/mediguideco/mediguide/pkg/storage"
	storageutils "github.com/mediguideco/mediguide/pkg/storage/utils"
	"github.com/mediguideco/mediguide/pkg/vector"
	vectorutils "github.com/mediguideco/mediguide/pkg/vector/utils"
)

const serveLongDesc string = `Run the MediGuide servers.

Starts the HTTP API (register, token, chat, conversations) and the MCP server
(ask and retrieve tools) against the built vector index.

At startup the configured model credentials are tried in order and the first
working one is bound for the life of the process. If none work, the servers
still start: /chat and the ask tool answer 503 until a restart with working
credentials.

Examples:
  mediguide serve
  mediguide serve --api-listen :8000
  mediguide serve --storage-provider postgres --postgres-dsn postgres://...
  MEDIGUIDE_LLM_API_KEY=gsk_... mediguide serve`

const serveShortDesc string = "Run the MediGuide API and MCP servers"

type ServeCommander struct {
	apiListen string
	mcpListen string

	storageProvider string
	sqlitePath      string
	postgresDSN     string

	vectorProvider string
	vectorPath     string
	vectorTarget   string
	collection     string

	embedProvider string
	embedTarget   string
	embedModel    string
	embedDims     uint

	topK  uint
	debug bool

	cfg *config.Config
}

// serveFlagKeys are the registry flags the serve command binds into viper.
var serveFlagKeys = []string{
	config.FlagAPIListen,
	config.FlagStorageProv,
	config.FlagSQLite,
	config.FlagPostgresDSN,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagTopK,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}

			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagAPIListen, &cmder.apiListen)
	config.AddStringFlag(cmd, config.Flags, config.FlagStorageProv, &cmder.storageProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgresDSN, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)
	cmd.Flags().StringVar(&cmder.mcpListen, "mcp-listen", ":8001", "Address for the MCP server to listen on")

	return cmd
}

func (c *ServeCommander) run(ctx context.Context) error {
	log := logger.New(logger.WithDebug(c.debug))

	embedder, err := embeddingutils.NewEmbedder(&embeddingutils.NewEmbedderOpts{
		ProviderType: c.cfg.Embedding.Provider,
		TargetURL:    c.cfg.Embedding.Target,
		Model:        c.cfg.Embedding.Model,
		Dimensions:   c.cfg.Embedding.Dimensions,
		APIKey:       c.cfg.Embedding.APIKey,
	})
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	defer embedder.Close()

	// Opening the vector store verifies the compatibility stamp against the
	// configured embedding model.
	vectorDriver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
		ProviderType: c.cfg.VectorStore.Provider,
		Path:         c.cfg.VectorStore.Path,
		TargetURL:    c.cfg.VectorStore.Target,
		Collection:   c.cfg.VectorStore.Collection,
		Model:        c.cfg.Embedding.Model,
		Dimensions:   c.cfg.Embedding.Dimensions,
		Logger:       log,
	})
	if err != nil {
		return fmt.Errorf("opening vector store: %w", err)
	}
	defer vectorDriver.Close()

	// Resolve the generative model once, at startup. A failed resolve is not
	// fatal: the servers come up and /chat answers 503 until restart.
	var engine *rag.Engine
	completer, err := gateway.Resolve(ctx, gateway.Config{
		BaseURL: c.cfg.LLM.BaseURL,
		Generation: llm.GenerationConfig{
			Model:       c.cfg.LLM.Model,
			Temperature: c.cfg.LLM.Temperature,
			MaxTokens:   c.cfg.LLM.MaxTokens,
		},
		Credentials: c.cfg.LLM.Credentials(),
		Logger:      log,
	})
	if err != nil {
		log.Warn("no working model credential, serving without an engine", "error", err)
	} else {
		defer completer.Close()

		engine, err = rag.New(rag.Config{
			Embedder:  embedder,
			Driver:    vectorDriver,
			Completer: completer,
			TopK:      c.cfg.Client.TopK,
			Logger:    log,
		})
		if err != nil {
			return fmt.Errorf("creating query engine: %w", err)
		}
	}

	storer, err := storageutils.NewStorageDriver(ctx, storageutils.NewStorageDriverOpts{
		ProviderType: c.cfg.Storage.Provider,
		SQLitePath:   c.cfg.Storage.SQLitePath,
		PostgresDSN:  c.cfg.Storage.PostgresDSN,
	})
	if err != nil {
		return fmt.Errorf("creating storage driver: %w", err)
	}
	defer storer.Close()

	issuer, err := auth.NewTokenIssuer(
		c.cfg.Auth.JWTSecret,
		time.Duration(c.cfg.Auth.TokenTTLMinutes)*time.Minute,
	)
	if err != nil {
		return fmt.Errorf("creating token issuer: %w", err)
	}

	publisher, err := eventstreamutils.NewPublisher(eventstreamutils.NewPublisherOpts{
		ProviderType: c.cfg.Events.Provider,
		Brokers:      c.cfg.Events.Brokers,
		Topic:        c.cfg.Events.Topic,
	})
	if err != nil {
		return fmt.Errorf("creating event publisher: %w", err)
	}
	defer publisher.Close()

	apiServer := c.newAPIServer(engine, storer, issuer, publisher, log)
	mcpServer, err := c.newMCPServer(engine, vectorDriver, embedder, log)
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}

	log.Info("starting servers",
		"api_listen", c.cfg.API.Listen,
		"mcp_listen", c.mcpListen,
		"engine", engine != nil,
	)

	// Channel to capture errors from goroutines
	errChan := make(chan error, 2)

	go func() {
		if err := apiServer.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	// A noop MCP server has no HTTP handler; skip the listener entirely.
	var mcpHTTP *http.Server
	if handler := mcpServer.Handler(); handler != nil {
		mcpHTTP = &http.Server{
			Addr:              c.mcpListen,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			if err := mcpHTTP.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				errChan <- fmt.Errorf("MCP server error: %w", err)
			}
		}()
	} else {
		log.Warn("MCP tools disabled, no query engine")
	}

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := apiServer.Shutdown(); err != nil {
			log.Warn("API server shutdown", "error", err)
		}
		if mcpHTTP != nil {
			if err := mcpHTTP.Shutdown(shutdownCtx); err != nil {
				log.Warn("MCP server shutdown", "error", err)
			}
		}
		return nil
	}
}

func (c *ServeCommander) newAPIServer(
	engine *rag.Engine,
	storer storage.Driver,
	issuer *auth.TokenIssuer,
	publisher eventstream.Publisher,
	log *slog.Logger,
) *api.Server {
	// A nil *rag.Engine must become a nil interface so the handler's nil
	// check fires.
	var answerer api.Answerer
	if engine != nil {
		answerer = engine
	}

	return api.NewServer(
		api.Config{ListenAddr: c.cfg.API.Listen},
		answerer,
		storer,
		issuer,
		publisher,
		log,
	)
}

func (c *ServeCommander) newMCPServer(
	engine *rag.Engine,
	vectorDriver vector.Driver,
	embedder embeddings.Embedder,
	log *slog.Logger,
) (*mcp.Server, error) {
	cfg := mcp.Config{
		VectorDriver: vectorDriver,
		Embedder:     embedder,
		Logger:       log,
	}
	if engine != nil {
		cfg.Engine = engine
	} else {
		cfg.Noop = true
	}

	return mcp.NewServer(cfg)
}
