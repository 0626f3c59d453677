// Package chatcmder provides the chat command for interactive grounded Q&A.
package chatcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mediguideco/mediguide/pkg/cliui"
	"github.com/mediguideco/mediguide/pkg/config"
	embeddingutils "github.com/mediguideco/mediguide/pkg/embeddings/utils"
	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/llm/gateway"
	"github.com/mediguideco/mediguide/pkg/logger"
	"github.com/mediguideco/mediguide/pkg/rag"
	vectorutils "github.com/mediguideco/mediguide/pkg/vector/utils"
)

var userPrompt = cliui.PromptStyle.Render("you> ")

const chatLongDesc string = `Start an interactive chat session grounded in the indexed corpus.

Each turn embeds your message, retrieves the most similar corpus chunks, and
generates a grounded answer. Earlier turns are replayed to the model so
follow-up questions keep their context. History lives only in this session;
use the HTTP API for persisted conversations.

Requires a built index (see "mediguide index") and a working model credential
(llm.api_key config or MEDIGUIDE_LLM_API_KEY).

Examples:
  mediguide chat
  mediguide chat --top-k 5
  mediguide chat --model llama-3.1-8b-instant`

const chatShortDesc string = "Interactive grounded chat session"

type chatCommander struct {
	vectorProvider string
	vectorPath     string
	vectorTarget   string
	collection     string

	embedProvider string
	embedTarget   string
	embedModel    string
	embedDims     uint

	model string
	topK  uint
	debug bool

	cfg *config.Config
}

// chatFlagKeys are the registry flags the chat command binds into viper.
var chatFlagKeys = []string{
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
	config.FlagLLMModel,
	config.FlagTopK,
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, chatFlagKeys)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	config.AddStringFlag(cmd, config.Flags, config.FlagLLMModel, &cmder.model)
	config.AddUintFlag(cmd, config.Flags, config.FlagTopK, &cmder.topK)

	return cmd
}

func (c *chatCommander) run(ctx context.Context) error {
	// Keep the prompt lines clean unless the user asked for debug output.
	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true))
	}

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

	driver, err := vectorutils.NewVectorDriver(ctx, &vectorutils.NewVectorDriverOpts{
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
	defer driver.Close()

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
		return err
	}
	defer completer.Close()

	engine, err := rag.New(rag.Config{
		Embedder:  embedder,
		Driver:    driver,
		Completer: completer,
		TopK:      c.cfg.Client.TopK,
		Logger:    log,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  %s %s\n",
		cliui.KeyStyle.Render("Model:"),
		cliui.ValueStyle.Render(completer.Model()),
	)
	fmt.Printf("  %s\n\n", cliui.DimStyle.Render("Type your question and press Enter. /exit or Ctrl+D to quit."))

	var history []llm.Message
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print(userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		answer, err := engine.Answer(ctx, input, history...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  %s %v\n", cliui.FailMark, err)
			continue
		}

		sources := make([]string, 0, len(answer.Sources))
		for _, src := range answer.Sources {
			sources = append(sources, src.Document)
		}

		rendered, err := cliui.RenderAnswer(answer.Text, sources)
		if err != nil {
			// Fall back to the raw answer if rendering fails.
			rendered = answer.Text
		}

		fmt.Println(rendered)

		history = append(history,
			llm.NewUserMessage(input),
			llm.Message{Role: llm.RoleAssistant, Content: answer.Text},
		)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Println()
	return nil
}
