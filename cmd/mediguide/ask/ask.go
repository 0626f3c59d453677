// Package askcmder provides the ask command for one-shot grounded questions.
package askcmder

import (
	"context"
	"fmt"
	"os"

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

const askLongDesc string = `Ask a one-shot question grounded in the indexed corpus.

Embeds the question, retrieves the most similar corpus chunks, and generates
an answer grounded in them. The answer renders as markdown followed by the
source documents it drew on.

Requires a built index (see "mediguide index") and a working model credential
(llm.api_key config or MEDIGUIDE_LLM_API_KEY).

Examples:
  mediguide ask "What is the recommended dose of paracetamol?"
  mediguide ask "bukhar ke liye kya karna chahiye?" --top-k 5
  mediguide ask "Can I take ibuprofen with aspirin?" --model llama-3.1-8b-instant`

const askShortDesc string = "Ask a one-shot grounded question"

type askCommander struct {
	question string

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

// askFlagKeys are the registry flags the ask command binds into viper.
var askFlagKeys = []string{
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

func NewAskCmd() *cobra.Command {
	cmder := &askCommander{}

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: askShortDesc,
		Long:  askLongDesc,
		Args:  cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, askFlagKeys)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.question = args[0]

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

func (c *askCommander) run(ctx context.Context) error {
	// Keep the spinner line clean unless the user asked for debug output.
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
	var answer *rag.Answer
	err = cliui.Step(os.Stdout, "Consulting the corpus", func() error {
		var answerErr error
		answer, answerErr = engine.Answer(ctx, c.question)
		return answerErr
	})
	if err != nil {
		return err
	}

	sources := make([]string, 0, len(answer.Sources))
	for _, src := range answer.Sources {
		sources = append(sources, src.Document)
	}

	rendered, err := cliui.RenderAnswer(answer.Text, sources)
	if err != nil {
		return fmt.Errorf("rendering answer: %w", err)
	}

	fmt.Println(rendered)
	return nil
}
