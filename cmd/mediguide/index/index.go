// Package indexcmder provides the `mediguide index` CLI command.
package indexcmder

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mediguideco/mediguide/pkg/chunker"
	"github.com/mediguideco/mediguide/pkg/cliui"
	"github.com/mediguideco/mediguide/pkg/config"
	"github.com/mediguideco/mediguide/pkg/corpus"
	embeddingutils "github.com/mediguideco/mediguide/pkg/embeddings/utils"
	"github.com/mediguideco/mediguide/pkg/indexer"
	"github.com/mediguideco/mediguide/pkg/logger"
	vectorutils "github.com/mediguideco/mediguide/pkg/vector/utils"
)

const indexLongDesc string = `Build the corpus vector index.

Reads every document under the data directory, splits each into overlapping
chunks, embeds the chunks with the configured embedding provider, and writes
them into the vector store. The build is all-or-nothing: every chunk is
embedded before the existing index is replaced, so a failed build leaves the
previous index untouched.

The index is stamped with the embedding model and dimensions it was built
with. Serving against an index built with a different model fails at startup.

Examples:
  mediguide index
  mediguide index --data-dir ./data
  mediguide index --embedding-model all-minilm --embedding-dimensions 384
  mediguide index --vector-store-provider qdrant --vector-store-target localhost:6334`

const indexShortDesc string = "Build the corpus vector index"

type indexCommander struct {
	dataDir      string
	chunkSize    int
	chunkOverlap int

	vectorProvider string
	vectorPath     string
	vectorTarget   string
	collection     string

	embedProvider string
	embedTarget   string
	embedModel    string
	embedDims     uint

	workers uint
	debug   bool

	cfg *config.Config
}

// indexFlagKeys are the registry flags the index command binds into viper.
var indexFlagKeys = []string{
	config.FlagDataDir,
	config.FlagChunkSize,
	config.FlagChunkOverlap,
	config.FlagVectorStoreProv,
	config.FlagVectorStorePath,
	config.FlagVectorStoreTgt,
	config.FlagCollection,
	config.FlagEmbeddingProv,
	config.FlagEmbeddingTgt,
	config.FlagEmbeddingModel,
	config.FlagEmbeddingDims,
}

func NewIndexCmd() *cobra.Command {
	cmder := &indexCommander{}

	cmd := &cobra.Command{
		Use:   "index",
		Short: indexShortDesc,
		Long:  indexLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.Flags, indexFlagKeys)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagDataDir, &cmder.dataDir)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkSize, &cmder.chunkSize)
	config.AddIntFlag(cmd, config.Flags, config.FlagChunkOverlap, &cmder.chunkOverlap)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreProv, &cmder.vectorProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStorePath, &cmder.vectorPath)
	config.AddStringFlag(cmd, config.Flags, config.FlagVectorStoreTgt, &cmder.vectorTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagCollection, &cmder.collection)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingProv, &cmder.embedProvider)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingTgt, &cmder.embedTarget)
	config.AddStringFlag(cmd, config.Flags, config.FlagEmbeddingModel, &cmder.embedModel)
	config.AddUintFlag(cmd, config.Flags, config.FlagEmbeddingDims, &cmder.embedDims)
	cmd.Flags().UintVarP(&cmder.workers, "workers", "w", 0, "Concurrent embedding workers (0 = auto)")

	return cmd
}

func (c *indexCommander) run(ctx context.Context) error {
	// Keep the spinner line clean unless the user asked for debug output.
	log := logger.Nop()
	if c.debug {
		log = logger.New(logger.WithDebug(true))
	}

	source, err := corpus.NewDirSource(c.cfg.Corpus.DataDir)
	if err != nil {
		return fmt.Errorf("opening corpus: %w", err)
	}

	ck, err := chunker.New(c.cfg.Chunking.Size, c.cfg.Chunking.Overlap)
	if err != nil {
		return err
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

	ix, err := indexer.New(indexer.Config{
		Source:     source,
		Chunker:    ck,
		Embedder:   embedder,
		Driver:     driver,
		NumWorkers: c.workers,
		Logger:     log,
	})
	if err != nil {
		return err
	}

	fmt.Println()
	var result *indexer.Result
	err = cliui.Step(os.Stdout, fmt.Sprintf("Indexing %s", c.cfg.Corpus.DataDir), func() error {
		var buildErr error
		result, buildErr = ix.Build(ctx)
		return buildErr
	})
	if err != nil {
		return err
	}

	fmt.Printf("\n  %s Indexed %d documents (%d chunks) with %s\n\n",
		cliui.SuccessMark,
		result.Documents,
		result.Chunks,
		cliui.ValueStyle.Render(c.cfg.Embedding.Model),
	)

	return nil
}
