package indexer_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/chunker"
	"github.com/mediguideco/mediguide/pkg/corpus"
	"github.com/mediguideco/mediguide/pkg/indexer"
	"github.com/mediguideco/mediguide/pkg/logger"
	testutils "github.com/mediguideco/mediguide/pkg/utils/test"
	"github.com/mediguideco/mediguide/pkg/vector/sqlitevec"
)

var _ = Describe("Indexer", func() {
	var (
		tmpDir   string
		embedder *testutils.WordEmbedder
		ck       *chunker.Chunker
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "indexer-test-*")
		Expect(err).NotTo(HaveOccurred())

		embedder = testutils.NewWordEmbedder(16)

		ck, err = chunker.New(30, 5)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	writeDoc := func(name, content string) {
		Expect(os.WriteFile(filepath.Join(tmpDir, name), []byte(content), 0o600)).To(Succeed())
	}

	newDriver := func() *sqlitevec.Driver {
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Model:      embedder.Model(),
			Dimensions: embedder.Dimensions(),
		}, logger.Nop())
		Expect(err).NotTo(HaveOccurred())
		return driver
	}

	newIndexer := func(driver *sqlitevec.Driver) *indexer.Indexer {
		src, err := corpus.NewDirSource(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		ix, err := indexer.New(indexer.Config{
			Source:   src,
			Chunker:  ck,
			Embedder: embedder,
			Driver:   driver,
			Logger:   logger.Nop(),
		})
		Expect(err).NotTo(HaveOccurred())
		return ix
	}

	Describe("New", func() {
		It("rejects a nil source", func() {
			_, err := indexer.New(indexer.Config{
				Chunker:  ck,
				Embedder: embedder,
				Driver:   newDriver(),
				Logger:   logger.Nop(),
			})
			Expect(err).To(HaveOccurred())
		})

		It("rejects a nil embedder", func() {
			writeDoc("a.txt", "content")
			src, err := corpus.NewDirSource(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			_, err = indexer.New(indexer.Config{
				Source:  src,
				Chunker: ck,
				Driver:  newDriver(),
				Logger:  logger.Nop(),
			})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Build", func() {
		It("indexes every chunk of every document", func() {
			writeDoc("aspirin.txt", "aspirin thins the blood and reduces fever in adults")
			writeDoc("ibuprofen.txt", "ibuprofen reduces inflammation and joint pain")

			driver := newDriver()
			defer driver.Close()

			result, err := newIndexer(driver).Build(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Documents).To(Equal(2))
			Expect(result.Chunks).To(BeNumerically(">", 0))

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(result.Chunks))
		})

		It("stamps the index with the embedding model", func() {
			writeDoc("a.txt", "some corpus content here")

			driver := newDriver()
			defer driver.Close()

			_, err := newIndexer(driver).Build(context.Background())
			Expect(err).NotTo(HaveOccurred())

			m, err := driver.Meta(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Model).To(Equal(embedder.Model()))
			Expect(m.Dimensions).To(Equal(embedder.Dimensions()))
		})

		It("makes indexed content retrievable by similarity", func() {
			writeDoc("aspirin.txt", "aspirin thins the blood")
			writeDoc("ibuprofen.txt", "ibuprofen reduces joint swelling")

			driver := newDriver()
			defer driver.Close()

			_, err := newIndexer(driver).Build(context.Background())
			Expect(err).NotTo(HaveOccurred())

			queryVec, err := embedder.Embed(context.Background(), "aspirin blood")
			Expect(err).NotTo(HaveOccurred())

			results, err := driver.Query(context.Background(), queryVec, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Source).To(Equal("aspirin.txt"))
		})

		It("is idempotent across rebuilds of an unchanged corpus", func() {
			writeDoc("a.txt", "stable corpus content that does not change between runs")

			driver := newDriver()
			defer driver.Close()

			ix := newIndexer(driver)

			first, err := ix.Build(context.Background())
			Expect(err).NotTo(HaveOccurred())

			second, err := ix.Build(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(second).To(Equal(first))

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(first.Chunks))
		})

		It("fails the build when the corpus is empty", func() {
			driver := newDriver()
			defer driver.Close()

			_, err := newIndexer(driver).Build(context.Background())
			Expect(err).To(MatchError(corpus.ErrNoDocuments))
		})

		It("aborts without touching the index when an embedding fails", func() {
			writeDoc("good.txt", "healthy document")

			driver := newDriver()
			defer driver.Close()

			// Seed the index with a prior successful build.
			_, err := newIndexer(driver).Build(context.Background())
			Expect(err).NotTo(HaveOccurred())

			before, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())

			// A failing embedder must leave the previous index intact.
			failing := testutils.NewMockEmbedder()
			failing.ModelName = embedder.Model()
			failing.Dims = embedder.Dimensions()
			failing.FailOn = "healthy document"

			src, err := corpus.NewDirSource(tmpDir)
			Expect(err).NotTo(HaveOccurred())

			ix, err := indexer.New(indexer.Config{
				Source:   src,
				Chunker:  ck,
				Embedder: failing,
				Driver:   driver,
				Logger:   logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = ix.Build(context.Background())
			Expect(err).To(HaveOccurred())

			after, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(after).To(Equal(before))
		})
	})
})
