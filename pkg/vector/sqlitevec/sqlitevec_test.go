package sqlitevec_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/logger"
	"github.com/mediguideco/mediguide/pkg/vector"
	"github.com/mediguideco/mediguide/pkg/vector/sqlitevec"
)

var _ = Describe("Driver", func() {
	var log *slog.Logger

	BeforeEach(func() {
		log = logger.Nop()
	})

	newMemDriver := func() *sqlitevec.Driver {
		driver, err := sqlitevec.NewDriver(sqlitevec.Config{
			DBPath:     ":memory:",
			Model:      "all-minilm",
			Dimensions: 4,
		}, log)
		Expect(err).NotTo(HaveOccurred())
		return driver
	}

	Describe("NewDriver", func() {
		It("should return an error when DBPath is empty", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{DBPath: ""}, log)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("database path is required"))
		})

		It("should create a driver with an in-memory database", func() {
			driver := newMemDriver()
			Expect(driver.Close()).To(Succeed())
		})

		It("should error when dimensions not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath: ":memory:",
				Model:  "all-minilm",
			}, log)
			Expect(err).To(HaveOccurred())
		})

		It("should error when model not specified", func() {
			_, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     ":memory:",
				Dimensions: 4,
			}, log)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("compatibility stamp", func() {
		var tmpDir string

		BeforeEach(func() {
			var err error
			tmpDir, err = os.MkdirTemp("", "sqlitevec-test-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(tmpDir)
		})

		It("stamps a fresh index with the configured model", func() {
			path := filepath.Join(tmpDir, "index.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			defer driver.Close()

			m, err := driver.Meta(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Model).To(Equal("all-minilm"))
			Expect(m.Dimensions).To(Equal(uint(4)))
		})

		It("reopens an index built with the same model", func() {
			path := filepath.Join(tmpDir, "index.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())

			reopened, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(reopened.Close()).To(Succeed())
		})

		It("refuses an index built with a different model", func() {
			path := filepath.Join(tmpDir, "index.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())

			_, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "nomic-embed-text",
				Dimensions: 4,
			}, log)
			Expect(err).To(MatchError(vector.ErrIncompatible))
		})

		It("refuses an index built with different dimensions", func() {
			path := filepath.Join(tmpDir, "index.db")
			driver, err := sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}, log)
			Expect(err).NotTo(HaveOccurred())
			Expect(driver.Close()).To(Succeed())

			_, err = sqlitevec.NewDriver(sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 8,
			}, log)
			Expect(err).To(MatchError(vector.ErrIncompatible))
		})
	})

	Describe("Add", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newMemDriver()
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should do nothing when given empty docs", func() {
			err := driver.Add(context.Background(), []vector.Document{})
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())
		})

		It("should add a single document", func() {
			docs := []vector.Document{
				{
					ID:        "drugs.txt#0",
					Source:    "drugs.txt",
					Ordinal:   0,
					Text:      "aspirin thins the blood",
					Embedding: []float32{0.1, 0.2, 0.3, 0.4},
				},
			}

			err := driver.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))
		})

		It("should add multiple documents", func() {
			docs := []vector.Document{
				{ID: "d#0", Source: "d", Ordinal: 0, Text: "a", Embedding: []float32{0.1, 0.1, 0.1, 0.1}},
				{ID: "d#1", Source: "d", Ordinal: 1, Text: "b", Embedding: []float32{0.2, 0.2, 0.2, 0.2}},
				{ID: "d#2", Source: "d", Ordinal: 2, Text: "c", Embedding: []float32{0.3, 0.3, 0.3, 0.3}},
			}

			err := driver.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(3))
		})

		It("should update an existing document in place", func() {
			docs := []vector.Document{
				{ID: "d#0", Source: "d", Ordinal: 0, Text: "old", Embedding: []float32{1, 0, 0, 0}},
			}
			err := driver.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())

			updated := []vector.Document{
				{ID: "d#0", Source: "d", Ordinal: 0, Text: "new", Embedding: []float32{0, 1, 0, 0}},
			}
			err = driver.Add(context.Background(), updated)
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			results, err := driver.Query(context.Background(), []float32{0, 1, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("new"))
		})
	})

	Describe("Query", func() {
		var driver *sqlitevec.Driver

		BeforeEach(func() {
			driver = newMemDriver()

			docs := []vector.Document{
				{ID: "d#0", Source: "d", Ordinal: 0, Text: "zero", Embedding: []float32{1, 0, 0, 0}},
				{ID: "d#1", Source: "d", Ordinal: 1, Text: "one", Embedding: []float32{0.9, 0.1, 0, 0}},
				{ID: "d#2", Source: "d", Ordinal: 2, Text: "two", Embedding: []float32{0, 1, 0, 0}},
				{ID: "d#3", Source: "d", Ordinal: 3, Text: "three", Embedding: []float32{0, 0, 1, 0}},
				{ID: "d#4", Source: "d", Ordinal: 4, Text: "four", Embedding: []float32{0, 0, 0, 1}},
			}
			err := driver.Add(context.Background(), docs)
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			Expect(driver.Close()).To(Succeed())
		})

		It("should return the closest documents with payload", func() {
			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))

			Expect(results[0].ID).To(Equal("d#0"))
			Expect(results[0].Source).To(Equal("d"))
			Expect(results[0].Ordinal).To(Equal(0))
			Expect(results[0].Text).To(Equal("zero"))
			Expect(results[1].ID).To(Equal("d#1"))
		})

		It("should respect topK limit", func() {
			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(3))
		})

		It("should return all documents when topK exceeds the index size", func() {
			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))
		})

		It("should return no results on an empty index", func() {
			empty := newMemDriver()
			defer empty.Close()

			results, err := empty.Query(context.Background(), []float32{1, 0, 0, 0}, 3)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(BeEmpty())
		})

		It("should return similarity scores in descending order", func() {
			results, err := driver.Query(context.Background(), []float32{1, 0, 0, 0}, 5)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(5))

			for i := 1; i < len(results); i++ {
				Expect(results[i-1].Score).To(BeNumerically(">=", results[i].Score))
			}
		})

		It("should rank by direction, not magnitude", func() {
			// A scaled copy of the query direction must beat a closer-by-L2
			// but differently-oriented vector.
			scaled := newMemDriver()
			defer scaled.Close()

			docs := []vector.Document{
				{ID: "big#0", Text: "same direction", Embedding: []float32{10, 0, 0, 0}},
				{ID: "off#0", Text: "off axis", Embedding: []float32{0.7, 0.7, 0, 0}},
			}
			Expect(scaled.Add(context.Background(), docs)).To(Succeed())

			results, err := scaled.Query(context.Background(), []float32{1, 0, 0, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results[0].ID).To(Equal("big#0"))
		})

		It("should break score ties by insertion order", func() {
			tied := newMemDriver()
			defer tied.Close()

			// Two chunks with identical embeddings; the earlier insert wins.
			docs := []vector.Document{
				{ID: "first#0", Text: "first", Embedding: []float32{0, 0, 1, 0}},
				{ID: "second#0", Text: "second", Embedding: []float32{0, 0, 1, 0}},
			}
			Expect(tied.Add(context.Background(), docs)).To(Succeed())

			results, err := tied.Query(context.Background(), []float32{0, 0, 1, 0}, 2)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(2))
			Expect(results[0].ID).To(Equal("first#0"))
			Expect(results[1].ID).To(Equal("second#0"))
		})

		It("should keep insertion order across a three-way tie", func() {
			tied := newMemDriver()
			defer tied.Close()

			docs := []vector.Document{
				{ID: "first#0", Text: "first", Embedding: []float32{0, 0, 1, 0}},
				{ID: "second#0", Text: "second", Embedding: []float32{0, 0, 1, 0}},
				{ID: "third#0", Text: "third", Embedding: []float32{0, 0, 1, 0}},
				{ID: "far#0", Text: "far", Embedding: []float32{1, 0, 0, 0}},
			}
			Expect(tied.Add(context.Background(), docs)).To(Succeed())

			results, err := tied.Query(context.Background(), []float32{0, 0, 1, 0}, 4)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(4))
			Expect(results[0].ID).To(Equal("first#0"))
			Expect(results[1].ID).To(Equal("second#0"))
			Expect(results[2].ID).To(Equal("third#0"))
			Expect(results[3].ID).To(Equal("far#0"))
		})
	})

	Describe("persistence", func() {
		var tmpDir string

		BeforeEach(func() {
			var err error
			tmpDir, err = os.MkdirTemp("", "sqlitevec-persist-*")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			os.RemoveAll(tmpDir)
		})

		It("survives a close and reopen", func() {
			path := filepath.Join(tmpDir, "index.db")
			cfg := sqlitevec.Config{
				DBPath:     path,
				Model:      "all-minilm",
				Dimensions: 4,
			}

			driver, err := sqlitevec.NewDriver(cfg, log)
			Expect(err).NotTo(HaveOccurred())

			docs := []vector.Document{
				{ID: "d#0", Source: "d", Ordinal: 0, Text: "persisted", Embedding: []float32{1, 0, 0, 0}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())
			Expect(driver.Close()).To(Succeed())

			reopened, err := sqlitevec.NewDriver(cfg, log)
			Expect(err).NotTo(HaveOccurred())
			defer reopened.Close()

			count, err := reopened.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(Equal(1))

			results, err := reopened.Query(context.Background(), []float32{1, 0, 0, 0}, 1)
			Expect(err).NotTo(HaveOccurred())
			Expect(results).To(HaveLen(1))
			Expect(results[0].Text).To(Equal("persisted"))
		})
	})

	Describe("Reset", func() {
		It("removes all documents and restamps", func() {
			driver := newMemDriver()
			defer driver.Close()

			docs := []vector.Document{
				{ID: "d#0", Text: "a", Embedding: []float32{1, 0, 0, 0}},
				{ID: "d#1", Text: "b", Embedding: []float32{0, 1, 0, 0}},
			}
			Expect(driver.Add(context.Background(), docs)).To(Succeed())

			err := driver.Reset(context.Background(), vector.Meta{Model: "all-minilm", Dimensions: 4})
			Expect(err).NotTo(HaveOccurred())

			count, err := driver.Count(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(count).To(BeZero())

			m, err := driver.Meta(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Model).To(Equal("all-minilm"))
		})
	})

	Describe("Interface compliance", func() {
		It("should implement vector.Driver interface", func() {
			var _ vector.Driver = (*sqlitevec.Driver)(nil)
		})
	})
})
