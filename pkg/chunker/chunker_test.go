package chunker_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/chunker"
)

var _ = Describe("Chunker", func() {
	Describe("New", func() {
		It("accepts valid parameters", func() {
			c, err := chunker.New(500, 50)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Size()).To(Equal(500))
			Expect(c.Overlap()).To(Equal(50))
		})

		It("accepts zero overlap", func() {
			_, err := chunker.New(100, 0)
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects zero size", func() {
			_, err := chunker.New(0, 0)
			Expect(err).To(MatchError(chunker.ErrConfig))
		})

		It("rejects negative size", func() {
			_, err := chunker.New(-10, 0)
			Expect(err).To(MatchError(chunker.ErrConfig))
		})

		It("rejects negative overlap", func() {
			_, err := chunker.New(100, -1)
			Expect(err).To(MatchError(chunker.ErrConfig))
		})

		It("rejects overlap equal to size", func() {
			_, err := chunker.New(100, 100)
			Expect(err).To(MatchError(chunker.ErrConfig))
		})

		It("rejects overlap larger than size", func() {
			_, err := chunker.New(100, 150)
			Expect(err).To(MatchError(chunker.ErrConfig))
		})
	})

	Describe("Split", func() {
		It("returns no chunks for empty text", func() {
			c, err := chunker.New(100, 10)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Split("")).To(BeEmpty())
		})

		It("returns a single chunk for text shorter than size", func() {
			c, err := chunker.New(100, 10)
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Split("short text")
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0]).To(Equal("short text"))
		})

		It("returns a single chunk for text exactly at size", func() {
			c, err := chunker.New(10, 2)
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Split("0123456789")
			Expect(chunks).To(HaveLen(1))
			Expect(chunks[0]).To(Equal("0123456789"))
		})

		It("splits at the configured stride", func() {
			c, err := chunker.New(10, 3)
			Expect(err).NotTo(HaveOccurred())

			text := "abcdefghijklmnopqrstuvwxyz"
			chunks := c.Split(text)

			// stride = 7: chunks start at 0, 7, 14, 21
			Expect(chunks).To(Equal([]string{
				"abcdefghij",
				"hijklmnopq",
				"opqrstuvwx",
				"vwxyz",
			}))
		})

		It("overlaps consecutive chunks by the configured amount", func() {
			c, err := chunker.New(10, 3)
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Split("abcdefghijklmnopqrstuvwxyz")
			for i := 1; i < len(chunks); i++ {
				prev := []rune(chunks[i-1])
				cur := []rune(chunks[i])
				tail := string(prev[len(prev)-3:])
				head := string(cur[:3])
				Expect(head).To(Equal(tail))
			}
		})

		It("reconstructs the original text from chunks", func() {
			c, err := chunker.New(30, 5)
			Expect(err).NotTo(HaveOccurred())

			text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 20)
			chunks := c.Split(text)
			Expect(len(chunks)).To(BeNumerically(">", 1))

			var b strings.Builder
			b.WriteString(chunks[0])
			for _, chunk := range chunks[1:] {
				runes := []rune(chunk)
				if len(runes) > 5 {
					b.WriteString(string(runes[5:]))
				}
			}
			Expect(b.String()).To(Equal(text))
		})

		It("counts runes, not bytes", func() {
			c, err := chunker.New(4, 1)
			Expect(err).NotTo(HaveOccurred())

			// Multi-byte Devanagari text: each chunk boundary must fall on
			// a rune boundary, never mid-character.
			text := "दवाईसुबहशामलेना"
			chunks := c.Split(text)
			for _, chunk := range chunks {
				Expect(len([]rune(chunk))).To(BeNumerically("<=", 4))
				Expect(strings.ToValidUTF8(chunk, "?")).To(Equal(chunk))
			}
		})

		It("never emits an empty chunk", func() {
			c, err := chunker.New(10, 9)
			Expect(err).NotTo(HaveOccurred())

			chunks := c.Split("abcdefghijk")
			for _, chunk := range chunks {
				Expect(chunk).NotTo(BeEmpty())
			}
		})

		It("is deterministic", func() {
			c, err := chunker.New(50, 10)
			Expect(err).NotTo(HaveOccurred())

			text := strings.Repeat("paracetamol 500mg twice daily after food. ", 10)
			Expect(c.Split(text)).To(Equal(c.Split(text)))
		})
	})
})
