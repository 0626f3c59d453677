package sqlite_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/storage"
	"github.com/mediguideco/mediguide/pkg/storage/sqlite"
)

var _ = Describe("Driver", func() {
	var (
		driver *sqlite.Driver
		ctx    context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		driver, err = sqlite.NewDriver(":memory:")
		Expect(err).NotTo(HaveOccurred())

		Expect(driver.CreateUser(ctx, storage.User{
			Username:     "ananya",
			PasswordHash: "hash",
		})).To(Succeed())
	})

	AfterEach(func() {
		driver.Close()
	})

	Describe("users", func() {
		It("retrieves a created user", func() {
			user, err := driver.GetUser(ctx, "ananya")
			Expect(err).NotTo(HaveOccurred())
			Expect(user.Username).To(Equal("ananya"))
			Expect(user.PasswordHash).To(Equal("hash"))
			Expect(user.CreatedAt).NotTo(BeZero())
		})

		It("rejects a duplicate username", func() {
			err := driver.CreateUser(ctx, storage.User{Username: "ananya", PasswordHash: "other"})
			Expect(err).To(MatchError(storage.ErrExists))
		})

		It("returns ErrNotFound for an unknown user", func() {
			_, err := driver.GetUser(ctx, "nobody")
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})

	Describe("conversations", func() {
		It("creates a conversation and appends messages in order", func() {
			conv, err := driver.CreateConversation(ctx, "ananya", "aspirin questions")
			Expect(err).NotTo(HaveOccurred())
			Expect(conv.ID).NotTo(BeEmpty())

			Expect(driver.AppendMessage(ctx, conv.ID, storage.Message{
				Role: "user", Content: "does aspirin thin blood",
			})).To(Succeed())
			Expect(driver.AppendMessage(ctx, conv.ID, storage.Message{
				Role: "assistant", Content: "Yes, aspirin thins the blood.",
			})).To(Succeed())

			got, msgs, err := driver.GetConversation(ctx, "ananya", conv.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Title).To(Equal("aspirin questions"))
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Role).To(Equal("user"))
			Expect(msgs[1].Role).To(Equal("assistant"))
			Expect(msgs[1].Content).To(Equal("Yes, aspirin thins the blood."))
		})

		It("rejects appending to a missing conversation", func() {
			err := driver.AppendMessage(ctx, "no-such-id", storage.Message{Role: "user", Content: "hi"})
			Expect(err).To(MatchError(storage.ErrNotFound))
		})

		It("lists a user's conversations newest first", func() {
			first, err := driver.CreateConversation(ctx, "ananya", "first")
			Expect(err).NotTo(HaveOccurred())

			time.Sleep(10 * time.Millisecond)

			second, err := driver.CreateConversation(ctx, "ananya", "second")
			Expect(err).NotTo(HaveOccurred())

			convs, err := driver.ListConversations(ctx, "ananya")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs).To(HaveLen(2))
			Expect(convs[0].ID).To(Equal(second.ID))
			Expect(convs[1].ID).To(Equal(first.ID))
		})

		It("does not list another user's conversations", func() {
			Expect(driver.CreateUser(ctx, storage.User{Username: "rohan", PasswordHash: "hash"})).To(Succeed())

			_, err := driver.CreateConversation(ctx, "rohan", "private")
			Expect(err).NotTo(HaveOccurred())

			convs, err := driver.ListConversations(ctx, "ananya")
			Expect(err).NotTo(HaveOccurred())
			Expect(convs).To(BeEmpty())
		})

		It("hides another user's conversation behind ErrNotFound", func() {
			Expect(driver.CreateUser(ctx, storage.User{Username: "rohan", PasswordHash: "hash"})).To(Succeed())

			conv, err := driver.CreateConversation(ctx, "rohan", "private")
			Expect(err).NotTo(HaveOccurred())

			_, _, err = driver.GetConversation(ctx, "ananya", conv.ID)
			Expect(err).To(MatchError(storage.ErrNotFound))
		})
	})
})
