package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/auth"
)

var _ = Describe("Passwords", func() {
	It("hashes and verifies a password", func() {
		hash, err := auth.HashPassword("correct horse battery staple")
		Expect(err).NotTo(HaveOccurred())
		Expect(hash).NotTo(ContainSubstring("correct horse"))

		Expect(auth.CheckPassword(hash, "correct horse battery staple")).To(BeTrue())
		Expect(auth.CheckPassword(hash, "wrong password")).To(BeFalse())
	})

	It("produces distinct hashes for the same password", func() {
		first, err := auth.HashPassword("secret")
		Expect(err).NotTo(HaveOccurred())
		second, err := auth.HashPassword("secret")
		Expect(err).NotTo(HaveOccurred())
		Expect(first).NotTo(Equal(second))
	})
})

var _ = Describe("TokenIssuer", func() {
	It("requires a secret", func() {
		_, err := auth.NewTokenIssuer("", 0)
		Expect(err).To(HaveOccurred())
	})

	It("issues a token that verifies back to its subject", func() {
		issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		token, err := issuer.Issue("ananya")
		Expect(err).NotTo(HaveOccurred())

		subject, err := issuer.Verify(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(subject).To(Equal("ananya"))
	})

	It("rejects a token signed with a different secret", func() {
		issuer, err := auth.NewTokenIssuer("secret-one", time.Hour)
		Expect(err).NotTo(HaveOccurred())
		other, err := auth.NewTokenIssuer("secret-two", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		token, err := issuer.Issue("ananya")
		Expect(err).NotTo(HaveOccurred())

		_, err = other.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects an expired token", func() {
		issuer, err := auth.NewTokenIssuer("test-secret", time.Millisecond)
		Expect(err).NotTo(HaveOccurred())

		token, err := issuer.Issue("ananya")
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() error {
			_, err := issuer.Verify(token)
			return err
		}).Should(MatchError(auth.ErrInvalidToken))
	})

	It("rejects garbage tokens", func() {
		issuer, err := auth.NewTokenIssuer("test-secret", time.Hour)
		Expect(err).NotTo(HaveOccurred())

		_, err = issuer.Verify("not-a-token")
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})
})
