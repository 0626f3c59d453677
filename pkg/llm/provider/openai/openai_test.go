package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mediguideco/mediguide/pkg/llm"
	"github.com/mediguideco/mediguide/pkg/llm/provider/openai"
)

var _ = Describe("Client", func() {
	Describe("NewClient", func() {
		It("requires an API key", func() {
			_, err := openai.NewClient(openai.Config{})
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("api key"))
		})

		It("applies the Groq defaults", func() {
			client, err := openai.NewClient(openai.Config{APIKey: "key"})
			Expect(err).NotTo(HaveOccurred())
			Expect(client.Model()).To(Equal(openai.DefaultModel))
		})
	})

	Describe("Complete", func() {
		It("sends the messages and returns the assistant reply", func() {
			var gotPath, gotAuth string
			var gotReq map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				Expect(json.NewDecoder(r.Body).Decode(&gotReq)).To(Succeed())

				json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"role": "assistant", "content": "Take it with food."}},
					},
				})
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{
				BaseURL: server.URL,
				APIKey:  "test-key",
				Generation: llm.GenerationConfig{
					Model:       "llama-3.1-8b-instant",
					Temperature: 0.2,
					MaxTokens:   512,
				},
			})
			Expect(err).NotTo(HaveOccurred())

			reply, err := client.Complete(context.Background(), []llm.Message{
				llm.NewSystemMessage("You are a doctor."),
				llm.NewUserMessage("How should I take aspirin?"),
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(reply).To(Equal("Take it with food."))

			Expect(gotPath).To(Equal("/chat/completions"))
			Expect(gotAuth).To(Equal("Bearer test-key"))
			Expect(gotReq["model"]).To(Equal("llama-3.1-8b-instant"))
			Expect(gotReq["temperature"]).To(BeNumerically("~", 0.2, 1e-9))
			Expect(gotReq["messages"]).To(HaveLen(2))
		})

		It("surfaces the provider's structured error without the credential", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{"message": "invalid api key", "type": "invalid_request_error"},
				})
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{BaseURL: server.URL, APIKey: "sk-secret-value"})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Complete(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
			Expect(err).To(MatchError(llm.ErrCompletion))
			Expect(err.Error()).To(ContainSubstring("invalid api key"))
			Expect(err.Error()).NotTo(ContainSubstring("sk-secret-value"))
		})

		It("fails on a non-200 status without a structured error", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
				w.Write([]byte(`{}`))
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{BaseURL: server.URL, APIKey: "key"})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Complete(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
			Expect(err).To(MatchError(llm.ErrCompletion))
			Expect(err.Error()).To(ContainSubstring("503"))
		})

		It("fails when the response has no choices", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{BaseURL: server.URL, APIKey: "key"})
			Expect(err).NotTo(HaveOccurred())

			_, err = client.Complete(context.Background(), []llm.Message{llm.NewUserMessage("hi")})
			Expect(err).To(MatchError(llm.ErrCompletion))
		})
	})

	Describe("Ping", func() {
		It("succeeds when the models endpoint accepts the credential", func() {
			var gotPath, gotAuth string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				gotAuth = r.Header.Get("Authorization")
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{BaseURL: server.URL, APIKey: "good-key"})
			Expect(err).NotTo(HaveOccurred())

			Expect(client.Ping(context.Background())).To(Succeed())
			Expect(gotPath).To(Equal("/models"))
			Expect(gotAuth).To(Equal("Bearer good-key"))
		})

		It("fails when the credential is rejected", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			client, err := openai.NewClient(openai.Config{BaseURL: server.URL, APIKey: "bad-key"})
			Expect(err).NotTo(HaveOccurred())

			err = client.Ping(context.Background())
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("401"))
			Expect(err.Error()).NotTo(ContainSubstring("bad-key"))
		})
	})
})
