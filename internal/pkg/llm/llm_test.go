package llm_test

import (
	"context"
	"time"

	"brandwatch/internal/pkg/llm"
	"brandwatch/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Registry", func() {
	var registry *llm.Registry

	BeforeEach(func() {
		registry = llm.NewRegistry(llm.Options{Timeout: time.Minute})
	})

	It("resolves every supported provider", func() {
		for _, name := range llm.Providers() {
			caller, err := registry.ForProvider(name)
			Expect(err).NotTo(HaveOccurred())
			Expect(caller).NotTo(BeNil())
		}
	})

	It("rejects an unknown provider", func() {
		_, err := registry.ForProvider("cohere")
		Expect(err).To(MatchError(llm.ErrUnknownProvider))
	})

	It("knows its closed provider set", func() {
		Expect(llm.Providers()).To(Equal([]string{"openai", "anthropic", "gemini"}))
		Expect(llm.Supported("openai")).To(BeTrue())
		Expect(llm.Supported("cohere")).To(BeFalse())
	})
})

var _ = Describe("OpenAICaller", func() {
	var caller *llm.OpenAICaller
	ctx := context.Background()

	BeforeEach(func() {
		testhelpers.Activate()
		caller = llm.NewOpenAICaller(time.Minute, 0)
		caller.UseDefaultClient()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("returns the assistant text and usage metadata", func() {
		testhelpers.New("https://api.openai.com").
			Post("/v1/responses").Reply(200).
			BodyString(testhelpers.OpenAIResponsePayload("Acme is a solid choice.")).
			Header("Content-Type", "application/json")

		result, err := caller.Invoke(ctx, llm.Request{
			Model:      "gpt-4o",
			APIKey:     "sk-test",
			PromptText: "What project tool should I buy?",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(testhelpers.IsDone()).To(BeTrue())

		Expect(result.ResponseText).To(Equal("Acme is a solid choice."))
		Expect(result.Metadata["total_tokens"]).To(Equal(int64(123)))
		Expect(result.Metadata).To(HaveKey("latency_ms"))
	})

	It("rejects an empty API key before any call", func() {
		_, err := caller.Invoke(ctx, llm.Request{Model: "gpt-4o", PromptText: "hi"})
		Expect(err).To(MatchError(llm.ErrMissingAPIKey))
	})

	It("surfaces provider-side errors", func() {
		testhelpers.New("https://api.openai.com").
			Post("/v1/responses").Reply(401).
			BodyString(testhelpers.OpenAIErrorPayload("Incorrect API key provided")).
			Header("Content-Type", "application/json")

		_, err := caller.Invoke(ctx, llm.Request{
			Model:      "gpt-4o",
			APIKey:     "sk-bad",
			PromptText: "hi",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("call OpenAI"))
	})
})

var _ = Describe("AnthropicCaller", func() {
	var caller *llm.AnthropicCaller
	ctx := context.Background()

	BeforeEach(func() {
		testhelpers.Activate()
		caller = llm.NewAnthropicCaller(time.Minute, 0)
		caller.UseDefaultClient()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("returns the message text and usage metadata", func() {
		testhelpers.New("https://api.anthropic.com").
			Post("/v1/messages").Reply(200).
			BodyString(testhelpers.AnthropicResponsePayload("Globex leads this market.")).
			Header("Content-Type", "application/json")

		result, err := caller.Invoke(ctx, llm.Request{
			Model:      "claude-sonnet-4-20250514",
			APIKey:     "sk-ant-test",
			PromptText: "Who leads this market?",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(testhelpers.IsDone()).To(BeTrue())

		Expect(result.ResponseText).To(Equal("Globex leads this market."))
		Expect(result.Metadata["total_tokens"]).To(Equal(int64(112)))
		Expect(result.Metadata["stop_reason"]).To(Equal("end_turn"))
	})

	It("surfaces API error messages", func() {
		testhelpers.New("https://api.anthropic.com").
			Post("/v1/messages").Reply(401).
			BodyString(testhelpers.AnthropicErrorPayload("invalid x-api-key")).
			Header("Content-Type", "application/json")

		_, err := caller.Invoke(ctx, llm.Request{
			Model:      "claude-sonnet-4-20250514",
			APIKey:     "sk-ant-bad",
			PromptText: "hi",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("invalid x-api-key"))
	})

	It("treats a bodyless message as empty", func() {
		testhelpers.New("https://api.anthropic.com").
			Post("/v1/messages").Reply(200).
			BodyString(`{"id":"msg_x","type":"message","role":"assistant","content":[],"usage":{"input_tokens":1,"output_tokens":0}}`).
			Header("Content-Type", "application/json")

		_, err := caller.Invoke(ctx, llm.Request{
			Model:      "claude-sonnet-4-20250514",
			APIKey:     "sk-ant-test",
			PromptText: "hi",
		})
		Expect(err).To(MatchError(llm.ErrEmptyResponse))
	})
})

var _ = Describe("GeminiCaller", func() {
	var caller *llm.GeminiCaller
	ctx := context.Background()

	BeforeEach(func() {
		testhelpers.Activate()
		caller = llm.NewGeminiCaller(time.Minute, 0)
		caller.UseDefaultClient()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("returns the candidate text and usage metadata", func() {
		testhelpers.New("https://generativelanguage.googleapis.com").
			Post("/v1beta/models/gemini-2.0-flash:generateContent").Reply(200).
			BodyString(testhelpers.GeminiResponsePayload("Initech and Acme both fit.")).
			Header("Content-Type", "application/json")

		result, err := caller.Invoke(ctx, llm.Request{
			Model:      "gemini-2.0-flash",
			APIKey:     "AIza-test",
			PromptText: "Which tools fit?",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(testhelpers.IsDone()).To(BeTrue())

		Expect(result.ResponseText).To(Equal("Initech and Acme both fit."))
		Expect(result.Metadata["total_tokens"]).To(Equal(int64(95)))
		Expect(result.Metadata["finish_reason"]).To(Equal("STOP"))
	})

	It("surfaces API error messages", func() {
		testhelpers.New("https://generativelanguage.googleapis.com").
			Post("/v1beta/models/gemini-2.0-flash:generateContent").Reply(400).
			BodyString(testhelpers.GeminiErrorPayload("API key not valid")).
			Header("Content-Type", "application/json")

		_, err := caller.Invoke(ctx, llm.Request{
			Model:      "gemini-2.0-flash",
			APIKey:     "AIza-bad",
			PromptText: "hi",
		})
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("API key not valid"))
	})
})
