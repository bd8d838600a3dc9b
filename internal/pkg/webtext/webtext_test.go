package webtext_test

import (
	"context"
	"strings"

	"brandwatch/internal/pkg/webtext"
	"brandwatch/internal/testhelpers"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extract", func() {
	It("keeps visible text and drops markup", func() {
		page := `<html><head><title>Acme</title></head><body>
			<h1>Acme Project Tools</h1>
			<p>Plan, track, and ship with <b>Acme</b>.</p>
		</body></html>`

		text, err := webtext.Extract(page)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Acme Project Tools Plan, track, and ship with Acme ."))
	})

	It("skips scripts, styles and embedded widgets", func() {
		page := `<body>
			<script>var tracking = "seen by nobody";</script>
			<style>.hero { color: red }</style>
			<noscript>enable javascript</noscript>
			<p>Visible copy only.</p>
		</body>`

		text, err := webtext.Extract(page)
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("Visible copy only."))
	})

	It("collapses runs of whitespace", func() {
		text, err := webtext.Extract("<body><p>spread \n\t  out\n words</p></body>")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("spread out words"))
	})

	It("bounds the output length", func() {
		page := "<body><p>" + strings.Repeat("word ", 3000) + "</p></body>"

		text, err := webtext.Extract(page)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(text)).To(BeNumerically("<=", webtext.MaxTextBytes))
		Expect(strings.HasSuffix(text, " ")).To(BeFalse())
	})

	It("never cuts a multi-byte rune in half", func() {
		page := "<body><p>" + strings.Repeat("테스트 ", 2000) + "</p></body>"

		text, err := webtext.Extract(page)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(text)).To(BeNumerically("<=", webtext.MaxTextBytes))
		for _, r := range text {
			Expect(r).NotTo(Equal('�'))
		}
	})

	It("handles documents without explicit markup", func() {
		text, err := webtext.Extract("plain text, not really html")
		Expect(err).NotTo(HaveOccurred())
		Expect(text).To(Equal("plain text, not really html"))
	})
})

var _ = Describe("Fetcher", func() {
	var fetcher *webtext.Fetcher
	ctx := context.Background()

	BeforeEach(func() {
		testhelpers.Activate()
		fetcher = webtext.NewFetcher()
		fetcher.UseDefaultClient()
	})

	AfterEach(func() {
		testhelpers.Deactivate()
	})

	It("downloads a page and extracts its text", func() {
		testhelpers.New("https://acme.example.com").
			Get("/").Reply(200).
			BodyString("<html><body><h1>Acme</h1><p>Project tools for teams.</p></body></html>").
			Header("Content-Type", "text/html")

		text, err := fetcher.Fetch(ctx, "https://acme.example.com/")
		Expect(err).NotTo(HaveOccurred())
		Expect(testhelpers.IsDone()).To(BeTrue())
		Expect(text).To(Equal("Acme Project tools for teams."))
	})

	It("reports non-2xx statuses as errors", func() {
		testhelpers.New("https://acme.example.com").
			Get("/").Reply(503).
			BodyString("nope")

		_, err := fetcher.Fetch(ctx, "https://acme.example.com/")
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("status 503"))
	})
})
