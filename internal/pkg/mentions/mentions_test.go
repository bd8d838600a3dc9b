package mentions_test

import (
	"strings"

	"brandwatch/internal/pkg/mentions"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Analyze", func() {
	It("counts repeated brand occurrences", func() {
		text := "Acme makes widgets. Many teams trust Acme for widgets."

		analysis := mentions.Analyze(text, "Acme", nil)

		Expect(analysis.UserBrandMentions).To(Equal(2))
		Expect(analysis.CompetitorMentions).To(BeEmpty())
		Expect(analysis.TotalMentions).To(Equal(2))

		Expect(analysis.MentionDetails).To(HaveLen(1))
		Expect(analysis.MentionDetails[0].BrandName).To(Equal("Acme"))
		Expect(analysis.MentionDetails[0].MentionPositions).To(Equal([]int{0, 37}))
	})

	It("matches case-insensitively", func() {
		analysis := mentions.Analyze("ACME, acme and Acme.", "Acme", nil)

		Expect(analysis.UserBrandMentions).To(Equal(3))
	})

	It("respects word boundaries", func() {
		analysis := mentions.Analyze("Acmex is not Acme, and neither is Acmeology.", "Acme", nil)

		Expect(analysis.UserBrandMentions).To(Equal(1))
		Expect(analysis.MentionDetails[0].MentionPositions).To(Equal([]int{13}))
	})

	It("includes every tracked competitor with zero counts", func() {
		analysis := mentions.Analyze("Nobody is mentioned here.", "Acme", []string{"Globex", "Initech"})

		Expect(analysis.UserBrandMentions).To(Equal(0))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Globex": 0, "Initech": 0}))
		Expect(analysis.TotalMentions).To(Equal(0))
		Expect(analysis.MentionDetails).To(BeEmpty())
	})

	It("credits nested names to the longest match only", func() {
		analysis := mentions.Analyze("Acme Corp is great", "Acme", []string{"Acme Corp"})

		Expect(analysis.UserBrandMentions).To(Equal(0))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Acme Corp": 1}))
		Expect(analysis.TotalMentions).To(Equal(1))

		Expect(analysis.MentionDetails).To(HaveLen(1))
		Expect(analysis.MentionDetails[0].BrandName).To(Equal("Acme Corp"))
	})

	It("still counts the shorter name at other offsets", func() {
		analysis := mentions.Analyze("Acme Corp ships faster than Acme.", "Acme", []string{"Acme Corp"})

		Expect(analysis.UserBrandMentions).To(Equal(1))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Acme Corp": 1}))
		Expect(analysis.TotalMentions).To(Equal(2))
	})

	It("orders details user brand first, then competitors as given", func() {
		text := "Initech beats Globex, but Acme beats Initech."

		analysis := mentions.Analyze(text, "Acme", []string{"Globex", "Initech"})

		names := []string{}
		for _, detail := range analysis.MentionDetails {
			names = append(names, detail.BrandName)
		}
		Expect(names).To(Equal([]string{"Acme", "Globex", "Initech"}))
	})

	It("sums totals across user brand and competitors", func() {
		text := "Acme, Globex and Acme again. Globex too, plus Initech."

		analysis := mentions.Analyze(text, "Acme", []string{"Globex", "Initech"})

		Expect(analysis.UserBrandMentions).To(Equal(2))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Globex": 2, "Initech": 1}))
		Expect(analysis.TotalMentions).To(Equal(5))
	})

	It("clips snippets at text boundaries", func() {
		analysis := mentions.Analyze("Acme", "Acme", nil)

		Expect(analysis.MentionDetails[0].ContextSnippets).To(Equal([]string{"Acme"}))
	})

	It("bounds snippets by the context radius", func() {
		text := strings.Repeat("x", 200) + " Acme " + strings.Repeat("y", 200)

		analysis := mentions.Analyze(text, "Acme", nil)

		snippets := analysis.MentionDetails[0].ContextSnippets
		Expect(snippets).To(HaveLen(1))
		Expect(len(snippets[0])).To(BeNumerically("<=", 2*mentions.SnippetRadius+len("Acme")))
		Expect(snippets[0]).To(ContainSubstring("Acme"))
	})

	It("collapses whitespace inside snippets", func() {
		analysis := mentions.Analyze("widgets   by\n\tAcme   today", "Acme", nil)

		Expect(analysis.MentionDetails[0].ContextSnippets[0]).To(Equal("widgets by Acme today"))
	})

	It("ignores blank tracked names", func() {
		analysis := mentions.Analyze("Acme and friends", "Acme", []string{"", "   "})

		Expect(analysis.UserBrandMentions).To(Equal(1))
		Expect(analysis.CompetitorMentions).To(BeEmpty())
	})

	It("handles an empty response", func() {
		analysis := mentions.Analyze("", "Acme", []string{"Globex"})

		Expect(analysis.UserBrandMentions).To(Equal(0))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Globex": 0}))
		Expect(analysis.TotalMentions).To(Equal(0))
	})

	It("credits a competitor equal to the user brand only once", func() {
		analysis := mentions.Analyze("Acme twice: Acme.", "Acme", []string{"Acme"})

		Expect(analysis.UserBrandMentions).To(Equal(2))
		Expect(analysis.CompetitorMentions).To(Equal(map[string]int{"Acme": 0}))
		Expect(analysis.TotalMentions).To(Equal(2))
	})
})
