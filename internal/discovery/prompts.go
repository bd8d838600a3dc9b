package discovery

import (
	"strconv"
	"strings"
)

const (
	discoverSystemPrompt = `You identify direct competitors of a business.
		Work only from the business details you are given; do not invent companies.
		Output is a single valid JSON array, nothing else. No prose, no code fences.
		Schema: [{"name": string, "website": string, "reason": string}]
		- name: the competitor's common brand name.
		- website: the main marketing site, empty string when unsure.
		- reason: one sentence on why it competes with this business.`

	generateSystemPrompt = `You write prompts that real customers would type into an
		AI assistant when researching products in a category. The brand itself must
		never appear in a prompt; these are neutral buyer questions.
		Output is a single valid JSON array of strings, nothing else. No prose,
		no code fences.`

	// siteTextByteLimit bounds how much scraped page text rides along in
	// the user message.
	siteTextByteLimit = 4000
)

func buildDiscoverPrompt(brandName, description, siteText string) string {
	builder := strings.Builder{}
	builder.WriteString("Find up to 8 direct competitors of this business.\n")
	builder.WriteString("Business name: ")
	builder.WriteString(brandName)
	builder.WriteString("\n")
	if description != "" {
		builder.WriteString("Description: ")
		builder.WriteString(description)
		builder.WriteString("\n")
	}
	if siteText != "" {
		if len(siteText) > siteTextByteLimit {
			siteText = siteText[:siteTextByteLimit] + "\n\n[...truncated...]"
		}
		builder.WriteString("Website text:\n")
		builder.WriteString(siteText)
		builder.WriteString("\n")
	}

	return builder.String()
}

func buildGeneratePrompt(brandName, description, category string, count int) string {
	builder := strings.Builder{}
	builder.WriteString("Write ")
	builder.WriteString(strconv.Itoa(count))
	builder.WriteString(" buyer research questions for the product category this business sells into.\n")
	builder.WriteString("Business name (must NOT appear in any question): ")
	builder.WriteString(brandName)
	builder.WriteString("\n")
	if description != "" {
		builder.WriteString("Description: ")
		builder.WriteString(description)
		builder.WriteString("\n")
	}
	if category != "" {
		builder.WriteString("Category focus: ")
		builder.WriteString(category)
		builder.WriteString("\n")
	}

	return builder.String()
}
