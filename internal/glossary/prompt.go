package glossary

import (
	"fmt"
	"strings"
)

// buildPrompt asks the model for an expanded, HTML-formatted definition
// returned as a JSON object with full_content_html and excerpt_html keys.
func buildPrompt(term *Term, targetWordCount int) string {
	var b strings.Builder

	b.WriteString("You are an expert SEO content writer for a business glossary.\n")
	b.WriteString("Your task is to expand and re-write the following glossary term definition.\n")
	b.WriteString("Provide a detailed, professional, and comprehensive explanation suitable for a business/telecommunications/tech audience.\n")
	b.WriteString("Where relevant add internal and external links, but never link to competitors.\n\n")

	fmt.Fprintf(&b, "**Glossary Term:** %s\n", term.Title)
	b.WriteString("**Current Definition and Context:**\n")
	fmt.Fprintf(&b, "Title: %s\n\nExcerpt: %s\n\nFull Definition:\n%s\n\n", term.Title, term.Excerpt, term.Content)

	b.WriteString("**Instructions:**\n")
	fmt.Fprintf(&b, "1. Expand and enrich the definition significantly, aiming for approximately %d words of main content.\n", targetWordCount)
	b.WriteString("2. Contextualize the term within a business/telecommunications/tech environment.\n")
	b.WriteString("3. Include relevant sub-sections such as \"How it Works,\" \"Benefits,\" \"Use Cases,\" \"Key Features,\" or \"Challenges\" where applicable, using <h4> headings.\n")
	b.WriteString("4. Maintain a professional, informative, and clear tone.\n")
	b.WriteString("5. Use proper HTML formatting for paragraphs (<p>...</p>), headings (<h4>...</h4>), ordered lists (<ol><li>...</li></ol>), and unordered lists (<ul><li>...</li></ul>).\n")
	b.WriteString("6. Ensure the new content is more detailed and comprehensive than the original.\n")
	b.WriteString("7. Do not introduce irrelevant information or repeat the term excessively.\n")
	b.WriteString("8. Generate a new, concise excerpt (around 20-30 words) from the expanded content, in HTML <p>...</p> tags.\n")
	b.WriteString("9. Provide the output as a JSON object with two keys: full_content_html and excerpt_html.\n")
	b.WriteString("10. IMPORTANT: output PURE JSON with no markdown code fences.\n")

	return b.String()
}
