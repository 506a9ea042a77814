package index

import "strings"

// section is a heading-delimited region of a markdown document.
type section struct {
	Title string
	Body  string
}

// splitSections breaks markdown text into heading-delimited sections.
// Text before the first heading becomes a section with an empty title.
// Heading markers are stripped from the title.
func splitSections(text string) []section {
	var sections []section
	var title string
	var body strings.Builder

	flush := func() {
		content := strings.TrimSpace(body.String())
		if content != "" || title != "" {
			sections = append(sections, section{Title: title, Body: content})
		}
		body.Reset()
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()

	return sections
}
