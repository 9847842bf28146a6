package predictions

import (
	"strings"
)

// ParsedSection is one labeled section extracted from the model output.
type ParsedSection struct {
	Type Type
	Text string
}

// ParseSections extracts the labeled prediction sections from free-form model
// output. For each known label present in the text, the section runs from
// right after the first occurrence of that label to the nearest following
// occurrence of any other label (or the end of the text). Sections that are
// empty after cleanup are dropped.
func ParseSections(text string) []ParsedSection {
	var sections []ParsedSection
	for _, predType := range AllTypes {
		label := string(predType)
		startPos := strings.Index(text, label)
		if startPos < 0 {
			continue
		}
		contentStart := startPos + len(label)

		endPos := len(text)
		for _, otherType := range AllTypes {
			if otherType == predType {
				continue
			}
			nextPos := strings.Index(text[contentStart:], string(otherType))
			if nextPos >= 0 && contentStart+nextPos < endPos {
				endPos = contentStart + nextPos
			}
		}

		section := strings.Trim(text[contentStart:endPos], ": \n\t")
		section = cleanSectionText(section)
		if section == "" {
			continue
		}

		sections = append(sections, ParsedSection{
			Type: predType,
			Text: section,
		})
	}
	return sections
}

// cleanSectionText strips markdown-ish noise the model tends to produce and
// collapses all whitespace runs into single spaces.
func cleanSectionText(text string) string {
	replacer := strings.NewReplacer("*", "", ":", "", "•", "", "-", "")
	text = replacer.Replace(text)
	return strings.Join(strings.Fields(text), " ")
}
