package notion

import (
	"strings"

	"github.com/jomei/notionapi"
)

// Title builds a title property holding one plain-text run.
func Title(content string) notionapi.TitleProperty {
	return notionapi.TitleProperty{
		Type: notionapi.PropertyTypeTitle,
		Title: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}},
		},
	}
}

// RichText builds a rich_text property holding one plain-text run.
func RichText(content string) notionapi.RichTextProperty {
	return notionapi.RichTextProperty{
		Type: notionapi.PropertyTypeRichText,
		RichText: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: content}},
		},
	}
}

func joinRuns(runs []notionapi.RichText) string {
	var sb strings.Builder
	for _, rt := range runs {
		if rt.PlainText != "" {
			sb.WriteString(rt.PlainText)
		} else if rt.Text != nil {
			sb.WriteString(rt.Text.Content)
		}
	}
	return sb.String()
}

// PlainText extracts the concatenated text of a title or rich_text property.
// Query responses return pointer property types; locally-built values are
// plain structs, so both forms are handled. Other property types yield "".
func PlainText(prop notionapi.Property) string {
	switch p := prop.(type) {
	case *notionapi.TitleProperty:
		return joinRuns(p.Title)
	case notionapi.TitleProperty:
		return joinRuns(p.Title)
	case *notionapi.RichTextProperty:
		return joinRuns(p.RichText)
	case notionapi.RichTextProperty:
		return joinRuns(p.RichText)
	default:
		return ""
	}
}
