package oasql

import "strings"

// defaultDocstring is the docstring of a model with no description and no
// columns.
const defaultDocstring = "SQLAlchemy model protocol."

const (
	descriptionWidth  = 75
	attrFirstWidth    = 71
	attrContinueWidth = 67
)

// ModelDocstring renders the docstring of a model: the default line, the
// wrapped description when one exists, and one documentation line per
// column.
func ModelDocstring(model *ModelArtifact) string {
	if model.Description == nil && model.Empty {
		return defaultDocstring
	}

	var description string
	if model.Description == nil {
		description = "\n    " + defaultDocstring
	} else {
		wrapped := wrapText(*model.Description, descriptionWidth)
		description = "\n    " + defaultDocstring + "\n\n    " + strings.Join(wrapped, "\n    ")
	}

	attrDocs := ""
	if !model.Empty {
		docs := make([]string, 0, len(model.Columns))
		for _, column := range model.Columns {
			docs = append(docs, columnDoc(column, model.Name))
		}
		attrDocs = "\n\n    Attrs:\n        " + strings.Join(docs, "\n        ")
	}

	return description + attrDocs + "\n\n    "
}

// columnDoc renders the documentation line of one column: the first line
// wraps at 71 characters, continuations at 67, matching the indentation the
// emitter places them under.
func columnDoc(column ColumnArtifact, modelName string) string {
	description := "The " + column.Name + " of the " + modelName + "."
	if column.Description != nil {
		description = *column.Description
	}
	doc := column.Name + ": " + description

	wrapped := wrapText(doc, attrFirstWidth)
	if len(wrapped) > 1 {
		remaining := strings.Join(wrapped[1:], " ")
		wrapped = append(wrapped[:1], wrapText(remaining, attrContinueWidth)...)
	}
	return strings.Join(wrapped, "\n            ")
}

// wrapText greedily fills lines of at most width characters. Words longer
// than the width are split.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	var lines []string
	current := ""

	for _, word := range words {
		for len(word) > width {
			if current != "" {
				lines = append(lines, current)
				current = ""
			}
			lines = append(lines, word[:width])
			word = word[width:]
		}
		switch {
		case current == "":
			current = word
		case len(current)+1+len(word) <= width:
			current += " " + word
		default:
			lines = append(lines, current)
			current = word
		}
	}
	if current != "" {
		lines = append(lines, current)
	}
	return lines
}
