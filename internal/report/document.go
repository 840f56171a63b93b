// Package report turns a submission into a PDF report.
//
// Building and rendering are separate steps: Build is a pure function from a
// hydrated submission to a Document, and a Renderer turns a Document into
// bytes. Only the renderer knows about fonts, pages and images.
package report

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/sakif/brief-builder/internal/model"
)

// UnknownQuestion replaces the text of answers whose question id no longer
// exists in the brief (the brief was edited after the submission).
const UnknownQuestion = "Unknown question"

// Document is the renderer-independent report.
type Document struct {
	Title    string
	Subtitle string
	Entries  []Entry
}

// Entry is one question/answer block. When List is true the answer is
// rendered as Bullets, otherwise as Answer.
type Entry struct {
	Question string
	Answer   string
	List     bool
	Bullets  []string
}

// Build assembles the report for a submission. Entries follow the stored
// answer order. sub.Brief should be hydrated; without it every question is
// unknown.
func Build(sub *model.Submission) *Document {
	var (
		title string
		texts map[string]string
	)
	if sub.Brief != nil {
		title = sub.Brief.Title
		texts = sub.Brief.QuestionTexts()
	}

	doc := &Document{
		Title:    "Brief report: " + title,
		Subtitle: "Session ID: " + sub.SessionID,
		Entries:  make([]Entry, 0, len(sub.Answers)),
	}

	for _, ans := range sub.Answers {
		question, ok := texts[ans.QuestionID]
		if !ok {
			question = UnknownQuestion
		}

		entry := Entry{Question: question}
		if items, ok := listItems(ans.Value); ok {
			entry.List = true
			entry.Bullets = make([]string, 0, len(items))
			for _, item := range items {
				entry.Bullets = append(entry.Bullets, bulletText(item))
			}
		} else {
			entry.Answer = valueText(ans.Value)
		}
		doc.Entries = append(doc.Entries, entry)
	}

	return doc
}

func listItems(raw json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	return items, true
}

// bulletText uses the "name" field of object items (uploaded files are
// stored as {"name": ..., "url": ...}) and the plain string form otherwise.
func bulletText(item json.RawMessage) string {
	trimmed := bytes.TrimSpace(item)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &fields); err == nil {
			if name, ok := fields["name"]; ok {
				return valueText(name)
			}
		}
	}
	return valueText(trimmed)
}

// valueText is the string form of a JSON value: strings unquoted, null empty,
// numbers and booleans as written, arrays and objects as compact JSON.
func valueText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err == nil {
			return s
		}
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err == nil {
			return buf.String()
		}
	}
	return strings.TrimSpace(string(trimmed))
}
