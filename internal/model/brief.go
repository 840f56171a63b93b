package model

import (
	"encoding/json"
	"time"
)

// Brief is a questionnaire owned by a user. A hydrated Brief carries its
// Steps in display order, each with its Questions in display order.
type Brief struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	IsMain      bool      `json:"is_main"`
	Steps       []Step    `json:"steps"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Step is one page of a Brief.
//
// Order is the zero-based position within the brief. It is assigned by the
// store from slice position on every create or replace.
//
// ConditionalLogic is client-owned JSON. It is stored and returned verbatim
// and never interpreted server-side.
type Step struct {
	ID               string          `json:"id"`
	BriefID          string          `json:"brief_id"`
	Title            string          `json:"title"`
	Description      *string         `json:"description"`
	Order            int             `json:"order"`
	ConditionalLogic json.RawMessage `json:"conditional_logic"`
	Questions        []Question      `json:"questions"`
}

// Question is a single prompt within a Step. QuestionType is a free-form tag
// ("text", "choice", "file", "date", "scale", ...); Options is used by choice
// types.
type Question struct {
	ID               string          `json:"id"`
	StepID           string          `json:"step_id"`
	Text             string          `json:"text"`
	QuestionType     string          `json:"question_type"`
	Options          []string        `json:"options"`
	IsRequired       bool            `json:"is_required"`
	Order            int             `json:"order"`
	ConditionalLogic json.RawMessage `json:"conditional_logic"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// BriefInput is the payload for creating or fully replacing a brief.
// Any "order" fields sent by clients are ignored.
type BriefInput struct {
	Title       string      `json:"title"`
	Description *string     `json:"description"`
	Steps       []StepInput `json:"steps"`
}

type StepInput struct {
	Title            string          `json:"title"`
	Description      *string         `json:"description"`
	ConditionalLogic json.RawMessage `json:"conditional_logic"`
	Questions        []QuestionInput `json:"questions"`
}

type QuestionInput struct {
	Text             string          `json:"text"`
	QuestionType     string          `json:"question_type"`
	Options          []string        `json:"options"`
	IsRequired       bool            `json:"is_required"`
	ConditionalLogic json.RawMessage `json:"conditional_logic"`
}

// ToSteps converts the input tree into unsaved Steps. IDs and orders are
// left zero for the store to fill in.
func (in BriefInput) ToSteps() []Step {
	steps := make([]Step, 0, len(in.Steps))
	for _, si := range in.Steps {
		step := Step{
			Title:            si.Title,
			Description:      si.Description,
			ConditionalLogic: si.ConditionalLogic,
			Questions:        make([]Question, 0, len(si.Questions)),
		}
		for _, qi := range si.Questions {
			step.Questions = append(step.Questions, Question{
				Text:             qi.Text,
				QuestionType:     qi.QuestionType,
				Options:          qi.Options,
				IsRequired:       qi.IsRequired,
				ConditionalLogic: qi.ConditionalLogic,
			})
		}
		steps = append(steps, step)
	}
	return steps
}

// QuestionTexts flattens the tree into question id -> text.
func (b *Brief) QuestionTexts() map[string]string {
	texts := make(map[string]string)
	for _, s := range b.Steps {
		for _, q := range s.Questions {
			texts[q.ID] = q.Text
		}
	}
	return texts
}
