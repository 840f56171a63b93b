package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Submission is one anonymous respondent's answers to a Brief.
// SessionID is an unguessable capability token: whoever holds it may read the
// submission and its report.
type Submission struct {
	ID          string    `json:"id"`
	BriefID     string    `json:"brief_id"`
	SessionID   string    `json:"session_id"`
	Answers     Answers   `json:"answers"`
	SubmittedAt time.Time `json:"submitted_at"`
	Brief       *Brief    `json:"brief,omitempty"`
}

// Answer is a single entry of a submission: the question id (as sent by the
// client) and the raw JSON value answered.
type Answer struct {
	QuestionID string
	Value      json.RawMessage
}

// Answers is a JSON object that keeps its keys in the order they were
// received. Values are kept as raw JSON so the payload round-trips verbatim.
type Answers []Answer

var errAnswersNotObject = errors.New("answers must be a JSON object")

// UnmarshalJSON decodes a JSON object token by token to preserve key order.
// A repeated key keeps its first position and takes the last value.
func (a *Answers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errAnswersNotObject
	}

	out := Answers{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("answers: unexpected key token %v", keyTok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("answers: decoding value for %q: %w", key, err)
		}
		if i, seen := index[key]; seen {
			out[i].Value = value
			continue
		}
		index[key] = len(out)
		out = append(out, Answer{QuestionID: key, Value: value})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*a = out
	return nil
}

// MarshalJSON writes the answers back as a JSON object in stored order.
func (a Answers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, ans := range a {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(ans.QuestionID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if len(ans.Value) == 0 {
			buf.WriteString("null")
			continue
		}
		if err := json.Compact(&buf, ans.Value); err != nil {
			return nil, fmt.Errorf("answers: value for %q: %w", ans.QuestionID, err)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// IsAnswersShapeError reports whether err came from a non-object answers
// payload.
func IsAnswersShapeError(err error) bool {
	return errors.Is(err, errAnswersNotObject)
}
