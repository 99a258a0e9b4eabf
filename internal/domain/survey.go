// Package domain contains core domain types for the learning assistant.
package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// EmailQuestion is the survey key carrying the student's contact email.
const EmailQuestion = "Q5. Contact Information, email"

// NameQuestion is the survey key carrying the student's full name.
const NameQuestion = "Q1. Full Name"

// Answer is one survey question and the student's response.
type Answer struct {
	Key   string
	Value string
}

// SurveyRecord holds one student's answers in questionnaire order.
// Order matters: prompts list answers exactly as the survey asked them.
type SurveyRecord struct {
	Answers []Answer
}

// NewSurveyRecord builds a record from ordered key/value pairs.
func NewSurveyRecord(answers ...Answer) SurveyRecord {
	out := make([]Answer, len(answers))
	copy(out, answers)
	return SurveyRecord{Answers: out}
}

// Get returns the answer for an exact question key.
func (s SurveyRecord) Get(key string) (string, bool) {
	for _, a := range s.Answers {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// Email returns the trimmed contact email, or an error if the survey has none.
func (s SurveyRecord) Email() (string, error) {
	v, ok := s.Get(EmailQuestion)
	if !ok || strings.TrimSpace(v) == "" {
		return "", fmt.Errorf("%w: survey has no %q answer", ErrInvalidInput, EmailQuestion)
	}
	return strings.TrimSpace(v), nil
}

// Name returns the student's full name if present.
func (s SurveyRecord) Name() string {
	v, _ := s.Get(NameQuestion)
	return strings.TrimSpace(v)
}

// MarshalJSON encodes the record as a JSON object keeping question order.
func (s SurveyRecord) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, a := range s.Answers {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(a.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(a.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of string answers keeping key order.
func (s *SurveyRecord) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode survey: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode survey: expected object")
	}
	s.Answers = s.Answers[:0]
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode survey key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode survey: non-string key")
		}
		var value any
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("decode survey value for %q: %w", key, err)
		}
		s.Answers = append(s.Answers, Answer{Key: key, Value: stringify(value)})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode survey: %w", err)
	}
	return nil
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
