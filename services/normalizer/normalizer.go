// Package normalizer turns raw model output into validated domain values.
package normalizer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
)

// SchemaKind names the structure a response is parsed into.
type SchemaKind string

const (
	SchemaSyllabusAnalysis SchemaKind = "syllabus_analysis"
	SchemaQuestionSet      SchemaKind = "question_set"
	SchemaStudyPlan        SchemaKind = "study_plan"
)

var (
	// ErrMalformedJSON marks output that is not parseable JSON.
	ErrMalformedJSON = errors.New("model response is not valid JSON")
	// ErrSchema marks JSON that lacks a required structure.
	ErrSchema = errors.New("model response does not match the expected structure")
)

// ParseError reports a response that could not be normalized.
type ParseError struct {
	Schema SchemaKind
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %v", e.Schema, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ShortfallError is returned when the model produced fewer questions than requested.
type ShortfallError struct {
	Got  int
	Want int
}

func (e *ShortfallError) Error() string {
	return fmt.Sprintf("model returned %d questions, fewer than the %d requested", e.Got, e.Want)
}

// StripFences removes a leading ``` fence (with optional language tag) and a
// trailing ``` fence, then trims whitespace.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			// single line: ```json{...}```
			text = strings.TrimPrefix(text, "```")
			if tag := strings.IndexAny(text, "{["); tag > 0 && isLanguageTag(text[:tag]) {
				text = text[tag:]
			}
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

func isLanguageTag(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return true
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// CleanMarkdown drops fence lines from free-form markdown content.
func CleanMarkdown(raw string) string {
	lines := strings.Split(raw, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func decode(raw string, schema SchemaKind, dest interface{}) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(StripFences(raw))))
	dec.UseNumber()
	if err := dec.Decode(dest); err != nil {
		return &ParseError{Schema: schema, Err: fmt.Errorf("%w: %v", ErrMalformedJSON, err)}
	}
	// exactly one value; trailing prose is a failed parse
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return &ParseError{Schema: schema, Err: fmt.Errorf("%w: unexpected content after the JSON value", ErrMalformedJSON)}
	}
	return nil
}

func schemaErr(schema SchemaKind, format string, args ...interface{}) error {
	return &ParseError{Schema: schema, Err: fmt.Errorf("%w: %s", ErrSchema, fmt.Sprintf(format, args...))}
}

// ParseSyllabusAnalysis normalizes a syllabus analysis response.
func ParseSyllabusAnalysis(raw string) (*model.AnalysisResult, error) {
	var doc map[string]interface{}
	if err := decode(raw, SchemaSyllabusAnalysis, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, schemaErr(SchemaSyllabusAnalysis, "top level must be an object")
	}

	result := &model.AnalysisResult{
		BasicInfo:      model.BasicInfo{GradingPolicy: model.GradingPolicy{}},
		WeeklySchedule: []model.ScheduleEntry{},
	}

	if info, ok := doc["basic_info"].(map[string]interface{}); ok {
		result.BasicInfo.Credits = numberOrNil(info["credits"])
		result.BasicInfo.CourseType = nonBlank(info["course_type"])
		result.BasicInfo.CourseLevel = nonBlank(info["course_level"])
		if policy, ok := info["grading_policy"].(map[string]interface{}); ok {
			result.BasicInfo.GradingPolicy = normalizeGradingPolicy(policy)
		}
	}

	switch schedule := doc["weekly_schedule"].(type) {
	case nil:
	case []interface{}:
		for idx, item := range schedule {
			entry := model.ScheduleEntry{WeekNo: idx + 1}
			if obj, ok := item.(map[string]interface{}); ok {
				if n, ok := intValue(obj["week_no"]); ok {
					entry.WeekNo = n
				}
				entry.Topic = stringValue(obj["topic"])
				entry.Description = stringValue(obj["description"])
			}
			result.WeeklySchedule = append(result.WeeklySchedule, entry)
		}
	default:
		return nil, schemaErr(SchemaSyllabusAnalysis, "weekly_schedule must be a list")
	}

	return result, nil
}

// normalizeGradingPolicy drops null and zero-valued weights; a zero weight
// means "not specified".
func normalizeGradingPolicy(in map[string]interface{}) model.GradingPolicy {
	out := model.GradingPolicy{}
	for key, value := range in {
		switch v := value.(type) {
		case nil:
			continue
		case json.Number, string:
			f := numberOrNil(v)
			if f == nil {
				// free text such as "summary"
				out[key] = value
				continue
			}
			if *f == 0 {
				continue
			}
			out[key] = *f
		default:
			out[key] = v
		}
	}
	return out
}

// QuestionDraft is one generated question before persistence.
type QuestionDraft struct {
	QuestionType  string   `json:"question_type"`
	QuestionText  string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
	KeyConcept    string   `json:"key_concept"`
}

// ParseQuestionSet normalizes a quiz response holding exactly requested
// questions: fewer is a *ShortfallError, more is truncated.
func ParseQuestionSet(raw string, requested int) ([]QuestionDraft, error) {
	var doc map[string]interface{}
	if err := decode(raw, SchemaQuestionSet, &doc); err != nil {
		return nil, err
	}
	items, ok := doc["questions"].([]interface{})
	if !ok {
		return nil, schemaErr(SchemaQuestionSet, "missing questions list")
	}
	if len(items) < requested {
		return nil, &ShortfallError{Got: len(items), Want: requested}
	}
	if requested > 0 && len(items) > requested {
		items = items[:requested]
	}

	drafts := make([]QuestionDraft, 0, len(items))
	for idx, item := range items {
		obj, ok := item.(map[string]interface{})
		if !ok {
			return nil, schemaErr(SchemaQuestionSet, "question %d is not an object", idx+1)
		}
		draft := QuestionDraft{
			QuestionType:  stringValue(obj["question_type"]),
			QuestionText:  stringValue(obj["question_text"]),
			CorrectAnswer: stringValue(obj["correct_answer"]),
			Explanation:   stringValue(obj["explanation"]),
			KeyConcept:    stringValue(obj["key_concept"]),
		}
		if draft.QuestionText == "" {
			return nil, schemaErr(SchemaQuestionSet, "question %d has no question_text", idx+1)
		}
		if draft.QuestionType == "" {
			draft.QuestionType = model.QuestionTypeMultipleChoice
		}
		if opts, ok := obj["options"].([]interface{}); ok && len(opts) > 0 {
			draft.Options = make([]string, 0, len(opts))
			for _, o := range opts {
				draft.Options = append(draft.Options, stringValue(o))
			}
		}
		drafts = append(drafts, draft)
	}
	return drafts, nil
}

// ParseStudyPlan requires a non-empty {"plan": {"YYYY-MM-DD": "text"}} mapping.
func ParseStudyPlan(raw string) (*model.StudyPlan, error) {
	var doc map[string]interface{}
	if err := decode(raw, SchemaStudyPlan, &doc); err != nil {
		return nil, err
	}
	rawPlan, ok := doc["plan"].(map[string]interface{})
	if !ok {
		return nil, schemaErr(SchemaStudyPlan, "missing plan mapping")
	}
	if len(rawPlan) == 0 {
		return nil, schemaErr(SchemaStudyPlan, "plan mapping is empty")
	}

	dates := make([]string, 0, len(rawPlan))
	for date := range rawPlan {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	plan := &model.StudyPlan{Plan: make(map[string]string, len(rawPlan))}
	for _, date := range dates {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return nil, schemaErr(SchemaStudyPlan, "plan key %q is not an ISO date", date)
		}
		text, ok := rawPlan[date].(string)
		if !ok {
			return nil, schemaErr(SchemaStudyPlan, "plan entry for %s is not text", date)
		}
		plan.Plan[date] = text
	}
	return plan, nil
}

func stringValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func nonBlank(v interface{}) *string {
	s := stringValue(v)
	if s == "" {
		return nil
	}
	return &s
}

func numberOrNil(v interface{}) *float64 {
	switch t := v.(type) {
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return &f
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			return &f
		}
	}
	return nil
}

func intValue(v interface{}) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		return n, err == nil
	}
	return 0, false
}
