package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// AnalysisState is the lifecycle position of a subject's syllabus analysis.
type AnalysisState string

const (
	AnalysisNoText     AnalysisState = "no_text"
	AnalysisUnanalyzed AnalysisState = "unanalyzed"
	AnalysisAnalyzed   AnalysisState = "analyzed"
	AnalysisFailed     AnalysisState = "failed"
)

// AnalysisFailureKind tags a stored failure sentinel.
type AnalysisFailureKind string

const (
	AnalysisFailureGeneric AnalysisFailureKind = "analysis_failed"
	AnalysisFailureQuota   AnalysisFailureKind = "quota_exceeded"
	AnalysisFailureAuth    AnalysisFailureKind = "auth_error"
)

// GradingPolicy maps a grading component (midterm, final, assignment,
// attendance, other) to its weight. "summary" holds free text.
type GradingPolicy map[string]any

// BasicInfo is the course-level part of a syllabus analysis.
type BasicInfo struct {
	Credits       *float64      `json:"credits"`
	CourseType    *string       `json:"course_type"`
	CourseLevel   *string       `json:"course_level"`
	GradingPolicy GradingPolicy `json:"grading_policy"`
}

// ScheduleEntry is one week of the analyzed syllabus schedule.
type ScheduleEntry struct {
	WeekNo      int    `json:"week_no"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

// AnalysisResult is a successful, normalized syllabus analysis.
type AnalysisResult struct {
	BasicInfo      BasicInfo       `json:"basic_info"`
	WeeklySchedule []ScheduleEntry `json:"weekly_schedule"`
}

// WeeksInRange returns schedule entries with start <= week_no <= end.
func (r *AnalysisResult) WeeksInRange(start, end int) []ScheduleEntry {
	out := make([]ScheduleEntry, 0, len(r.WeeklySchedule))
	for _, entry := range r.WeeklySchedule {
		if entry.WeekNo >= start && entry.WeekNo <= end {
			out = append(out, entry)
		}
	}
	return out
}

// AnalysisFailure is the sentinel stored when analysis permanently failed.
type AnalysisFailure struct {
	Kind    AnalysisFailureKind `json:"error"`
	Message string              `json:"message"`
}

// SyllabusAnalysis is a tagged union: empty (never analyzed), Result, or Failure.
// It is stored as JSON text; the tag is explicit in Go and only inferred at
// the storage boundary.
type SyllabusAnalysis struct {
	Result  *AnalysisResult
	Failure *AnalysisFailure
}

// AnalysisSucceeded wraps a successful result.
func AnalysisSucceeded(result *AnalysisResult) SyllabusAnalysis {
	return SyllabusAnalysis{Result: result}
}

// AnalysisFailedWith builds a failure sentinel.
func AnalysisFailedWith(kind AnalysisFailureKind, message string) SyllabusAnalysis {
	return SyllabusAnalysis{Failure: &AnalysisFailure{Kind: kind, Message: message}}
}

// IsEmpty reports whether analysis was never stored.
func (a SyllabusAnalysis) IsEmpty() bool {
	return a.Result == nil && a.Failure == nil
}

func (a SyllabusAnalysis) MarshalJSON() ([]byte, error) {
	switch {
	case a.Failure != nil:
		return json.Marshal(a.Failure)
	case a.Result != nil:
		return json.Marshal(a.Result)
	default:
		return []byte("null"), nil
	}
}

func (a *SyllabusAnalysis) UnmarshalJSON(data []byte) error {
	*a = SyllabusAnalysis{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	var probe struct {
		Error *string `json:"error"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Error != nil {
		var failure AnalysisFailure
		if err := json.Unmarshal(data, &failure); err != nil {
			return err
		}
		a.Failure = &failure
		return nil
	}

	var result AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return err
	}
	a.Result = &result
	return nil
}

// Value stores the union as JSON text, or NULL when empty.
func (a SyllabusAnalysis) Value() (driver.Value, error) {
	if a.IsEmpty() {
		return nil, nil
	}
	data, err := a.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (a *SyllabusAnalysis) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*a = SyllabusAnalysis{}
		return nil
	case []byte:
		return a.UnmarshalJSON(v)
	case string:
		return a.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("unsupported syllabus analysis column type %T", value)
	}
}

func (SyllabusAnalysis) GormDataType() string {
	return "text"
}
