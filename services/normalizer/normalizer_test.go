package normalizer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, StripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, StripFences("  {\"a\":1}  "))
	assert.Equal(t, `{"a":1}`, StripFences("```\n{\"a\":1}```"))
	assert.Equal(t, `{"a":1}`, StripFences("```json{\"a\":1}```"))
	assert.Equal(t, `[1]`, StripFences("```[1]```"))
}

func TestParseSyllabusAnalysisSingleLineFence(t *testing.T) {
	res, err := ParseSyllabusAnalysis("```json{\"weekly_schedule\": [{\"week_no\": 1, \"topic\": \"Intro\"}]}```")
	require.NoError(t, err)
	require.Len(t, res.WeeklySchedule, 1)
	assert.Equal(t, "Intro", res.WeeklySchedule[0].Topic)
}

func TestParseSyllabusAnalysisRejectsTrailingContent(t *testing.T) {
	_, err := ParseSyllabusAnalysis(`{"weekly_schedule": []} and that is the full schedule.`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedJSON))

	_, err = ParseQuestionSet(`{"questions": []} {"questions": []}`, 1)
	assert.True(t, errors.Is(err, ErrMalformedJSON))
}

func TestParseSyllabusAnalysisGradingWeightsAsStrings(t *testing.T) {
	res, err := ParseSyllabusAnalysis(`{"basic_info": {"grading_policy": {"midterm": "40", "final": "60", "attendance": "0", "summary": "relative grading"}}}`)
	require.NoError(t, err)
	policy := res.BasicInfo.GradingPolicy
	assert.Equal(t, 40.0, policy["midterm"])
	assert.Equal(t, 60.0, policy["final"])
	assert.NotContains(t, policy, "attendance")
	assert.Equal(t, "relative grading", policy["summary"])
}

func TestParseSyllabusAnalysisKeepsScheduleLength(t *testing.T) {
	raw := "```json\n" + `{
  "basic_info": {
    "credits": "3",
    "course_type": "  ",
    "course_level": "undergraduate",
    "grading_policy": {"midterm": 30, "final": 40, "attendance": 0, "project": null, "assignments": 30}
  },
  "weekly_schedule": [
    {"week_no": 1, "topic": "Intro", "description": "overview"},
    {"topic": "Sorting"},
    {"week_no": 3, "topic": "Graphs", "description": null}
  ]
}` + "\n```"

	res, err := ParseSyllabusAnalysis(raw)
	require.NoError(t, err)

	require.NotNil(t, res.BasicInfo.Credits)
	assert.Equal(t, 3.0, *res.BasicInfo.Credits)
	assert.Nil(t, res.BasicInfo.CourseType)
	require.NotNil(t, res.BasicInfo.CourseLevel)
	assert.Equal(t, "undergraduate", *res.BasicInfo.CourseLevel)

	assert.Len(t, res.BasicInfo.GradingPolicy, 3)
	assert.NotContains(t, res.BasicInfo.GradingPolicy, "attendance")
	assert.NotContains(t, res.BasicInfo.GradingPolicy, "project")
	assert.Equal(t, 40.0, res.BasicInfo.GradingPolicy["final"])

	require.Len(t, res.WeeklySchedule, 3)
	assert.Equal(t, 2, res.WeeklySchedule[1].WeekNo)
	assert.Equal(t, "Sorting", res.WeeklySchedule[1].Topic)
	assert.Equal(t, "", res.WeeklySchedule[2].Description)
}

func TestParseSyllabusAnalysisMissingSectionsYieldEmptyValues(t *testing.T) {
	res, err := ParseSyllabusAnalysis(`{}`)
	require.NoError(t, err)
	assert.Nil(t, res.BasicInfo.Credits)
	assert.Empty(t, res.BasicInfo.GradingPolicy)
	assert.Empty(t, res.WeeklySchedule)
}

func TestParseSyllabusAnalysisRejectsMalformedJSON(t *testing.T) {
	_, err := ParseSyllabusAnalysis("Sure! Here is the analysis: {")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMalformedJSON))

	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, SchemaSyllabusAnalysis, perr.Schema)
}

func TestParseSyllabusAnalysisRejectsNonListSchedule(t *testing.T) {
	_, err := ParseSyllabusAnalysis(`{"weekly_schedule": "weeks 1-15"}`)
	assert.ErrorIs(t, err, ErrSchema)
}

const threeQuestions = `{"questions": [
  {"question_type": "multiple_choice", "question_text": "Q1", "options": ["a", "b"], "correct_answer": "a"},
  {"question_type": "true_false", "question_text": "Q2", "correct_answer": "true"},
  {"question_text": "Q3", "correct_answer": "stack", "key_concept": "LIFO"}
]}`

func TestParseQuestionSetShortfallNamesCounts(t *testing.T) {
	_, err := ParseQuestionSet(threeQuestions, 5)
	var short *ShortfallError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, 3, short.Got)
	assert.Equal(t, 5, short.Want)
	assert.Contains(t, err.Error(), "3")
	assert.Contains(t, err.Error(), "5")
}

func TestParseQuestionSetTruncatesExtras(t *testing.T) {
	drafts, err := ParseQuestionSet(threeQuestions, 2)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, []string{"a", "b"}, drafts[0].Options)
	assert.Nil(t, drafts[1].Options)
}

func TestParseQuestionSetDefaultsQuestionType(t *testing.T) {
	drafts, err := ParseQuestionSet(threeQuestions, 3)
	require.NoError(t, err)
	assert.Equal(t, "multiple_choice", drafts[2].QuestionType)
	assert.Equal(t, "LIFO", drafts[2].KeyConcept)
}

func TestParseQuestionSetRequiresList(t *testing.T) {
	_, err := ParseQuestionSet(`{"items": []}`, 1)
	assert.ErrorIs(t, err, ErrSchema)
}

func TestParseStudyPlan(t *testing.T) {
	plan, err := ParseStudyPlan("```json\n{\"plan\": {\"2026-10-20\": \"Review week 3\", \"2026-10-21\": \"Practice quiz\"}}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Practice quiz", plan.Plan["2026-10-21"])
	assert.Len(t, plan.Plan, 2)
}

func TestParseStudyPlanRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty plan":    `{"plan": {}}`,
		"missing plan":  `{"schedule": {"2026-10-20": "x"}}`,
		"bad date key":  `{"plan": {"Monday": "x"}}`,
		"non text body": `{"plan": {"2026-10-20": ["x"]}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseStudyPlan(raw)
			assert.ErrorIs(t, err, ErrSchema)
		})
	}
}

func TestCleanMarkdownDropsFenceLines(t *testing.T) {
	in := "```markdown\n# Title\n\nBody\n```"
	assert.Equal(t, "# Title\n\nBody", CleanMarkdown(in))
}
