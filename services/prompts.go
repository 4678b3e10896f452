package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sahilchouksey/adaptive-tutor-api/model"
)

// Character budgets applied to prompt context.
const (
	syllabusPromptBudget = 8000
	quizContextBudget    = 15000
	conceptContextBudget = 12000
	planFallbackBudget   = 2000
	previousReportBudget = 300
)

const conceptTruncationSuffix = "\n\n[이하 생략...]"

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

func analysisPrompt(syllabusText string) string {
	return `당신은 대학 강의계획서를 분석하는 전문가입니다. 아래 강의계획서 텍스트에서 정보를 추출하여 다음 JSON 형식으로만 응답하세요.

{
  "basic_info": {
    "credits": 3,
    "course_type": "전공핵심",
    "course_level": "200단위",
    "grading_policy": {
      "midterm": 30,
      "final": 30,
      "assignment": 25,
      "attendance": 10,
      "other": 5,
      "summary": "중간고사 30%, 기말고사 30%, 과제 25%, 출석 10%, 기타 5%"
    }
  },
  "weekly_schedule": [
    {"week_no": 1, "topic": "오리엔테이션", "description": "강의 소개 및 학습 목표"}
  ]
}

강의계획서 텍스트:
` + truncateRunes(syllabusText, syllabusPromptBudget) + `

규칙:
1. 유효한 JSON만 출력하고 다른 설명은 포함하지 마세요.
2. credits와 grading_policy 값은 숫자(%)로 반환하세요.
3. course_type은 "전공기초", "전공핵심", "전공심화" 같은 과목구분입니다. 없으면 null.
4. course_level은 "100단위", "200단위" 같은 이수구분입니다. 없으면 null.
5. weekly_schedule에는 모든 주차를 포함하고 week_no는 1부터 연속된 숫자로 작성하세요.`
}

// weekScope describes selected weeks as "Week 3", "Weeks 2-4" or "Week 1, 3, 5".
func weekScope(weeks []int) string {
	sorted := append([]int(nil), weeks...)
	sort.Ints(sorted)
	if len(sorted) == 1 {
		return fmt.Sprintf("Week %d", sorted[0])
	}
	continuous := true
	for i := 1; i < len(sorted); i++ {
		if sorted[i] != sorted[i-1]+1 {
			continuous = false
			break
		}
	}
	if continuous {
		return fmt.Sprintf("Weeks %d-%d", sorted[0], sorted[len(sorted)-1])
	}
	parts := make([]string, len(sorted))
	for i, w := range sorted {
		parts[i] = strconv.Itoa(w)
	}
	return "Week " + strings.Join(parts, ", ")
}

var questionTypeLabels = map[string]string{
	model.QuestionTypeMultipleChoice: "객관식 (Multiple Choice)",
	model.QuestionTypeShortAnswer:    "단답형 (Short Answer)",
	model.QuestionTypeTrueFalse:      "참/거짓 (True/False)",
	"subjective":                     "주관식 (Subjective/Essay)",
}

var difficultyLabels = map[string]string{
	model.DifficultyEasy:   "쉬움",
	model.DifficultyMedium: "보통",
	model.DifficultyHard:   "어려움",
}

type quizPromptInput struct {
	Material        string
	Difficulty      string
	QuestionTypes   []string
	NumQuestions    int
	Language        string
	Weeks           []int
	PastExamContext string
	PreviousReport  string
}

func quizPrompt(in quizPromptInput) string {
	lang := "영어로"
	if in.Language == "" || in.Language == "korean" {
		lang = "한국어로"
	}
	types := make([]string, 0, len(in.QuestionTypes))
	for _, t := range in.QuestionTypes {
		if label, ok := questionTypeLabels[t]; ok {
			types = append(types, label)
		} else {
			types = append(types, t)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "당신은 교육용 퀴즈 생성 전문가입니다. 다음 강의 자료를 기반으로 %s 퀴즈를 생성해주세요.\n\n", lang)
	fmt.Fprintf(&b, "**강의 자료:**\n%s\n\n", in.Material)
	b.WriteString("**퀴즈 생성 요구사항:**\n")
	fmt.Fprintf(&b, "1. 난이도: %s (%s)\n", in.Difficulty, difficultyLabels[in.Difficulty])
	fmt.Fprintf(&b, "2. 문제 유형: %s\n", strings.Join(types, ", "))
	fmt.Fprintf(&b, "3. 문제 개수: %d개\n", in.NumQuestions)
	fmt.Fprintf(&b, "4. 범위: %s\n", weekScope(in.Weeks))
	if in.PastExamContext != "" {
		fmt.Fprintf(&b, "5. 참고 스타일/예시:\n%s\n", in.PastExamContext)
	}
	if in.PreviousReport != "" {
		fmt.Fprintf(&b, "\n**적응형 학습 지시사항:**\n사용자의 이전 취약점 리포트를 참고하여 다음 약점 영역을 집중적으로 다루는 문제를 포함하세요:\n%s\n", in.PreviousReport)
	}
	fmt.Fprintf(&b, `
**출력 형식 (JSON):**
{
  "questions": [
    {
      "question_type": "multiple_choice",
      "question_text": "문제 내용",
      "options": ["선택지1", "선택지2", "선택지3", "선택지4"],
      "correct_answer": "정답",
      "explanation": "상세 설명",
      "key_concept": "핵심 개념"
    }
  ]
}

**중요 지시사항:**
- "questions" 배열에는 정확히 %d개의 문제가 있어야 합니다.
- options는 객관식 문제에만 포함하고 4개의 선택지를 제공하세요.
- JSON만 출력하고 다른 설명은 포함하지 마세요.`, in.NumQuestions)
	return b.String()
}

type gradedAnswer struct {
	Position      int
	KeyConcept    string
	UserAnswer    string
	CorrectAnswer string
	IsCorrect     bool
}

type previousAttempt struct {
	Score   int
	Summary string
}

func percent(score, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(int(float64(score)/float64(total)*1000+0.5)) / 10
}

func reportPrompt(score, total int, answers []gradedAnswer, prev *previousAttempt) string {
	var correct, wrong []string
	wrongCount := 0
	for _, a := range answers {
		if a.IsCorrect {
			if len(correct) < 5 {
				correct = append(correct, fmt.Sprintf("- %s: %d번 문제", a.KeyConcept, a.Position))
			}
			continue
		}
		wrongCount++
		wrong = append(wrong, fmt.Sprintf("- %d번: %s - 사용자 답: %s, 정답: %s", a.Position, a.KeyConcept, a.UserAnswer, a.CorrectAnswer))
	}

	var b strings.Builder
	b.WriteString("당신은 학습 분석 전문가입니다. 다음 퀴즈 결과를 분석하여 사용자의 성과 리포트를 작성해주세요.\n\n")
	fmt.Fprintf(&b, "**성적: %d/%d (정답률: %.1f%%)**\n\n", score, total, percent(score, total))
	fmt.Fprintf(&b, "**정답한 문제 (%d개):**\n%s\n\n", len(answers)-wrongCount, strings.Join(correct, "\n"))
	fmt.Fprintf(&b, "**오답한 문제 (%d개):**\n%s\n", wrongCount, strings.Join(wrong, "\n"))

	if prev != nil {
		fmt.Fprintf(&b, "\n**이전 시도와의 비교:**\n")
		fmt.Fprintf(&b, "- 이전 점수: %d/%d (정답률: %.1f%%)\n", prev.Score, total, percent(prev.Score, total))
		fmt.Fprintf(&b, "- 현재 점수: %d/%d (정답률: %.1f%%)\n", score, total, percent(score, total))
		fmt.Fprintf(&b, "- 점수 변화: %+d점\n", score-prev.Score)
		fmt.Fprintf(&b, "- 이전 리포트 요약: %s...\n", prev.Summary)
		b.WriteString("이전 시도 대비 개선된 부분과 여전히 부족한 부분을 구분하여 분석해주세요.\n")
	}

	b.WriteString(`
**리포트 형식 (마크다운, 이 순서를 반드시 지키세요):**
# 1. 전반적인 평가
2-3문장의 구체적인 평가

# 2. 결과 분석 리포트

## (1) 잘한 부분 (강점)

## (2) 부족한 부분 (약점)
모든 문제를 맞춘 경우에도 이 항목을 긍정적인 어조로 포함하세요.

## (3) 구체적인 학습 권장사항

# 3. 마무리
격려하는 마무리 문구`)
	return b.String()
}

// fallbackReport replaces the narrative when generation fails, so grading
// results are still stored.
func fallbackReport(score, total int) string {
	return fmt.Sprintf("# 1. 전반적인 평가\n점수: %d/%d (정답률: %.1f%%)\n\nAI 리포트를 생성하지 못했습니다. 잠시 후 퀴즈를 다시 제출하면 리포트를 받을 수 있습니다.", score, total, percent(score, total))
}

func conceptPrompt(mode string, weekNumber int, lectureText string) string {
	var b strings.Builder
	if mode == model.ConceptModeDeepDive {
		b.WriteString("당신은 대학 강의를 깊이 있게 설명하는 튜터입니다. 다음 강의 자료를 바탕으로 각 개념의 원리, 예시, 흔한 오해까지 포함한 심화 학습 노트를 작성해주세요.\n\n")
	} else {
		b.WriteString("당신은 학습 자료를 정리하는 전문가입니다. 다음 강의 자료를 읽고 체계적인 학습 노트 형식으로 핵심 요약을 작성해주세요.\n\n")
	}
	fmt.Fprintf(&b, "강의 자료:\n%s\n", lectureText)
	if weekNumber != 1 {
		fmt.Fprintf(&b, "\n**중요: 이 주차는 %d주차입니다. 강의 개요 및 운영 정보는 1주차에만 포함되므로 강의 개요 섹션 없이 바로 학습 내용부터 시작하세요.**\n", weekNumber)
	}
	b.WriteString(`
작성 규칙:
1. Markdown 헤딩(#, ##, ###)으로 계층을 구성하고 각 헤딩 다음에 빈 줄을 넣으세요.
2. 리스트 항목은 반드시 한 줄에 하나씩 작성하세요.
3. 수식은 LaTeX($...$, $$...$$) 형식으로 작성하세요.
4. 중요한 개념은 **굵게** 표시하세요.
5. 코드 블록 표시(` + "```" + `)로 전체 응답을 감싸지 마세요.`)
	return b.String()
}

var examTypeLabels = map[string]string{
	model.ExamTypeMidterm: "중간고사",
	model.ExamTypeFinal:   "기말고사",
}

type planPromptInput struct {
	SubjectName string
	ExamType    string
	Today       string
	ExamDate    string
	DaysLeft    int
	RangeStart  *int
	RangeEnd    *int
	Context     string
	Style       model.LearningStyle
}

func studyPlanPrompt(in planPromptInput) string {
	examLabel := "시험"
	if label, ok := examTypeLabels[in.ExamType]; ok {
		examLabel = label
	}
	context := in.Context
	if context == "" {
		context = "강의계획서 정보가 없습니다."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "당신은 학습 계획 전문가입니다. 다음 정보를 바탕으로 %d일간의 일일 학습 계획을 생성해주세요.\n\n", in.DaysLeft)
	b.WriteString("**과목 정보:**\n")
	fmt.Fprintf(&b, "- 과목명: %s\n- 시험 유형: %s\n- 시험 날짜: %s\n- 오늘 날짜: %s\n- 남은 일수: %d일\n",
		in.SubjectName, examLabel, in.ExamDate, in.Today, in.DaysLeft)
	if in.RangeStart != nil && in.RangeEnd != nil {
		fmt.Fprintf(&b, "- 시험 범위: %d주차 ~ %d주차\n", *in.RangeStart, *in.RangeEnd)
	}
	fmt.Fprintf(&b, "\n**강의계획서 요약 (시험 범위):**\n%s\n\n", context)
	fmt.Fprintf(&b, "**사용자 학습 스타일:**\n- 시험 준비 방식: %s\n- 이해 깊이: %s\n- 자료 선호: %s\n- 실전 선호: %s\n- AI 성격: %s\n\n",
		in.Style.ExamStyle, in.Style.LearningDepth, in.Style.MaterialPreference, in.Style.PracticeStyle, in.Style.AIPersona)
	fmt.Fprintf(&b, `**요구사항:**
1. 오늘(%s)부터 시험일(%s)까지 모든 날짜의 학습 계획을 생성하세요.
2. 각 날짜마다 학습 범위, 학습 방법, 퀴즈 활용 방법을 2-3줄로 구체적으로 작성하세요.
3. 시험일이 가까워질수록 복습과 문제 풀이 비중을 높이세요.

**출력 형식:** 다른 텍스트 없이 JSON만 출력하세요.
{
  "plan": {
    "YYYY-MM-DD": "구체적인 학습 계획"
  }
}`, in.Today, in.ExamDate)
	return b.String()
}
