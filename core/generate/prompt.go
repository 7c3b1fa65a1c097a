package generate

import (
	"strings"
	"text/template"

	"github.com/pkg/errors"
)

const systemPrompt = "You are an expert curriculum designer for primary and secondary schools. " +
	"You always answer with a single valid JSON object and nothing else."

var userPromptTmpl = template.Must(template.New("course").Parse(`Design a course for the following class.

Title: {{.Meta.Title}}
Subject: {{.Meta.Subject}}
Grade level: {{.Meta.GradeLevel}}
Language: {{.Meta.Language}}

Write every title, description and lesson content in the language "{{.Meta.Language}}".
Create between {{.MinModules}} and {{.MaxModules}} modules with between {{.MinLessons}} and {{.MaxLessons}} lessons each.
Every lesson may have a short assessment.

Answer with JSON of exactly this shape:
{"modules": [{"title": string, "description": string, "duration_minutes": integer, "learning_objectives": [string],
  "lessons": [{"title": string, "content_text": string, "duration_minutes": integer, "learning_objectives": [string], "keywords": [string],
    "assessment": {"title": string, "questions": [{"type": "multiple_choice"|"true_false"|"short_answer", "question": string, "options": [string], "correct_answer": string, "points": integer}]}}]}]}
{{if .Syllabus}}
Base the course on this syllabus:
"""
{{.Syllabus}}
"""{{end}}`))

// Prompt is one completion request.
type Prompt struct {
	System      string
	User        string
	Temperature float64
}

type promptData struct {
	Meta                   Metadata
	Syllabus               string
	MinModules, MaxModules int
	MinLessons, MaxLessons int
}

// BuildPrompt renders the instructions for meta and an already truncated syllabus.
func BuildPrompt(meta Metadata, syllabus string, temperature float64) (Prompt, error) {
	var user strings.Builder
	err := userPromptTmpl.Execute(&user, promptData{
		Meta:       meta,
		Syllabus:   syllabus,
		MinModules: 3,
		MaxModules: 5,
		MinLessons: 3,
		MaxLessons: 5,
	})
	if err != nil {
		return Prompt{}, errors.Wrap(err, "rendering prompt")
	}
	return Prompt{System: systemPrompt, User: user.String(), Temperature: temperature}, nil
}
