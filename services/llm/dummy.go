package llmsvc

import (
	"context"

	"github.com/included-edu/included/core/generate"
)

const dummyOutline = `{"modules": [
  {"title": "Getting started", "description": "Introduction to the course", "duration_minutes": 45,
   "learning_objectives": ["Know what the course covers"],
   "lessons": [
     {"title": "Welcome", "content_text": "What we will learn and how.", "duration_minutes": 15, "keywords": ["introduction"]},
     {"title": "Key words", "content_text": "The vocabulary of the course.", "duration_minutes": 15, "keywords": ["vocabulary"]},
     {"title": "Warm up", "content_text": "A first exercise.", "duration_minutes": 15, "keywords": ["practice"],
      "assessment": {"title": "Warm up quiz", "questions": [
        {"type": "true_false", "question": "This course has three modules.", "options": ["true", "false"], "correct_answer": "true", "points": 1}]}}]},
  {"title": "Core ideas", "description": "The main part of the course", "duration_minutes": 90,
   "learning_objectives": ["Apply the core ideas"],
   "lessons": [
     {"title": "First idea", "content_text": "Explained with examples.", "duration_minutes": 30},
     {"title": "Second idea", "content_text": "Explained with examples.", "duration_minutes": 30},
     {"title": "Putting it together", "content_text": "Combining both ideas.", "duration_minutes": 30,
      "assessment": {"title": "Check your understanding", "questions": [
        {"type": "short_answer", "question": "Name the two core ideas.", "correct_answer": "first and second", "points": 2}]}}]},
  {"title": "Review", "description": "Consolidation", "duration_minutes": 45,
   "learning_objectives": ["Review the course"],
   "lessons": [
     {"title": "Summary", "content_text": "What we learnt.", "duration_minutes": 15},
     {"title": "Practice", "content_text": "Mixed exercises.", "duration_minutes": 15},
     {"title": "Final quiz", "content_text": "Show what you know.", "duration_minutes": 15,
      "assessment": {"title": "Final quiz", "questions": [
        {"type": "multiple_choice", "question": "How many modules did we study?", "options": ["2", "3", "4"], "correct_answer": "3", "points": 2}]}}]}
]}`

// DummyClient returns a fixed three module outline. Used in DEV when no API key is configured.
type DummyClient struct{}

var _ generate.Completer = DummyClient{}

func NewDummyClient() DummyClient { return DummyClient{} }

func (DummyClient) CompleteJSON(ctx context.Context, _ generate.Prompt) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []byte(dummyOutline), nil
}
