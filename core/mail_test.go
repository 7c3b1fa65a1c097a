package core

import (
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := &Config{AppName: "IncludEd", FrontendBaseURL: "http://localhost:3000", TestMode: true}

	msg := &EmailMessage{
		To:           []mail.Address{{Name: "Ada", Address: "ada@test.rw"}},
		Subject:      "Course published",
		TemplateName: "course_published",
		TemplateData: map[string]interface{}{
			"Name":     "Ada",
			"Title":    "Mathematics Grade 4",
			"CourseID": "c-1",
		},
	}
	require.NoError(t, msg.Render(conf))
	assert.True(t, msg.HasRecipients())
	assert.True(t, msg.HasContent())
	assert.Contains(t, msg.TextContent, `Your course "Mathematics Grade 4" is now published`)
	assert.Contains(t, msg.TextContent, "http://localhost:3000/courses/c-1")
	assert.Contains(t, msg.TextContent, "The IncludEd team")
	assert.Contains(t, msg.HTMLContent, "Mathematics Grade 4")

	plain := &EmailMessage{BodyStr: "hello"}
	require.NoError(t, plain.Render(conf))
	assert.Equal(t, "hello", plain.TextContent)
	assert.Empty(t, plain.HTMLContent)

	missing := &EmailMessage{TemplateName: "no_such_template"}
	assert.Error(t, missing.Render(conf))
}
