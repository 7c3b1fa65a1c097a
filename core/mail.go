package core

import (
	"bytes"
	htmltmpl "html/template"
	"net/mail"
	"path"
	"sync"
	texttmpl "text/template"

	"github.com/pkg/errors"

	"github.com/included-edu/included/fs"
)

const emailTemplatesDir = "templates/email"

var (
	templates  = make(map[string]*emailTemplates)
	templateMu sync.Mutex
)

type (
	emailTemplates struct {
		text *texttmpl.Template
		html *htmltmpl.Template
	}

	EmailMessage struct {
		To      []mail.Address
		Cc      []mail.Address
		Bcc     []mail.Address
		Subject string
		BodyStr string // simple text/plain, non-templated content

		// templated contents
		TemplateName string // without ext
		TemplateData interface{}
		TextContent  string
		HTMLContent  string
	}

	ContextData struct {
		AppName         string
		FrontendBaseURL string
		Data            interface{}
	}

	// EmailService is any service that can send emails
	EmailService interface {
		// SendMessages sends messages concurrently
		SendMessages(messages ...*EmailMessage)
	}
)

// getTemplates parses `_base` + `name` once per template name.
func getTemplates(name string, strict bool) (*emailTemplates, error) {
	templateMu.Lock()
	defer templateMu.Unlock()

	if tmpl, ok := templates[name]; ok {
		return tmpl, nil
	}

	text, err := texttmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.txt"), path.Join(emailTemplatesDir, name+".txt"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s.txt", name)
	}
	html, err := htmltmpl.ParseFS(appfs.FS, path.Join(emailTemplatesDir, "_base.gohtml"), path.Join(emailTemplatesDir, name+".gohtml"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s.gohtml", name)
	}
	if strict {
		text = text.Option("missingkey=error")
		html = html.Option("missingkey=error")
	}

	tmpl := &emailTemplates{text: text, html: html}
	templates[name] = tmpl
	return tmpl, nil
}

// Render fills TextContent and HTMLContent from BodyStr or the named templates.
func (m *EmailMessage) Render(conf *Config) error {
	if m.BodyStr != "" {
		m.TextContent = m.BodyStr
		return nil
	} else if m.TemplateName == "" {
		return nil
	}

	tmpl, err := getTemplates(m.TemplateName, conf.Debug || conf.TestMode)
	if err != nil {
		return err
	}
	data := ContextData{
		AppName:         conf.AppName,
		FrontendBaseURL: conf.FrontendBaseURL,
		Data:            m.TemplateData,
	}

	var buff bytes.Buffer
	if err := tmpl.text.ExecuteTemplate(&buff, "_base.txt", data); err != nil {
		return errors.Wrap(err, "rendering text")
	}
	m.TextContent = buff.String()

	buff.Reset()
	if err := tmpl.html.ExecuteTemplate(&buff, "_base.gohtml", data); err != nil {
		return errors.Wrap(err, "rendering html")
	}
	m.HTMLContent = buff.String()
	return nil
}

func (m *EmailMessage) HasRecipients() bool { return len(m.To) > 0 }
func (m *EmailMessage) HasContent() bool    { return (m.TextContent != "") || (m.HTMLContent != "") }
