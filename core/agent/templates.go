package agent

import (
	"bytes"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
)

// DefaultPrompt is used when an agent is configured without a prompt.
const DefaultPrompt = `You are a helpful network operations assistant. Use the tools available to you to complete the task.

Question:
{{.Messages}}`

func templateBase(templateName, templatetext string) (*template.Template, error) {
	return template.New(templateName).Funcs(sprig.FuncMap()).Parse(templatetext)
}

type promptData struct {
	Name      string
	Messages  string
	Responses map[string]string
	Tools     []string
	Time      string
}

func renderPrompt(name, templ string, data promptData) (string, error) {
	t, err := templateBase(name, templ)
	if err != nil {
		return "", err
	}
	data.Time = time.Now().UTC().Format(time.RFC1123)

	prompt := bytes.NewBuffer([]byte{})
	if err := t.Execute(prompt, data); err != nil {
		return "", err
	}
	return prompt.String(), nil
}
