package supervisor

import (
	"bytes"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

const DefaultPrompt = `You are a highly experienced CCIE supervising a team of network operations agents.
Each agent can only be reached through you, and reports back to you when it is done.

Agents in your team:
{{- range .Agents }}
- {{ .Name }}: {{ .Description }}
{{- end }}

Given the latest user message: "{{ .UserMessage }}"
And agent responses: {{ .Responses }}

Decide the next step:
- Pick the agent whose capabilities match the part of the request that is not handled yet.
- Do not pick an agent again once it has answered, unless the request needs more of its work.
- If the agent responses answer the request, or the message is unclear or needs no action, answer "complete".`

type agentInfo struct {
	Name        string
	Description string
}

type promptData struct {
	UserMessage string
	Responses   string
	Agents      []agentInfo
}

func templateBase(name, text string) (*template.Template, error) {
	return template.New(name).Funcs(sprig.FuncMap()).Parse(text)
}

func render(t *template.Template, data promptData) (string, error) {
	buf := bytes.NewBuffer([]byte{})
	if err := t.Execute(buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
