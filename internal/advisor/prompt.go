package advisor

import (
	"bytes"
	_ "embed"
	"fmt"
	"text/template"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

type promptFile struct {
	Priming  string `yaml:"priming"`
	Question string `yaml:"question"`
}

type promptData struct {
	Profile
	Question string
}

// Prompts renders the priming and question prompts.
type Prompts struct {
	priming  *template.Template
	question *template.Template
}

// LoadPrompts parses the embedded prompt templates.
func LoadPrompts() (*Prompts, error) {
	var f promptFile
	if err := yaml.Unmarshal(promptsYAML, &f); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	priming, err := template.New("priming").Option("missingkey=error").Parse(f.Priming)
	if err != nil {
		return nil, fmt.Errorf("parse priming prompt: %w", err)
	}
	question, err := template.New("question").Option("missingkey=error").Parse(f.Question)
	if err != nil {
		return nil, fmt.Errorf("parse question prompt: %w", err)
	}
	return &Prompts{priming: priming, question: question}, nil
}

// Priming introduces the recognized person to the model.
func (p *Prompts) Priming(profile Profile) (string, error) {
	return render(p.priming, promptData{Profile: profile})
}

// Question embeds the profile and the user's question in one prompt.
func (p *Prompts) Question(profile Profile, question string) (string, error) {
	return render(p.question, promptData{Profile: profile, Question: question})
}

func render(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}
