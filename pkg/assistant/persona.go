package assistant

import (
	_ "embed"
	"os"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"github.com/pkg/errors"
)

//go:embed persona.tmpl
var defaultPersona string

// PersonaData is what the persona template sees.
type PersonaData struct {
	Language string
	Tools    []string
}

// Persona renders the system prompt for a request.
type Persona struct {
	tmpl *template.Template
}

func NewPersona(text string) (*Persona, error) {
	t, err := template.New("persona").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, errors.Wrap(err, "parse persona template")
	}
	return &Persona{tmpl: t}, nil
}

func DefaultPersona() *Persona {
	p, err := NewPersona(defaultPersona)
	if err != nil {
		panic(err)
	}
	return p
}

// LoadPersona reads a persona template from path, or returns the built-in one
// when path is empty.
func LoadPersona(path string) (*Persona, error) {
	if path == "" {
		return DefaultPersona(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read persona %s", path)
	}
	return NewPersona(string(b))
}

func (p *Persona) Render(data PersonaData) (string, error) {
	var b strings.Builder
	if err := p.tmpl.Execute(&b, data); err != nil {
		return "", errors.Wrap(err, "render persona")
	}
	return strings.TrimSpace(b.String()), nil
}
