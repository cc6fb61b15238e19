// Package template renders outreach subjects and bodies with the Liquid
// template language. Two built-in templates ship with the tool: one for
// leads with an identified decision maker and one without.
package template

import (
	"fmt"
	"strings"
	"sync"

	"github.com/osteele/liquid"

	"github.com/abaplay/outreach/internal/domain"
)

// Engine wraps a liquid engine with parsed-template caching.
type Engine struct {
	engine *liquid.Engine
	cache  sync.Map // map[string]*liquid.Template
}

// Rendered is a personalized subject/body pair ready to send.
type Rendered struct {
	Subject string
	Body    string
}

// New returns an engine with the tool's custom filters registered.
func New() *Engine {
	e := &Engine{engine: liquid.NewEngine()}

	// {{ contact_name | default: "equipe" }}
	e.engine.RegisterFilter("default", func(value interface{}, defaultVal string) interface{} {
		if value == nil {
			return defaultVal
		}
		s := fmt.Sprintf("%v", value)
		if s == "" || s == "<nil>" {
			return defaultVal
		}
		return value
	})

	// {{ contact_name | first_name }}
	e.engine.RegisterFilter("first_name", func(s string) string {
		fields := strings.Fields(s)
		if len(fields) == 0 {
			return s
		}
		return fields[0]
	})

	return e
}

// Render parses (with caching) and renders one template string.
func (e *Engine) Render(tmpl string, bindings map[string]interface{}) (string, error) {
	var parsed *liquid.Template
	if cached, ok := e.cache.Load(tmpl); ok {
		parsed = cached.(*liquid.Template)
	} else {
		var err error
		parsed, err = e.engine.ParseString(tmpl)
		if err != nil {
			return "", fmt.Errorf("parse template: %w", err)
		}
		e.cache.Store(tmpl, parsed)
	}
	out, err := parsed.RenderString(bindings)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return out, nil
}

// Personalize picks the template that fits the lead (decision maker known
// or not) and renders both subject and body.
func (e *Engine) Personalize(lead *domain.Lead) (*Rendered, error) {
	t := templateSemDecisor
	if lead.ContactName != "" {
		t = templateDecisor
	}

	bindings := map[string]interface{}{
		"clinic_name":  lead.ClinicName,
		"contact_name": lead.ContactName,
		"contact_role": lead.ContactRole,
		"city":         extractCity(lead.CityRegion),
	}

	subject, err := e.Render(t.subject, bindings)
	if err != nil {
		return nil, err
	}
	body, err := e.Render(t.body, bindings)
	if err != nil {
		return nil, err
	}
	return &Rendered{Subject: subject, Body: body}, nil
}

// extractCity strips the state suffix from "Cidade - UF".
func extractCity(cityRegion string) string {
	if i := strings.Index(cityRegion, " - "); i >= 0 {
		return strings.TrimSpace(cityRegion[:i])
	}
	return cityRegion
}

type builtinTemplate struct {
	subject string
	body    string
}

var templateDecisor = builtinTemplate{
	subject: `{{ contact_name | first_name }}, relatórios às 22h na {{ clinic_name }}?`,
	body: `Oi {{ contact_name | first_name }},

Sei que quem lidera uma clínica ABA em {{ city | default: "sua cidade" }} conhece bem a rotina: terapeutas terminando relatórios em casa, PEI que consome o fim de semana, e a sensação de que a burocracia está roubando tempo das crianças.

Construímos o ABAplay porque somos analistas do comportamento, cansados de softwares feitos por quem nunca aplicou sessão no chão.

Posso te mostrar em 15 minutos?

---
Gabriel Gomes
ABAplay | Gestão para Clínicas ABA

Responda REMOVER para sair da lista.`,
}

var templateSemDecisor = builtinTemplate{
	subject: `{{ clinic_name }}: quanto tempo sua equipe perde com burocracia?`,
	body: `Oi, equipe {{ clinic_name }}!

Clínicas ABA vivem um paradoxo: quanto mais pacientes atendem, mais tempo perdem com relatórios, PEI e documentação, e menos tempo sobra para as crianças.

Somos analistas do comportamento que construíram o ABAplay justamente para devolver esse tempo.

Posso mostrar como funciona em 15 minutos?

---
Gabriel Gomes
ABAplay | Gestão para Clínicas ABA

Responda REMOVER para sair da lista.`,
}
