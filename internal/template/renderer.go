package template

import (
	"strconv"
	"strings"
)

// Variables carries both binding styles for one render: Positional binds
// {{1}}..{{n}} in order, Named binds {{key}}. Either may be empty.
type Variables struct {
	Positional []string
	Named      map[string]string
}

// Render substitutes placeholders in body. Substitution is deliberately
// lenient: an unmatched placeholder stays verbatim so partial data still
// produces a sendable message.
func Render(body string, vars Variables) string {
	out := body
	for i, v := range vars.Positional {
		out = strings.ReplaceAll(out, "{{"+strconv.Itoa(i+1)+"}}", v)
	}
	for k, v := range vars.Named {
		out = strings.ReplaceAll(out, "{{"+k+"}}", v)
	}
	return out
}

// Component is the provider-side structured parameter group used by
// template-type sends (text sends use the rendered string directly).
type Component struct {
	Type       string      `json:"type"` // header | body | button
	SubType    string      `json:"sub_type,omitempty"`
	Index      string      `json:"index,omitempty"`
	Parameters []Parameter `json:"parameters"`
}

type Parameter struct {
	Type string `json:"type"` // text
	Text string `json:"text"`
}

// Components builds the body parameter group from the positional variables,
// in declaration order. Named variables are render-only: the provider API
// accepts positional parameters for body components.
func Components(vars Variables) []Component {
	if len(vars.Positional) == 0 {
		return nil
	}
	params := make([]Parameter, 0, len(vars.Positional))
	for _, v := range vars.Positional {
		params = append(params, Parameter{Type: "text", Text: v})
	}
	return []Component{{Type: "body", Parameters: params}}
}
