package display

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Names of the built-in output templates.
const (
	TemplateHealth   = "health"
	TemplateInfo     = "info"
	TemplateCombat   = "combat"
	TemplateSettings = "settings"
	TemplateFailure  = "failure"
)

var templateFuncs = func() template.FuncMap {
	fm := sprig.TxtFuncMap()
	fm["capitalize"] = Capitalize
	fm["wrap"] = WrapWidth
	return fm
}()

var builtin = template.Must(template.New("display").Funcs(templateFuncs).Parse(`
{{- define "health" -}}
Backend {{ .status | default "unknown" | upper }}
{{- with .uptime }} (up {{ . }}){{ end }}
{{- end -}}

{{- define "info" -}}
{{ .name | default "Game server" }}{{ with .version }} v{{ . }}{{ end }}
{{- range $k, $v := omit . "name" "version" }}
  {{ $k | capitalize }}: {{ $v }}
{{- end }}
{{- end -}}

{{- define "combat" -}}
{{ .playerId | default "player" }}: {{ if .inCombat }}in combat{{ else }}not in combat{{ end }}
{{- with .health }}, health {{ . }}{{ with $.maxHealth }}/{{ . }}{{ end }}{{ end }}
{{- end -}}

{{- define "settings" -}}
Settings ({{ .Path }})
  Last username:  {{ .Settings.LastUsername | default "-" }}
  Remember login: {{ .Settings.RememberLogin }}
  Master volume:  {{ printf "%.0f" (mulf .Settings.MasterVolume 100) }}%
  Music volume:   {{ printf "%.0f" (mulf .Settings.MusicVolume 100) }}%
  Fullscreen:     {{ .Settings.Fullscreen }}
  Resolution:     {{ .Settings.Resolution }}
{{- end -}}

{{- define "failure" -}}
{{ . | capitalize }}
{{- end -}}
`))

// ExpandTemplate expands a template string using the provided data.
// The data can be any struct - templates access fields via {{ .FieldName }}.
func ExpandTemplate(tmplStr string, data any) (string, error) {
	if !strings.Contains(tmplStr, "{{") {
		return tmplStr, nil
	}

	tmpl, err := template.New("").Funcs(templateFuncs).Parse(tmplStr)
	if err != nil {
		return "", fmt.Errorf("parsing template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}

	return buf.String(), nil
}

// Render executes one of the built-in templates and wraps the result to
// DefaultWidth.
func Render(name string, data any) (string, error) {
	tmpl := builtin.Lookup(name)
	if tmpl == nil {
		return "", fmt.Errorf("unknown template %q", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing %s template: %w", name, err)
	}

	return Wrap(buf.String()), nil
}
