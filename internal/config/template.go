package config

import (
	"regexp"
	"strings"

	"github.com/opsconductor/conductor/internal/release/state"
)

// artifactURLPattern matches {artifact_url[name]} placeholders.
var artifactURLPattern = regexp.MustCompile(`\{artifact_url\[([^\]]+)\]\}`)

// TemplateVars carries the substitution values available to
// ref_template and inputs_template strings.
type TemplateVars struct {
	Tag         string
	ReleaseType state.ReleaseType
	Artifacts   map[string]state.ArtifactRef
}

// Render substitutes {tag}, {release_type}, and {artifact_url[name]}
// placeholders in a single template string.
func Render(tmpl string, vars TemplateVars) string {
	out := artifactURLPattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		name := artifactURLPattern.FindStringSubmatch(match)[1]
		if ref, ok := vars.Artifacts[name]; ok {
			return ref.DownloadURL
		}
		return ""
	})
	out = strings.ReplaceAll(out, "{tag}", vars.Tag)
	out = strings.ReplaceAll(out, "{release_type}", string(vars.ReleaseType))
	return out
}

// RenderInputs substitutes every value of an inputs_template map.
func RenderInputs(tmpl map[string]string, vars TemplateVars) map[string]string {
	out := make(map[string]string, len(tmpl))
	for k, v := range tmpl {
		out[k] = Render(v, vars)
	}
	return out
}
