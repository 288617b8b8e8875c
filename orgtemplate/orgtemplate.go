// Package orgtemplate implements the organization template language:
// flat text with `{placeholder}` and `{placeholder:modifier}` tokens
// over a closed placeholder set. The scanner below is a smaller cousin
// of datparser's brace-driven lexer (itself adapted from parser/lex.go):
// no nested blocks here, so a single pass collecting literal runs and
// brace spans replaces the full channel-fed state machine, but the same
// "accumulate then emit on delimiter" shape carries over.
package orgtemplate

import (
	"strings"

	"github.com/spacemonkeygo/errors"
)

// TemplateParseError is raised for any unmatched '{' in a template.
var TemplateParseError = errors.NewClass("template_parse_error")

// Context supplies the values available to a rendered template, one
// per closed-set placeholder name.
type Context struct {
	Name        string
	Extension   string
	System      string
	SystemShort string
	Region      string
	RegionShort string
	Languages   string
	CleanName   string
	Category    string
}

func (c Context) field(name string) (string, bool) {
	switch name {
	case "name":
		return c.Name, true
	case "extension":
		return c.Extension, true
	case "system":
		return c.System, true
	case "system_short":
		return c.SystemShort, true
	case "region":
		return c.Region, true
	case "region_short":
		return c.RegionShort, true
	case "languages":
		return c.Languages, true
	case "clean_name":
		return c.CleanName, true
	case "category":
		return c.Category, true
	default:
		return "", false
	}
}

// pathIllegal is the character set `safe` replaces with underscore.
const pathIllegal = `\/:*?"<>|`

func applyModifier(mod, value string) (string, bool) {
	switch mod {
	case "upper":
		return strings.ToUpper(value), true
	case "lower":
		return strings.ToLower(value), true
	case "safe":
		return strings.Map(func(r rune) rune {
			if strings.ContainsRune(pathIllegal, r) {
				return '_'
			}
			return r
		}, value), true
	default:
		return value, false
	}
}

type token struct {
	literal     string
	placeholder string
	modifier    string
	isToken     bool
}

// tokenize splits tmpl into a run of literal and placeholder tokens,
// failing with TemplateParseError on an unmatched '{'.
func tokenize(tmpl string) ([]token, error) {
	var out []token
	var lit strings.Builder

	runes := []rune(tmpl)
	i := 0
	for i < len(runes) {
		r := runes[i]
		if r == '{' {
			end := -1
			for j := i + 1; j < len(runes); j++ {
				if runes[j] == '}' {
					end = j
					break
				}
			}
			if end == -1 {
				return nil, TemplateParseError.New("unmatched '{' at offset %d in template %q", i, tmpl)
			}
			if lit.Len() > 0 {
				out = append(out, token{literal: lit.String()})
				lit.Reset()
			}
			body := string(runes[i+1 : end])
			name, mod, _ := strings.Cut(body, ":")
			out = append(out, token{placeholder: name, modifier: mod, isToken: true})
			i = end + 1
			continue
		}
		lit.WriteRune(r)
		i++
	}
	if lit.Len() > 0 {
		out = append(out, token{literal: lit.String()})
	}
	return out, nil
}

// Render expands tmpl against ctx, returning the rendered string and any
// warnings for unrecognized placeholders (rendered as empty string) or
// unrecognized modifiers (value passed through unchanged).
func Render(tmpl string, ctx Context) (string, []string, error) {
	toks, err := tokenize(tmpl)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	var warnings []string
	for _, t := range toks {
		if !t.isToken {
			sb.WriteString(t.literal)
			continue
		}
		value, known := ctx.field(t.placeholder)
		if !known {
			warnings = append(warnings, "unknown placeholder \""+t.placeholder+"\" rendered empty")
			continue
		}
		if t.modifier != "" {
			modified, okMod := applyModifier(t.modifier, value)
			if !okMod {
				warnings = append(warnings, "unknown modifier \""+t.modifier+"\" on placeholder \""+t.placeholder+"\" left unmodified")
			}
			value = modified
		}
		sb.WriteString(value)
	}
	return sb.String(), warnings, nil
}

// Validate parses tmpl purely for its template_parse_error side effect,
// letting callers check a user-supplied template before planning.
func Validate(tmpl string) error {
	_, err := tokenize(tmpl)
	return err
}
