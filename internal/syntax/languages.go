package syntax

import (
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/bash"
	"github.com/smacker/go-tree-sitter/c"
	"github.com/smacker/go-tree-sitter/cpp"
	"github.com/smacker/go-tree-sitter/css"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/html"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/lua"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/ruby"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/toml"
	"github.com/smacker/go-tree-sitter/yaml"
)

// grammar pairs a language name with its tree-sitter grammar constructor.
type grammar struct {
	name string
	lang func() *sitter.Language
}

// grammars maps lowercase file extensions (without the dot) to grammars.
var grammars = map[string]grammar{
	"go":   {"go", golang.GetLanguage},
	"rs":   {"rust", rust.GetLanguage},
	"py":   {"python", python.GetLanguage},
	"js":   {"javascript", javascript.GetLanguage},
	"mjs":  {"javascript", javascript.GetLanguage},
	"c":    {"c", c.GetLanguage},
	"h":    {"c", c.GetLanguage},
	"cc":   {"cpp", cpp.GetLanguage},
	"cpp":  {"cpp", cpp.GetLanguage},
	"hpp":  {"cpp", cpp.GetLanguage},
	"sh":   {"bash", bash.GetLanguage},
	"bash": {"bash", bash.GetLanguage},
	"yaml": {"yaml", yaml.GetLanguage},
	"yml":  {"yaml", yaml.GetLanguage},
	"toml": {"toml", toml.GetLanguage},
	"html": {"html", html.GetLanguage},
	"htm":  {"html", html.GetLanguage},
	"css":  {"css", css.GetLanguage},
	"java": {"java", java.GetLanguage},
	"rb":   {"ruby", ruby.GetLanguage},
	"lua":  {"lua", lua.GetLanguage},
}

// Extension returns the lowercase extension of path without its leading
// dot, or "" if there is none.
func Extension(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// LanguageFor returns the language name for an extension.
func LanguageFor(ext string) (string, bool) {
	g, ok := lookup(ext)
	return g.name, ok
}

func lookup(ext string) (grammar, bool) {
	g, ok := grammars[strings.ToLower(strings.TrimPrefix(ext, "."))]
	return g, ok
}
