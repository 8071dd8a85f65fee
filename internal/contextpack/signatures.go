// Package contextpack implements the Context Budget Packer (C3): it turns a
// priority-ordered file list into a token-bounded selection, trying full
// content, then signature extraction, then truncation, before giving up and
// excluding a file. Grounded on the teacher's internal/world/ast_treesitter.go
// (tree-sitter parser construction and symbol-node walking), generalized
// from codenerd's fact-graph symbol extraction to emitting elided source
// text rather than Datalog facts.
package contextpack

import (
	"context"
	"regexp"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// sigNodeTypes is, per language, the set of tree-sitter node types that
// constitute a top-level declaration worth keeping in a signature extract.
var sigNodeTypes = map[string]map[string]bool{
	"go": {
		"import_declaration": true, "function_declaration": true,
		"method_declaration": true, "type_declaration": true,
		"const_declaration": true, "var_declaration": true,
	},
	"js": {
		"import_statement": true, "function_declaration": true,
		"class_declaration": true, "export_statement": true,
		"lexical_declaration": true,
	},
	"ts": {
		"import_statement": true, "function_declaration": true,
		"class_declaration": true, "export_statement": true,
		"interface_declaration": true, "type_alias_declaration": true,
		"lexical_declaration": true,
	},
	"py": {
		"import_statement": true, "import_from_statement": true,
		"function_definition": true, "class_definition": true,
	},
	"body": {
		// node types whose body block gets elided to "{ ... }" / ": ..."
		"function_declaration": true, "method_declaration": true,
		"function_definition": true, "class_definition": true,
	},
}

func languageForExt(ext string) (sitterLang func() *sitter.Language, key string, ok bool) {
	switch ext {
	case ".go":
		return golang.GetLanguage, "go", true
	case ".js", ".jsx":
		return javascript.GetLanguage, "js", true
	case ".ts", ".tsx":
		return typescript.GetLanguage, "ts", true
	case ".py":
		return python.GetLanguage, "py", true
	default:
		return nil, "", false
	}
}

// ExtractSignatures returns content reduced to import/using declarations,
// exported top-level declarations, and function/class signatures with
// bodies elided to "{ ... }" (": ..." for Python). Returns (result, true) when the extension is
// tree-sitter-supported; (_, false) otherwise, signaling the caller to use
// the line-heuristic fallback.
func ExtractSignatures(path, ext, content string) (string, bool) {
	getLang, key, ok := languageForExt(strings.ToLower(ext))
	if !ok {
		return "", false
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(getLang())

	src := []byte(content)
	tree, err := parser.ParseCtx(context.Background(), nil, src)
	if err != nil {
		return "", false
	}
	defer tree.Close()

	keep := sigNodeTypes[key]
	elide := sigNodeTypes["body"]

	var out strings.Builder
	var lastEnd uint32

	var nodes []*sitter.Node
	root := tree.RootNode()
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if keep[child.Type()] {
			nodes = append(nodes, child)
		}
	}
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].StartByte() < nodes[j].StartByte() })

	for _, n := range nodes {
		if n.StartByte() < lastEnd {
			continue
		}
		if elide[n.Type()] && key == "py" {
			end := n.EndByte()
			if body := n.ChildByFieldName("body"); body != nil {
				end = body.StartByte()
			}
			out.WriteString(strings.TrimRight(string(src[n.StartByte():end]), " \t\r\n"))
			out.WriteString(" ...\n")
		} else if elide[n.Type()] {
			out.Write(src[n.StartByte():signatureEnd(n, src)])
			out.WriteString(" { ... }\n")
		} else {
			out.Write(src[n.StartByte():n.EndByte()])
			out.WriteString("\n")
		}
		lastEnd = n.EndByte()
	}

	result := out.String()
	if strings.TrimSpace(result) == "" {
		return "", false
	}
	return result, true
}

// signatureEnd finds where a declaration's signature ends and its body
// begins, by locating the first "{" byte offset inside the node's span.
func signatureEnd(n *sitter.Node, src []byte) uint32 {
	start, end := n.StartByte(), n.EndByte()
	for i := start; i < end; i++ {
		if src[i] == '{' {
			return i
		}
	}
	return end
}

// declKeywordPattern matches the common top-level declaration keywords for
// languages without a tree-sitter grammar wired in above (SPEC_FULL §4.3).
var declKeywordPattern = regexp.MustCompile(`^\s*(func|class|interface|type|def|export|public|struct)\b`)

// ExtractSignaturesHeuristic is the fallback extractor: keep lines that
// look like declarations, so the packer never hard-fails on an unsupported
// language.
func ExtractSignaturesHeuristic(content string) string {
	lines := strings.Split(content, "\n")
	var kept []string
	for _, line := range lines {
		if declKeywordPattern.MatchString(line) {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}
