// Package main checks that a revision of the Snapgram API document keeps
// every path, operation and response code of a base document. Without
// -revision the document compiled into the server binary is used.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"snapgram/docs"

	"gopkg.in/yaml.v3"
)

var supportedMethods = map[string]struct{}{
	"get":     {},
	"put":     {},
	"post":    {},
	"delete":  {},
	"patch":   {},
	"head":    {},
	"options": {},
}

type operation struct {
	Responses map[string]struct{}
	Params    map[string]bool // name -> required
}

type apiDoc struct {
	BasePath string
	Paths    map[string]map[string]operation
}

func main() {
	basePath := flag.String("base", "", "base swagger document (JSON or YAML)")
	revisionPath := flag.String("revision", "", "revision swagger document; defaults to the compiled-in docs")
	flag.Parse()

	if strings.TrimSpace(*basePath) == "" {
		fmt.Fprintln(os.Stderr, "usage: openapi-compat -base <path> [-revision <path>]")
		os.Exit(2)
	}

	base, err := loadFile(*basePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load base doc: %v\n", err)
		os.Exit(1)
	}

	var revision apiDoc
	if *revisionPath == "" {
		revision, err = parseDoc([]byte(docs.SwaggerInfo.ReadDoc()))
	} else {
		revision, err = loadFile(*revisionPath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load revision doc: %v\n", err)
		os.Exit(1)
	}

	issues := compare(base, revision)
	if len(issues) > 0 {
		fmt.Fprintln(os.Stderr, "backward compatibility check failed:")
		for _, issue := range issues {
			fmt.Fprintf(os.Stderr, "- %s\n", issue)
		}
		os.Exit(1)
	}

	fmt.Printf("openapi compatibility check passed (%d paths)\n", len(revision.Paths))
}

func loadFile(path string) (apiDoc, error) {
	// #nosec G304: path comes from CLI flags in a dev tool
	raw, err := os.ReadFile(path)
	if err != nil {
		return apiDoc{}, err
	}
	return parseDoc(raw)
}

// parseDoc reads a swagger 2.0 document. JSON input parses as YAML.
func parseDoc(raw []byte) (apiDoc, error) {
	var doc struct {
		BasePath string                            `yaml:"basePath"`
		Paths    map[string]map[string]interface{} `yaml:"paths"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return apiDoc{}, err
	}
	if doc.Paths == nil {
		return apiDoc{}, errors.New("missing top-level paths field")
	}

	out := apiDoc{BasePath: doc.BasePath, Paths: make(map[string]map[string]operation)}
	for path, methods := range doc.Paths {
		ops := make(map[string]operation)
		for method, raw := range methods {
			method = strings.ToLower(strings.TrimSpace(method))
			if _, ok := supportedMethods[method]; !ok {
				continue
			}
			body, ok := toMap(raw)
			if !ok {
				continue
			}
			op := operation{Responses: map[string]struct{}{}, Params: map[string]bool{}}
			if responses, ok := toMap(body["responses"]); ok {
				for code := range responses {
					if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
						op.Responses[code] = struct{}{}
					}
				}
			}
			if params, ok := body["parameters"].([]interface{}); ok {
				for _, p := range params {
					pm, ok := toMap(p)
					if !ok {
						continue
					}
					name, _ := pm["name"].(string)
					required, _ := pm["required"].(bool)
					if name != "" {
						op.Params[name] = required
					}
				}
			}
			ops[method] = op
		}
		if len(ops) > 0 {
			out.Paths[path] = ops
		}
	}
	return out, nil
}

func toMap(v interface{}) (map[string]interface{}, bool) {
	switch t := v.(type) {
	case map[string]interface{}:
		return t, true
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func compare(base, revision apiDoc) []string {
	var issues []string

	if base.BasePath != revision.BasePath {
		issues = append(issues, fmt.Sprintf("basePath changed: %q -> %q", base.BasePath, revision.BasePath))
	}

	for path, baseOps := range base.Paths {
		revOps, ok := revision.Paths[path]
		if !ok {
			issues = append(issues, fmt.Sprintf("removed path: %s", path))
			continue
		}

		for method, baseOp := range baseOps {
			revOp, ok := revOps[method]
			if !ok {
				issues = append(issues, fmt.Sprintf("removed operation: %s %s", strings.ToUpper(method), path))
				continue
			}

			for code := range baseOp.Responses {
				if _, ok := revOp.Responses[code]; !ok {
					issues = append(issues, fmt.Sprintf(
						"removed response code: %s %s -> %s",
						strings.ToUpper(method), path, strings.ToUpper(code),
					))
				}
			}

			for name, required := range revOp.Params {
				wasRequired, existed := baseOp.Params[name]
				if required && (!existed || !wasRequired) {
					issues = append(issues, fmt.Sprintf(
						"new required parameter: %s %s -> %s",
						strings.ToUpper(method), path, name,
					))
				}
			}
		}
	}

	sort.Strings(issues)
	return issues
}
