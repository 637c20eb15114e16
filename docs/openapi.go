package docs

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/swaggo/swag"
)

// JSON objects always open with a quote or a closing brace, so these never
// collide with rendered content.
const (
	leftDelim  = "{["
	rightDelim = "]}"
)

var _ swag.Swagger = (*Document)(nil)

// Operation describes one mounted route for the generated OpenAPI document.
type Operation struct {
	Method      string
	Path        string
	Summary     string
	Tags        []string
	Secured     bool
	RequestBody string
	Response    string
	Status      int
	Parameters  []Parameter
}

type Parameter struct {
	Name     string
	In       string
	Required bool
	Enum     []string
}

// Document accumulates operations as routers are mounted. The paths are
// rendered into a swag template on demand and the info block is filled in
// by swag, the same way generated swag docs are.
type Document struct {
	mu sync.RWMutex

	title       string
	description string
	version     string
	operations  []Operation
	schemas     map[string]any
}

func NewDocument(title, description, version string) *Document {
	return &Document{
		title:       title,
		description: description,
		version:     version,
		schemas:     make(map[string]any),
	}
}

// ReadDoc renders the OpenAPI 3.1 document as JSON.
func (d *Document) ReadDoc() string {
	raw, err := json.Marshal(d.template())
	if err != nil {
		return ""
	}

	d.mu.RLock()
	spec := &swag.Spec{
		Version:          d.version,
		Title:            d.title,
		Description:      d.description,
		InfoInstanceName: swag.Name,
		SwaggerTemplate:  string(raw),
		LeftDelim:        leftDelim,
		RightDelim:       rightDelim,
	}
	d.mu.RUnlock()

	return spec.ReadDoc()
}

func (d *Document) Add(op Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.operations = append(d.operations, op)
}

// AddSchema registers a component schema referenced by name from operations.
func (d *Document) AddSchema(name string, schema map[string]any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.schemas[name] = schema
}

func (d *Document) Operations() []Operation {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]Operation(nil), d.operations...)
}

func (d *Document) template() map[string]any {
	d.mu.RLock()
	defer d.mu.RUnlock()

	paths := map[string]map[string]any{}
	tagSet := map[string]struct{}{}

	for _, op := range d.operations {
		path := openAPIPath(op.Path)
		if paths[path] == nil {
			paths[path] = map[string]any{}
		}

		status := op.Status
		if status == 0 {
			status = 200
		}

		response := map[string]any{"description": "Successful Response"}
		if op.Response != "" {
			response["content"] = jsonContent(op.Response)
		}
		responses := map[string]any{strconv.Itoa(status): response}
		if op.RequestBody != "" || len(op.Parameters) > 0 {
			responses["422"] = map[string]any{
				"description": "Validation Error",
				"content":     jsonContent("HTTPValidationError"),
			}
		}
		if op.Secured {
			responses["401"] = map[string]any{"description": "Not authenticated"}
		}

		operation := map[string]any{
			"summary":     op.Summary,
			"operationId": operationID(op),
			"responses":   responses,
		}
		if len(op.Tags) > 0 {
			operation["tags"] = op.Tags
			for _, tag := range op.Tags {
				tagSet[tag] = struct{}{}
			}
		}
		if op.Secured {
			operation["security"] = []map[string][]string{{"HTTPBearer": {}}}
		}
		if op.RequestBody != "" {
			operation["requestBody"] = map[string]any{
				"required": true,
				"content":  jsonContent(op.RequestBody),
			}
		}

		parameters := pathParameters(op.Path)
		for _, p := range op.Parameters {
			schema := map[string]any{"type": "string"}
			if len(p.Enum) > 0 {
				schema["enum"] = p.Enum
			}
			parameters = append(parameters, map[string]any{
				"name":     p.Name,
				"in":       p.In,
				"required": p.Required,
				"schema":   schema,
			})
		}
		if len(parameters) > 0 {
			operation["parameters"] = parameters
		}

		paths[path][strings.ToLower(op.Method)] = operation
	}

	tags := make([]map[string]string, 0, len(tagSet))
	for tag := range tagSet {
		tags = append(tags, map[string]string{"name": tag})
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i]["name"] < tags[j]["name"] })

	schemas := map[string]any{
		"ValidationError": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"loc":  map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				"msg":  map[string]any{"type": "string"},
				"type": map[string]any{"type": "string"},
			},
		},
		"HTTPValidationError": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"detail": map[string]any{"type": "array", "items": ref("ValidationError")},
			},
		},
	}
	for name, schema := range d.schemas {
		schemas[name] = schema
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":       leftDelim + "escape .Title" + rightDelim,
			"description": leftDelim + "escape .Description" + rightDelim,
			"version":     leftDelim + ".Version" + rightDelim,
		},
		"paths": paths,
		"tags":  tags,
		"components": map[string]any{
			"schemas": schemas,
			"securitySchemes": map[string]any{
				"HTTPBearer": map[string]any{"type": "http", "scheme": "bearer", "bearerFormat": "JWT"},
			},
		},
	}
}

// openAPIPath converts fiber params (/tasks/:id) to OpenAPI templates (/tasks/{id}).
func openAPIPath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") {
			segments[i] = "{" + strings.TrimSuffix(segment[1:], "?") + "}"
		}
	}
	return strings.Join(segments, "/")
}

func pathParameters(path string) []map[string]any {
	var parameters []map[string]any
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ":") {
			parameters = append(parameters, map[string]any{
				"name":     strings.TrimSuffix(segment[1:], "?"),
				"in":       "path",
				"required": true,
				"schema":   map[string]any{"type": "string"},
			})
		}
	}
	return parameters
}

func operationID(op Operation) string {
	replacer := strings.NewReplacer("/", "_", ":", "", "{", "", "}", "", "-", "_")
	return strings.ToLower(op.Method) + strings.TrimRight(replacer.Replace(op.Path), "_")
}

func jsonContent(schema string) map[string]any {
	if strings.HasPrefix(schema, "[]") {
		return map[string]any{"application/json": map[string]any{
			"schema": map[string]any{"type": "array", "items": ref(strings.TrimPrefix(schema, "[]"))},
		}}
	}
	return map[string]any{"application/json": map[string]any{"schema": ref(schema)}}
}

func ref(name string) map[string]any {
	return map[string]any{"$ref": "#/components/schemas/" + name}
}
