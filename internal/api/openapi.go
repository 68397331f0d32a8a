package api

import (
	"encoding/json"
	"net/http"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	docTitle       = "Agents API"
	docDescription = "Agents API Information"
	docVersion     = "1.0.0"
)

type openAPIDocument struct {
	OpenAPI string                                 `json:"openapi" yaml:"openapi"`
	Info    openAPIInfo                            `json:"info" yaml:"info"`
	Paths   map[string]map[string]openAPIOperation `json:"paths" yaml:"paths"`
}

type openAPIInfo struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	Version     string `json:"version" yaml:"version"`
}

type openAPIOperation struct {
	OperationID string                     `json:"operationId" yaml:"operationId"`
	Summary     string                     `json:"summary" yaml:"summary"`
	Tags        []string                   `json:"tags,omitempty" yaml:"tags,omitempty"`
	Parameters  []openAPIParameter         `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	RequestBody *openAPIBody               `json:"requestBody,omitempty" yaml:"requestBody,omitempty"`
	Responses   map[string]openAPIResponse `json:"responses" yaml:"responses"`
}

type openAPIParameter struct {
	Name     string         `json:"name" yaml:"name"`
	In       string         `json:"in" yaml:"in"`
	Required bool           `json:"required" yaml:"required"`
	Schema   map[string]any `json:"schema" yaml:"schema"`
}

type openAPIBody struct {
	Required bool                      `json:"required" yaml:"required"`
	Content  map[string]openAPIContent `json:"content" yaml:"content"`
}

type openAPIResponse struct {
	Description string                    `json:"description" yaml:"description"`
	Content     map[string]openAPIContent `json:"content,omitempty" yaml:"content,omitempty"`
}

type openAPIContent struct {
	Schema map[string]any `json:"schema" yaml:"schema"`
}

var pathParam = regexp.MustCompile(`\{([^}:]+)(?::[^}]*)?\}`)

var (
	decimalType     = reflect.TypeOf(decimal.Decimal{})
	nullDecimalType = reflect.TypeOf(decimal.NullDecimal{})
	rawJSONType     = reflect.TypeOf(json.RawMessage(nil))
)

// buildOpenAPI 根据路由表生成 OpenAPI 3 文档。
func buildOpenAPI(routes []route) openAPIDocument {
	doc := openAPIDocument{
		OpenAPI: "3.0.3",
		Info:    openAPIInfo{Title: docTitle, Description: docDescription, Version: docVersion},
		Paths:   make(map[string]map[string]openAPIOperation),
	}
	for _, rt := range routes {
		op := openAPIOperation{
			OperationID: rt.name,
			Summary:     rt.summary,
			Responses:   make(map[string]openAPIResponse, len(rt.responses)),
		}
		if rt.tag != "" {
			op.Tags = []string{rt.tag}
		}
		for _, m := range pathParam.FindAllStringSubmatch(rt.path, -1) {
			op.Parameters = append(op.Parameters, openAPIParameter{
				Name: m[1], In: "path", Required: true, Schema: map[string]any{"type": "string"},
			})
		}
		for _, name := range rt.query {
			op.Parameters = append(op.Parameters, openAPIParameter{
				Name: name, In: "query", Schema: map[string]any{"type": "string"},
			})
		}
		if rt.request != nil {
			op.RequestBody = &openAPIBody{
				Required: true,
				Content: map[string]openAPIContent{
					"application/json": {Schema: requestSchema(reflect.TypeOf(rt.request))},
				},
			}
		}
		for _, resp := range rt.responses {
			out := openAPIResponse{Description: resp.description}
			contentType := resp.contentType
			if contentType == "" {
				contentType = "application/json"
			}
			switch {
			case resp.body != nil:
				out.Content = map[string]openAPIContent{contentType: {Schema: schemaOf(reflect.TypeOf(resp.body))}}
			case contentType != "application/json":
				out.Content = map[string]openAPIContent{contentType: {Schema: map[string]any{"type": "string"}}}
			}
			op.Responses[strconv.Itoa(resp.status)] = out
		}

		path := pathParam.ReplaceAllString(rt.path, "{$1}")
		if doc.Paths[path] == nil {
			doc.Paths[path] = make(map[string]openAPIOperation)
		}
		doc.Paths[path][strings.ToLower(rt.method)] = op
	}
	return doc
}

// requestSchema 将请求体的全部字段标记为必填。
func requestSchema(t reflect.Type) map[string]any {
	schema := schemaOf(t)
	props, _ := schema["properties"].(map[string]any)
	required := make([]string, 0, len(props))
	for name, prop := range props {
		required = append(required, name)
		if m, ok := prop.(map[string]any); ok {
			delete(m, "nullable")
		}
	}
	sort.Strings(required)
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func schemaOf(t reflect.Type) map[string]any {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch {
	case t == decimalType:
		return map[string]any{"type": "number"}
	case t == nullDecimalType:
		return map[string]any{"type": "number", "nullable": true}
	case t == rawJSONType:
		return map[string]any{"type": "object"}
	}
	switch t.Kind() {
	case reflect.String:
		return map[string]any{"type": "string"}
	case reflect.Bool:
		return map[string]any{"type": "boolean"}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return map[string]any{"type": "integer"}
	case reflect.Float32, reflect.Float64:
		return map[string]any{"type": "number"}
	case reflect.Slice, reflect.Array:
		return map[string]any{"type": "array", "items": schemaOf(t.Elem())}
	case reflect.Struct:
		props := make(map[string]any)
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if !field.IsExported() {
				continue
			}
			name := strings.Split(field.Tag.Get("json"), ",")[0]
			if name == "-" {
				continue
			}
			if name == "" {
				name = field.Name
			}
			prop := schemaOf(field.Type)
			if field.Type.Kind() == reflect.Pointer {
				prop["nullable"] = true
			}
			props[name] = prop
		}
		return map[string]any{"type": "object", "properties": props}
	default:
		return map[string]any{}
	}
}

type docCache struct {
	once sync.Once
	json []byte
	yaml []byte
	err  error
}

func (s *Server) docs() ([]byte, []byte, error) {
	s.docCache.once.Do(func() {
		doc := buildOpenAPI(s.routes())
		if s.docCache.json, s.docCache.err = json.MarshalIndent(doc, "", "  "); s.docCache.err != nil {
			return
		}
		s.docCache.yaml, s.docCache.err = yaml.Marshal(doc)
	})
	return s.docCache.json, s.docCache.yaml, s.docCache.err
}

func (s *Server) handleDocsJSON(w http.ResponseWriter, r *http.Request) {
	body, _, err := s.docs()
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRawJSON(w, http.StatusOK, body)
}

func (s *Server) handleDocsYAML(w http.ResponseWriter, r *http.Request) {
	_, body, err := s.docs()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
