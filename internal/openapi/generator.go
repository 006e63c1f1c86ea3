package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Generate builds an OpenAPI 3.1 description of routes. Access requirements
// are recorded on each operation under the x-access extension.
func Generate(version, baseURL string, routes []Route) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "JET IPTV",
			Description: "IPTV front-end: accounts, sessions, catalog browsing and user administration.",
			Version:     version,
		},
	}
	if baseURL != "" {
		doc.Servers = openapi3.Servers{{URL: baseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["sessionCookie"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			In:          "cookie",
			Name:        "jetiptv_session",
			Description: "HS256-signed session cookie issued by POST /login.",
		},
	}

	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
	doc.Components.Schemas["HealthResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"status": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"checks": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
			},
		},
	}

	doc.Paths = openapi3.NewPaths()
	for _, rt := range routes {
		item := doc.Paths.Value(rt.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(rt.Path, item)
		}
		item.SetOperation(rt.Method, operation(rt))
	}

	return doc
}

func operation(rt Route) *openapi3.Operation {
	op := &openapi3.Operation{
		OperationID: operationID(rt),
		Summary:     rt.Summary,
		Tags:        []string{rt.Tag},
		Responses:   responses(rt),
	}

	if len(rt.Access) > 0 {
		op.Security = &openapi3.SecurityRequirements{{"sessionCookie": {}}}
		op.Extensions = map[string]interface{}{"x-access": rt.Access}
	}

	for _, p := range rt.PathParams {
		schema := openapi3.NewStringSchema()
		if p == "id" {
			schema = openapi3.NewInt64Schema()
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(p).WithSchema(schema),
		})
	}
	for _, q := range rt.Query {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(q).WithSchema(openapi3.NewStringSchema()),
		})
	}

	if len(rt.Form) > 0 {
		schema := openapi3.NewObjectSchema()
		for _, f := range rt.Form {
			schema.WithProperty(f.Name, fieldSchema(f.Type))
			if f.Required {
				schema.Required = append(schema.Required, f.Name)
			}
		}
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().WithRequired(true).WithContent(openapi3.Content{
				"application/x-www-form-urlencoded": &openapi3.MediaType{
					Schema: &openapi3.SchemaRef{Value: schema},
				},
			}),
		}
	}

	return op
}

func fieldSchema(t string) *openapi3.Schema {
	switch t {
	case "boolean":
		return openapi3.NewBoolSchema()
	case "number":
		return openapi3.NewFloat64Schema()
	default:
		return openapi3.NewStringSchema()
	}
}

// responses builds the response map for a route. Guarded routes can always
// answer with a 303 redirect to the login or index page.
func responses(rt Route) *openapi3.Responses {
	out := openapi3.NewResponses()

	for _, kind := range rt.Responses {
		switch kind {
		case KindHTML:
			out.Set("200", htmlResponse("HTML page"))
		case KindM3U:
			desc := "Extended M3U playlist"
			out.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
				Description: &desc,
				Content: openapi3.Content{
					"audio/x-mpegurl": &openapi3.MediaType{Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}},
				},
			}})
		case KindRedirect:
			out.Set("303", redirectResponse("Redirect carrying a flash message"))
		case KindJSON:
			desc := "JSON document"
			ref := "#/components/schemas/HealthResponse"
			if rt.Path == "/openapi.json" {
				ref = ""
			}
			schema := openapi3.NewSchemaRef(ref, openapi3.NewObjectSchema())
			out.Set("200", &openapi3.ResponseRef{Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(schema),
			}})
			if rt.Path == "/readyz" {
				unavailable := "Store unreachable"
				out.Set("503", &openapi3.ResponseRef{Value: &openapi3.Response{
					Description: &unavailable,
					Content:     openapi3.NewContentWithJSONSchemaRef(schema),
				}})
			}
		}
	}

	if len(rt.Access) > 0 && out.Value("303") == nil {
		out.Set("303", redirectResponse("Access denied; redirected with a flash message"))
	}
	if rt.Path == "/register" {
		notFound := "Registration is disabled"
		out.Set("404", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &notFound}})
	}
	if rt.Path == "/login" && rt.Method == "POST" {
		tooMany := "Too many login attempts"
		out.Set("429", &openapi3.ResponseRef{Value: &openapi3.Response{Description: &tooMany}})
	}

	return out
}

func htmlResponse(desc string) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &desc,
		Content: openapi3.Content{
			"text/html": &openapi3.MediaType{Schema: &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}},
		},
	}}
}

func redirectResponse(desc string) *openapi3.ResponseRef {
	locDesc := "Redirect target"
	return &openapi3.ResponseRef{Value: &openapi3.Response{
		Description: &desc,
		Headers: openapi3.Headers{
			"Location": &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
				Description: locDesc,
				Schema:      &openapi3.SchemaRef{Value: openapi3.NewStringSchema()},
			}}},
		},
	}}
}

// operationID derives a stable camelCase id such as "postAdminToggle_premiumId".
func operationID(rt Route) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(rt.Method))
	for _, part := range strings.FieldsFunc(rt.Path, func(r rune) bool { return r == '/' || r == '.' || r == '{' || r == '}' }) {
		b.WriteString(capitalize(part))
	}
	if rt.Path == "/" {
		b.WriteString("Index")
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
