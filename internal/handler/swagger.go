package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/fortuna/vault-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

// OpenAPI3Spec represents an OpenAPI 3.0 spec structure
type OpenAPI3Spec struct {
	OpenAPI    string                 `json:"openapi"`
	Info       map[string]interface{} `json:"info"`
	Servers    []Server               `json:"servers"`
	Paths      map[string]interface{} `json:"paths"`
	Components map[string]interface{} `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

// transformRefs recursively rewrites $ref from #/definitions/ to #/components/schemas/
// and converts Swagger 2.0 parameters to OpenAPI 3.0 format
func transformRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		result := make(map[string]interface{})

		// Parameter objects carry both "in" and "name"
		if _, hasIn := v["in"]; hasIn {
			if _, hasName := v["name"]; hasName {
				return transformParameter(v)
			}
		}

		for key, value := range v {
			if key == "$ref" {
				if ref, ok := value.(string); ok {
					result[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				} else {
					result[key] = value
				}
			} else {
				result[key] = transformRefs(value)
			}
		}
		return result
	case []interface{}:
		result := make([]interface{}, len(v))
		for i, item := range v {
			result[i] = transformRefs(item)
		}
		return result
	default:
		return data
	}
}

// transformParameter converts a Swagger 2.0 parameter to OpenAPI 3.0 format
func transformParameter(param map[string]interface{}) map[string]interface{} {
	result := make(map[string]interface{})

	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			result[field] = val
		}
	}

	// Body parameters keep their schema; transformOperations lifts them into requestBody
	if param["in"] == "body" {
		result["schema"] = transformRefs(param["schema"])
		return result
	}

	schema := make(map[string]interface{})
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items"} {
		if val, ok := param[field]; ok {
			if field == "items" {
				schema[field] = transformRefs(val)
			} else {
				schema[field] = val
			}
		}
	}

	if len(schema) > 0 {
		result["schema"] = schema
	}

	return result
}

// transformOperations moves body parameters of every operation into an
// OpenAPI 3.0 requestBody and drops the 2.0-only consumes/produces lists
func transformOperations(paths map[string]interface{}) map[string]interface{} {
	for _, item := range paths {
		methods, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		for _, raw := range methods {
			op, ok := raw.(map[string]interface{})
			if !ok {
				continue
			}
			delete(op, "consumes")
			delete(op, "produces")

			params, _ := op["parameters"].([]interface{})
			kept := params[:0]
			for _, p := range params {
				param, _ := p.(map[string]interface{})
				if param["in"] != "body" {
					kept = append(kept, param)
					continue
				}
				op["requestBody"] = map[string]interface{}{
					"description": param["description"],
					"required":    param["required"],
					"content": map[string]interface{}{
						echo.MIMEApplicationJSON: map[string]interface{}{"schema": param["schema"]},
					},
				}
			}
			if len(kept) == 0 {
				delete(op, "parameters")
			} else {
				op["parameters"] = kept
			}
		}
	}
	return paths
}

// ServeOpenAPI3Spec serves the swagger document converted to OpenAPI 3.0,
// with the requesting host as the server
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read swagger doc")
	}

	var swagger2 map[string]interface{}
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return NewInternalError(c, "Failed to parse swagger doc")
	}

	info, _ := swagger2["info"].(map[string]interface{})

	paths, _ := swagger2["paths"].(map[string]interface{})
	transformed, _ := transformRefs(paths).(map[string]interface{})
	transformedPaths := transformOperations(transformed)

	components := make(map[string]interface{})
	if definitions, ok := swagger2["definitions"].(map[string]interface{}); ok {
		components["schemas"] = transformRefs(definitions)
	}

	openapi3 := OpenAPI3Spec{
		OpenAPI: "3.0.3",
		Info:    info,
		Servers: []Server{
			{
				URL:         c.Scheme() + "://" + c.Request().Host + docs.SwaggerInfo.BasePath,
				Description: "This server",
			},
		},
		Paths:      transformedPaths,
		Components: components,
	}

	return c.JSON(http.StatusOK, openapi3)
}
