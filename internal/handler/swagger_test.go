package handler

import (
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeOpenAPI3Spec(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var spec OpenAPI3Spec
	decodeJSON(t, rec, &spec)
	assert.Equal(t, "3.0.3", spec.OpenAPI)
	assert.Equal(t, "Fortuna Vault API", spec.Info["title"])
	require.Len(t, spec.Servers, 1)
	assert.Equal(t, "http://example.com/api/v1", spec.Servers[0].URL)

	schemas, ok := spec.Components["schemas"].(map[string]interface{})
	require.True(t, ok)
	assert.Contains(t, schemas, "handler.ProblemDetails")

	deposit := spec.Paths["/ledger/deposit"].(map[string]interface{})["post"].(map[string]interface{})
	assert.NotContains(t, deposit, "parameters")
	assert.NotContains(t, deposit, "consumes")
	body := deposit["requestBody"].(map[string]interface{})
	content := body["content"].(map[string]interface{})["application/json"].(map[string]interface{})
	assert.Equal(t, "#/components/schemas/handler.MovementRequest", content["schema"].(map[string]interface{})["$ref"])

	fund := spec.Paths["/goals/{id}/fund"].(map[string]interface{})["post"].(map[string]interface{})
	require.Contains(t, fund, "requestBody")
	params := fund["parameters"].([]interface{})
	require.Len(t, params, 1)
	id := params[0].(map[string]interface{})
	assert.Equal(t, "path", id["in"])
	assert.Equal(t, "integer", id["schema"].(map[string]interface{})["type"])
}

func TestOpenAPIDocumentsEveryRoute(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var spec OpenAPI3Spec
	decodeJSON(t, rec, &spec)

	param := regexp.MustCompile(`:(\w+)`)
	for _, route := range s.e.Routes() {
		if !strings.HasPrefix(route.Path, "/api/v1") {
			continue
		}
		path := param.ReplaceAllString(strings.TrimPrefix(route.Path, "/api/v1"), "{$1}")
		methods, ok := spec.Paths[path].(map[string]interface{})
		if assert.True(t, ok, "undocumented path %s", path) {
			assert.Contains(t, methods, strings.ToLower(route.Method), "undocumented %s %s", route.Method, path)
		}
	}
}

func TestSwaggerUIServesDoc(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/swagger/doc.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"swagger": "2.0"`)
	assert.Contains(t, rec.Body.String(), `"basePath": "/api/v1"`)
}

func TestTransformRefs(t *testing.T) {
	in := map[string]interface{}{
		"schema": map[string]interface{}{"$ref": "#/definitions/domain.Goal"},
		"parameters": []interface{}{
			map[string]interface{}{"name": "page", "in": "query", "type": "integer", "description": "Page number"},
		},
	}

	out := transformRefs(in).(map[string]interface{})
	assert.Equal(t, "#/components/schemas/domain.Goal", out["schema"].(map[string]interface{})["$ref"])

	page := out["parameters"].([]interface{})[0].(map[string]interface{})
	assert.NotContains(t, page, "type")
	assert.Equal(t, map[string]interface{}{"type": "integer"}, page["schema"])
}
