package main

import (
	"testing"

	"snapgram/docs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseDoc = `
basePath: /api
paths:
  /posts:
    get:
      responses:
        "200": {}
        "401": {}
    post:
      parameters:
        - name: caption
          required: false
      responses:
        "201": {}
  /stories:
    get:
      responses:
        "200": {}
`

func TestCompatibleRevision(t *testing.T) {
	base, err := parseDoc([]byte(baseDoc))
	require.NoError(t, err)

	// JSON is accepted as well, and additions are compatible.
	rev, err := parseDoc([]byte(`{"basePath": "/api", "paths": {` +
		`"/posts": {"get": {"responses": {"200": {}, "401": {}, "429": {}}},` +
		`"post": {"parameters": [{"name": "caption", "required": false}, {"name": "location"}], "responses": {"201": {}}}},` +
		`"/stories": {"get": {"responses": {"200": {}}}},` +
		`"/reports": {"post": {"responses": {"201": {}}}}}}`))
	require.NoError(t, err)

	assert.Empty(t, compare(base, rev))
}

func TestBreakingRevision(t *testing.T) {
	base, err := parseDoc([]byte(baseDoc))
	require.NoError(t, err)

	rev, err := parseDoc([]byte(`
basePath: /v2
paths:
  /posts:
    get:
      responses:
        "200": {}
    post:
      parameters:
        - name: media
          required: true
      responses:
        "201": {}
`))
	require.NoError(t, err)

	assert.Equal(t, []string{
		`basePath changed: "/api" -> "/v2"`,
		"new required parameter: POST /posts -> media",
		"removed path: /stories",
		"removed response code: GET /posts -> 401",
	}, compare(base, rev))
}

func TestParseDocRequiresPaths(t *testing.T) {
	_, err := parseDoc([]byte("swagger: \"2.0\"\n"))
	assert.Error(t, err)
}

func TestCompiledDocsParse(t *testing.T) {
	doc, err := parseDoc([]byte(docs.SwaggerInfo.ReadDoc()))
	require.NoError(t, err)
	assert.Equal(t, "/api", doc.BasePath)
	assert.Contains(t, doc.Paths, "/posts/explore")
	assert.Contains(t, doc.Paths["/posts"], "get")
	assert.Empty(t, compare(doc, doc))
}
