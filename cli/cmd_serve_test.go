/*
 * Copyright (C) 2026 Simone Pezzano
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as
 * published by the Free Software Foundation, either version 3 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package main

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/theirish81/locmerge"
	"github.com/theirish81/locmerge/parsers"
)

func newTestServer(t *testing.T, files map[string]string) http.Handler {
	t.Helper()
	settings := locmerge.Settings{Format: parsers.FormatAuto}
	require.NoError(t, settings.Validate())
	return newServer(writeFixtures(t, files), settings, slog.New(slog.DiscardHandler))
}

func serve(h http.Handler, method string, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestServer_Translations(t *testing.T) {
	h := newTestServer(t, map[string]string{
		"common.yaml":     "hello: Hello",
		"admin/menu.json": `{"open": "Open <b>now</b>"}`,
	})
	rec := serve(h, http.MethodGet, "/translations", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"hello": "Hello", "admin": {"open": "Open <b>now</b>"}}`, rec.Body.String())

	rec = serve(h, http.MethodGet, "/translations?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello: Hello")

	rec = serve(h, http.MethodGet, "/translations?format=xml", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(h, http.MethodGet, "/keys", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `["admin.open", "hello"]`, rec.Body.String())
}

func TestServer_BrokenFragment(t *testing.T) {
	h := newTestServer(t, map[string]string{"common.yaml": "hello: ["})
	rec := serve(h, http.MethodGet, "/translations", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "common.yaml")
}

func TestServer_MergeKeepGoing(t *testing.T) {
	enc := base64.StdEncoding.EncodeToString
	body, _ := json.Marshal(uploadRequest{Files: map[string]string{
		"a.yaml": enc([]byte("hello: Hello")),
		"b.yaml": enc([]byte("broken: [")),
	}})

	settings := locmerge.Settings{Format: parsers.FormatAuto, KeepGoing: true}
	require.NoError(t, settings.Validate())
	h := newServer(t.TempDir(), settings, slog.New(slog.DiscardHandler))
	rec := serve(h, http.MethodPost, "/merge", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	res := mergeResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, locmerge.Tree{"hello": "Hello"}, res.Tree)
	assert.Equal(t, []string{"b.yaml"}, res.Failed)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "b.yaml")

	rec = serve(newTestServer(t, map[string]string{}), http.MethodPost, "/merge", string(body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestServer_Events(t *testing.T) {
	h := newTestServer(t, map[string]string{
		"a.yaml": "greeting: From A",
		"b.yaml": "greeting: From B",
	})
	rec := serve(h, http.MethodGet, "/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: collision\n")
	assert.Contains(t, body, "event: result\n")
	assert.True(t, strings.HasSuffix(body, "\n\n"))
	last := body[strings.LastIndex(strings.TrimSuffix(body, "\n\n"), "\n\n")+2:]
	assert.Contains(t, last, "event: end\n")
}

func TestServer_Merge(t *testing.T) {
	h := newTestServer(t, map[string]string{})
	enc := base64.StdEncoding.EncodeToString
	body, _ := json.Marshal(uploadRequest{Files: map[string]string{
		"en.yaml":        enc([]byte("hello: Hello")),
		"admin/en.json":  enc([]byte(`{"title": "Admin"}`)),
		"drafts/en.yaml": enc([]byte("hello: Draft")),
	}})
	rec := serve(h, http.MethodPost, "/merge", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	res := mergeResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, locmerge.Tree{
		"hello":  "Hello",
		"admin":  map[string]any{"title": "Admin"},
		"drafts": map[string]any{"hello": "Draft"},
	}, res.Tree)
	assert.Equal(t, []string{"admin/en.json", "drafts/en.yaml", "en.yaml"}, res.Files)

	body, _ = json.Marshal(uploadRequest{Files: map[string]string{
		"en.yaml":     enc([]byte("hello: Hello")),
		".git/x.yaml": enc([]byte("hello: Hidden")),
	}})
	rec = serve(h, http.MethodPost, "/merge", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	res = mergeResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, locmerge.Tree{"hello": "Hello"}, res.Tree)

	body, _ = json.Marshal(uploadRequest{Files: map[string]string{"../etc/en.yaml": enc([]byte("a: b"))}})
	rec = serve(h, http.MethodPost, "/merge", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ = json.Marshal(uploadRequest{Files: map[string]string{"en.yaml": "%%%"}})
	rec = serve(h, http.MethodPost, "/merge", string(body))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
