package main

import (
	"bytes"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleResult = `{
	"image_metadata": {"width": 64, "height": 64},
	"segments": [
		{
			"id": "s1", "label": "C2", "confidence": 0.97, "is_reference": true,
			"mask": {"points": [[10, 10], [20, 10], [20, 20]], "centroid": {"x": 16, "y": 13}},
			"center_line": [{"x": 10, "y": 10}, {"x": 20, "y": 20}],
			"adjacent_angles": {
				"C3": {"connected_segments": [{"segment_id": "s1", "label": "C2"}, {"segment_id": "s2", "label": "C3"}], "angle": -23.8}
			}
		},
		{
			"id": "s2", "label": "C3", "confidence": 0.91, "is_reference": true,
			"mask": {"points": [[10, 30], [20, 30], [20, 40]], "centroid": {"x": 16, "y": 33}},
			"center_line": [{"x": 10, "y": 30}, {"x": 20, "y": 40}],
			"adjacent_angles": {}
		}
	]
}`

func setupStore(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORAGE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", filepath.Join(dir, "records.db"))
	return dir
}

func writeFixtures(t *testing.T, dir string) (imagePath, resultPath string) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))

	imagePath = filepath.Join(dir, "scan.png")
	require.NoError(t, os.WriteFile(imagePath, buf.Bytes(), 0o600))
	resultPath = filepath.Join(dir, "result.json")
	require.NoError(t, os.WriteFile(resultPath, []byte(sampleResult), 0o600))
	return imagePath, resultPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runApp(t, args...)
	return out, err
}

func runApp(t *testing.T, args ...string) (string, *app, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{}
	cmd := newRootCmd(a)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := execute(a, cmd)
	return out.String(), a, err
}

func TestRecordCommands(t *testing.T) {
	dir := setupStore(t)
	imagePath, resultPath := writeFixtures(t, dir)

	out, err := run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "no saved analyses")

	out, err = run(t, "save", imagePath, "--result", resultPath)
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	require.NotEmpty(t, id)

	out, err = run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "scan.png")
	assert.Contains(t, out, "2 segments")

	out, err = run(t, "show", id, "--hovered", "s1")
	require.NoError(t, err)
	assert.Contains(t, out, "C2-C3")
	assert.Contains(t, out, "23.8°")
	assert.Contains(t, out, "C2 (97.0%, reference)")

	_, err = run(t, "notes", id, "follow-up in 6 months")
	require.NoError(t, err)
	out, err = run(t, "show", id)
	require.NoError(t, err)
	assert.Contains(t, out, "follow-up in 6 months")

	exportDir := t.TempDir()
	out, err = run(t, "export", "--dir", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 1 analyses")

	files, err := filepath.Glob(filepath.Join(exportDir, "spine-analysis-export-*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	_, err = run(t, "clear")
	require.NoError(t, err)

	out, err = run(t, "import", files[0])
	require.NoError(t, err)
	assert.Contains(t, out, "1 analyses after import")

	out, err = run(t, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "0 analyses remaining")

	_, err = run(t, "show", id)
	assert.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	dir := setupStore(t)
	imagePath, _ := writeFixtures(t, dir)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/analyze":
			_, _ = w.Write([]byte(sampleResult))
		case "/health":
			_, _ = w.Write([]byte(`{"status":"healthy"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	t.Setenv("INFERENCE_API_URL", server.URL)

	out, err := run(t, "analyze", imagePath, "--save")
	require.NoError(t, err)
	assert.Contains(t, out, "scan.png")
	assert.Contains(t, out, "saved as ")
	assert.Contains(t, out, "C2-C3")

	out, err = run(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "status: healthy")
	assert.Contains(t, out, server.URL)

	_, err = run(t, "analyze", imagePath, "--model", "resnet")
	assert.Error(t, err)
}

func TestAPIURLCommand(t *testing.T) {
	setupStore(t)
	t.Setenv("INFERENCE_API_URL", "")
	t.Setenv("DEFAULT_API_URL", "http://default:5000")

	out, err := run(t, "api-url")
	require.NoError(t, err)
	assert.Equal(t, "http://default:5000 (default)\n", out)

	out, err = run(t, "api-url", "http://gpu-box:5000")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:5000 (persisted)\n", out)

	out, err = run(t, "api-url")
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:5000 (persisted)\n", out)

	out, err = run(t, "api-url", "--reset")
	require.NoError(t, err)
	assert.Equal(t, "http://default:5000 (persisted)\n", out)

	_, err = run(t, "api-url", "not a url")
	assert.Error(t, err)
}

func TestStoreClosedAfterFailedCommand(t *testing.T) {
	setupStore(t)

	_, a, err := runApp(t, "show", "missing")
	require.Error(t, err)
	assert.NotNil(t, a.records, "store was opened")
	assert.Nil(t, a.area)

	_, a, err = runApp(t, "list")
	require.NoError(t, err)
	assert.Nil(t, a.area)
}
