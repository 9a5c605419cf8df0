package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubernicholi/bravo-bot/internal/comfy"
)

func TestResolveResolution(t *testing.T) {
	tests := []struct {
		name       string
		preset     string
		width      int
		height     int
		wantWidth  int
		wantHeight int
		wantErr    bool
	}{
		{name: "default is square", wantWidth: 512, wantHeight: 512},
		{name: "portrait preset", preset: "portrait", wantWidth: 512, wantHeight: 768},
		{name: "landscape preset", preset: "landscape", wantWidth: 768, wantHeight: 512},
		{name: "hd preset", preset: "hd", wantWidth: 1024, wantHeight: 768},
		{name: "wide preset", preset: "wide", wantWidth: 1536, wantHeight: 512},
		{name: "unknown preset", preset: "cinema", wantErr: true},
		{name: "explicit dimensions", width: 640, height: 640, wantWidth: 640, wantHeight: 640},
		{name: "width below minimum", width: 128, height: 512, wantErr: true},
		{name: "height above maximum", width: 512, height: 2048, wantErr: true},
		{name: "bounds are inclusive", width: 256, height: 1536, wantWidth: 256, wantHeight: 1536},
		{name: "preset wins over dimensions", preset: "portrait", width: 9999, height: 9999, wantWidth: 512, wantHeight: 768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			width, height, err := resolveResolution(tt.preset, tt.width, tt.height)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWidth, width)
			assert.Equal(t, tt.wantHeight, height)
		})
	}
}

func TestBuildImageWorkflow_DoesNotMutateTemplate(t *testing.T) {
	template := comfy.Workflow{
		"102": comfy.Node{"inputs": map[string]any{"text": "template"}},
		"100": comfy.Node{"inputs": map[string]any{"seed": float64(0)}},
		"80":  comfy.Node{"inputs": map[string]any{"width": float64(0), "height": float64(0)}},
	}

	wf, err := buildImageWorkflow(template, "a red chair", 768, 512)
	require.NoError(t, err)

	built := wf["102"]["inputs"].(map[string]any)
	assert.Equal(t, "a red chair", built["text"])

	original := template["102"]["inputs"].(map[string]any)
	assert.Equal(t, "template", original["text"], "template was mutated")
}

func TestBuildImageWorkflow_MissingNode(t *testing.T) {
	template := comfy.Workflow{
		"1": comfy.Node{"inputs": map[string]any{}},
	}

	_, err := buildImageWorkflow(template, "x", 512, 512)
	require.Error(t, err)
}

func TestBuildMusicWorkflow_SecondsClamp(t *testing.T) {
	template := comfy.Workflow{
		"6":  comfy.Node{"inputs": map[string]any{"text": ""}},
		"3":  comfy.Node{"inputs": map[string]any{"seed": float64(0)}},
		"11": comfy.Node{"inputs": map[string]any{"seconds": float64(0)}},
	}

	wf, err := buildMusicWorkflow(template, "jazz", 0)
	require.NoError(t, err)
	assert.Equal(t, defaultMusicSeconds, wf["11"]["inputs"].(map[string]any)["seconds"])

	wf, err = buildMusicWorkflow(template, "jazz", 45)
	require.NoError(t, err)
	assert.Equal(t, 45, wf["11"]["inputs"].(map[string]any)["seconds"])
}

func TestRandomSeed_Range(t *testing.T) {
	for i := 0; i < 1000; i++ {
		seed := randomSeed()
		assert.GreaterOrEqual(t, seed, int64(1))
		assert.LessOrEqual(t, seed, int64(maxSeed))
	}
}
