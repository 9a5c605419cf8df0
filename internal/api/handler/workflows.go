package handler

import (
	"fmt"
	"math/rand"

	"github.com/ubernicholi/bravo-bot/internal/comfy"
	"github.com/ubernicholi/bravo-bot/internal/config"
)

// Workflow node IDs the builders mutate. These match the template files
// shipped under configs/workflows; changing a template layout means
// changing these too.
const (
	imagePromptNode = "102"
	imageSeedNode   = "100"
	imageSizeNode   = "80"

	voiceTextNode = "95"

	musicPromptNode  = "6"
	musicSeedNode    = "3"
	musicSecondsNode = "11"
)

const (
	voiceSpeaker        = "Pigston_Banker_ill.ogg"
	defaultMusicSeconds = 20
	maxSeed             = 4294967294
)

// resolutionPresets are the named image sizes exposed through the API.
var resolutionPresets = map[string][2]int{
	"portrait":  {512, 768},
	"landscape": {768, 512},
	"square":    {512, 512},
	"hd":        {1024, 768},
	"wide":      {1536, 512},
}

func randomSeed() int64 {
	return rand.Int63n(maxSeed) + 1
}

// resolveResolution turns a preset name or explicit width/height pair into
// concrete dimensions, defaulting to square.
func resolveResolution(preset string, width, height int) (int, int, error) {
	if preset != "" {
		dims, ok := resolutionPresets[preset]
		if !ok {
			return 0, 0, fmt.Errorf("unknown resolution preset %q", preset)
		}
		return dims[0], dims[1], nil
	}

	if width == 0 && height == 0 {
		dims := resolutionPresets["square"]
		return dims[0], dims[1], nil
	}

	for _, dim := range []int{width, height} {
		if dim < config.MinDimension || dim > config.MaxDimension {
			return 0, 0, fmt.Errorf("dimensions must be between %d and %d, got %dx%d",
				config.MinDimension, config.MaxDimension, width, height)
		}
	}

	return width, height, nil
}

// buildImageWorkflow clones the image template and injects prompt, seed and
// canvas size.
func buildImageWorkflow(template comfy.Workflow, prompt string, width, height int) (comfy.Workflow, error) {
	wf, err := template.Clone()
	if err != nil {
		return nil, err
	}

	if err := wf.SetInput(imagePromptNode, "text", prompt); err != nil {
		return nil, err
	}
	if err := wf.SetInput(imageSeedNode, "seed", randomSeed()); err != nil {
		return nil, err
	}
	if err := wf.SetInput(imageSizeNode, "width", width); err != nil {
		return nil, err
	}
	if err := wf.SetInput(imageSizeNode, "height", height); err != nil {
		return nil, err
	}

	return wf, nil
}

// buildVoiceWorkflow clones the voice template and injects the line to speak.
func buildVoiceWorkflow(template comfy.Workflow, text string) (comfy.Workflow, error) {
	wf, err := template.Clone()
	if err != nil {
		return nil, err
	}

	if err := wf.SetInput(voiceTextNode, "text", text); err != nil {
		return nil, err
	}
	if err := wf.SetInput(voiceTextNode, "speaker", voiceSpeaker); err != nil {
		return nil, err
	}

	return wf, nil
}

// buildMusicWorkflow clones the music template and injects prompt, seed and
// clip length.
func buildMusicWorkflow(template comfy.Workflow, prompt string, seconds int) (comfy.Workflow, error) {
	wf, err := template.Clone()
	if err != nil {
		return nil, err
	}

	if seconds <= 0 {
		seconds = defaultMusicSeconds
	}

	if err := wf.SetInput(musicPromptNode, "text", prompt); err != nil {
		return nil, err
	}
	if err := wf.SetInput(musicSeedNode, "seed", randomSeed()); err != nil {
		return nil, err
	}
	if err := wf.SetInput(musicSecondsNode, "seconds", seconds); err != nil {
		return nil, err
	}

	return wf, nil
}
