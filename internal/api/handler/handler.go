package handler

import (
	"context"
	"log/slog"

	"github.com/ubernicholi/bravo-bot/internal/api/storage"
	"github.com/ubernicholi/bravo-bot/internal/comfy"
	"github.com/ubernicholi/bravo-bot/internal/indicator"
	"github.com/ubernicholi/bravo-bot/internal/queue"
	"github.com/ubernicholi/bravo-bot/internal/tts"
	"github.com/ubernicholi/bravo-bot/internal/words"
)

// Generator runs one workflow against the generation backend.
type Generator interface {
	Generate(ctx context.Context, kind comfy.MediaKind, wf comfy.Workflow) ([][]byte, error)
}

// Completer produces chat replies for a user message.
type Completer interface {
	Complete(ctx context.Context, userMessage string) ([]string, error)
}

// Speaker synthesizes speech for a text.
type Speaker interface {
	Speak(ctx context.Context, voice tts.Voice, text string) ([]byte, error)
}

// Workflows holds the pre-parsed workflow templates, keyed by generation
// kind. Templates are loaded once at startup and cloned per request.
type Workflows struct {
	Image         comfy.Workflow
	ImageEnhanced comfy.Workflow
	Voice         comfy.Workflow
	Music         comfy.Workflow
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	Queue     *queue.Queue
	Generator Generator
	TextGen   Completer
	TTS       Speaker
	Words     *words.Generator
	Indicator indicator.Emitter
	Store     *storage.Storage
	Workflows *Workflows
}

// GenerationHandler handles generation-related HTTP requests
type GenerationHandler struct {
	logger    *slog.Logger
	queue     *queue.Queue
	generator Generator
	textgen   Completer
	tts       Speaker
	words     *words.Generator
	indicator indicator.Emitter
	store     *storage.Storage
	workflows *Workflows
}

// NewGenerationHandler creates a new GenerationHandler instance
func NewGenerationHandler(deps *Dependencies) *GenerationHandler {
	return &GenerationHandler{
		logger:    deps.Logger,
		queue:     deps.Queue,
		generator: deps.Generator,
		textgen:   deps.TextGen,
		tts:       deps.TTS,
		words:     deps.Words,
		indicator: deps.Indicator,
		store:     deps.Store,
		workflows: deps.Workflows,
	}
}
