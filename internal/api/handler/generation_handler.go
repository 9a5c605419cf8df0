package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ubernicholi/bravo-bot/internal/api/domain"
	"github.com/ubernicholi/bravo-bot/internal/api/dto"
	"github.com/ubernicholi/bravo-bot/internal/api/model"
	"github.com/ubernicholi/bravo-bot/internal/comfy"
	"github.com/ubernicholi/bravo-bot/internal/indicator"
	"github.com/ubernicholi/bravo-bot/internal/metrics"
	"github.com/ubernicholi/bravo-bot/internal/queue"
	"github.com/ubernicholi/bravo-bot/internal/tts"
)

const defaultListLimit = 50

// CreateGeneration handles POST /api/v1/generations
func (h *GenerationHandler) CreateGeneration(c *gin.Context) {
	var req dto.CreateGenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	prompt := req.Prompt
	if req.Random {
		prompt = h.words.RandomPrompt()
	}
	if prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Please provide some text, or set random"})
		return
	}

	wf, kind, contentType, err := h.buildWorkflow(&req, prompt)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task := &model.Task{
		TaskID:    uuid.New().String(),
		Kind:      req.Kind,
		Prompt:    prompt,
		Status:    domain.TaskStatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	h.store.CreateTask(task)

	h.enqueueGeneration(task.TaskID, req.Kind, kind, contentType, wf)

	h.logger.Info("Generation accepted",
		slog.String("task_id", task.TaskID),
		slog.String("kind", req.Kind),
		slog.Int("queue_depth", h.queue.Depth()),
	)

	c.JSON(http.StatusAccepted, toGenerationResponse(task))
}

// buildWorkflow selects the template for the request kind and fills in the
// request-specific inputs.
func (h *GenerationHandler) buildWorkflow(req *dto.CreateGenerationRequest, prompt string) (comfy.Workflow, comfy.MediaKind, string, error) {
	switch req.Kind {
	case "image":
		width, height, err := resolveResolution(req.Resolution, req.Width, req.Height)
		if err != nil {
			return nil, "", "", err
		}
		template := h.workflows.Image
		if req.Enhanced {
			template = h.workflows.ImageEnhanced
		}
		wf, err := buildImageWorkflow(template, prompt, width, height)
		if err != nil {
			return nil, "", "", fmt.Errorf("build image workflow: %w", err)
		}
		return wf, comfy.KindImages, "image/png", nil

	case "voice":
		wf, err := buildVoiceWorkflow(h.workflows.Voice, prompt)
		if err != nil {
			return nil, "", "", fmt.Errorf("build voice workflow: %w", err)
		}
		return wf, comfy.KindAudio, "audio/flac", nil

	case "music":
		wf, err := buildMusicWorkflow(h.workflows.Music, prompt, req.Seconds)
		if err != nil {
			return nil, "", "", fmt.Errorf("build music workflow: %w", err)
		}
		return wf, comfy.KindAudio, "audio/flac", nil

	default:
		return nil, "", "", fmt.Errorf("unknown generation kind %q", req.Kind)
	}
}

// enqueueGeneration submits the backend call to the task queue. The handler
// runs under the queue's concurrency cap; everything up to here stays on the
// request path.
func (h *GenerationHandler) enqueueGeneration(taskID, kind string, mediaKind comfy.MediaKind, contentType string, wf comfy.Workflow) {
	h.queue.Enqueue(&queue.Task{
		ID:   taskID,
		Kind: kind,
		Handler: func(ctx context.Context) error {
			h.indicator.SetBusy(indicator.ChannelBot, true)
			defer h.indicator.SetBusy(indicator.ChannelBot, false)

			if err := h.store.MarkRunning(taskID); err != nil {
				return fmt.Errorf("mark running: %w", err)
			}

			start := time.Now()
			h.indicator.SetBusy(indicator.ChannelBackend, true)
			artifacts, err := h.generator.Generate(ctx, mediaKind, wf)
			h.indicator.SetBusy(indicator.ChannelBackend, false)
			if err != nil {
				metrics.GenerationsTotal.WithLabelValues(kind, "failed").Inc()
				return fmt.Errorf("generate %s: %w", kind, err)
			}

			metrics.GenerationsTotal.WithLabelValues(kind, "completed").Inc()
			metrics.GenerationDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

			return h.store.MarkCompleted(taskID, contentType, artifacts)
		},
		OnFailure: func(err error) {
			if markErr := h.store.MarkFailed(taskID, err.Error()); markErr != nil {
				h.logger.Error("Failed to record task failure",
					slog.String("task_id", taskID),
					slog.String("error", markErr.Error()),
				)
			}
		},
	})
}

// GetGeneration handles GET /api/v1/generations/:task_id
func (h *GenerationHandler) GetGeneration(c *gin.Context) {
	task, err := h.store.GetTask(c.Param("task_id"))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		return
	}

	c.JSON(http.StatusOK, toGenerationResponse(task))
}

// GetArtifact handles GET /api/v1/generations/:task_id/artifacts/:index
func (h *GenerationHandler) GetArtifact(c *gin.Context) {
	task, err := h.store.GetTask(c.Param("task_id"))
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get task"})
		return
	}

	if task.Status != domain.TaskStatusCompleted {
		c.JSON(http.StatusConflict, gin.H{"error": "Task is not completed", "status": task.Status})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 || index >= len(task.Artifacts) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Artifact index out of range"})
		return
	}

	c.Data(http.StatusOK, task.ContentType, task.Artifacts[index])
}

// ListGenerations handles GET /api/v1/generations
func (h *GenerationHandler) ListGenerations(c *gin.Context) {
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = parsed
	}

	tasks := h.store.ListTasks(limit)
	resp := dto.ListGenerationsResponse{
		Generations: make([]dto.GenerationResponse, 0, len(tasks)),
	}
	for _, task := range tasks {
		resp.Generations = append(resp.Generations, toGenerationResponse(task))
	}

	c.JSON(http.StatusOK, resp)
}

// Ask handles POST /api/v1/ask. The reply is produced synchronously, but the
// language-model call still goes through the task queue so it cannot overlap
// a running generation.
func (h *GenerationHandler) Ask(c *gin.Context) {
	var req dto.AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	type askResult struct {
		replies []string
		err     error
	}
	done := make(chan askResult, 1)

	h.queue.Enqueue(&queue.Task{
		ID:   uuid.New().String(),
		Kind: "ask",
		Handler: func(ctx context.Context) error {
			h.indicator.SetBusy(indicator.ChannelBot, true)
			defer h.indicator.SetBusy(indicator.ChannelBot, false)

			h.indicator.SetBusy(indicator.ChannelBackend, true)
			replies, err := h.textgen.Complete(ctx, req.Message)
			h.indicator.SetBusy(indicator.ChannelBackend, false)

			done <- askResult{replies: replies, err: err}
			if err != nil {
				return fmt.Errorf("text completion: %w", err)
			}
			return nil
		},
	})

	select {
	case result := <-done:
		if result.err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Text generation failed"})
			return
		}
		c.JSON(http.StatusOK, dto.AskResponse{Replies: result.replies})
	case <-c.Request.Context().Done():
		c.AbortWithStatus(http.StatusGatewayTimeout)
	}
}

// Speak handles POST /api/v1/speak
func (h *GenerationHandler) Speak(c *gin.Context) {
	var req dto.SpeakRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	voice := tts.VoiceFemale
	if req.Voice == "male" {
		voice = tts.VoiceMale
	}

	type speakResult struct {
		audio []byte
		err   error
	}
	done := make(chan speakResult, 1)

	h.queue.Enqueue(&queue.Task{
		ID:   uuid.New().String(),
		Kind: "speak",
		Handler: func(ctx context.Context) error {
			h.indicator.SetBusy(indicator.ChannelBot, true)
			defer h.indicator.SetBusy(indicator.ChannelBot, false)

			audio, err := h.tts.Speak(ctx, voice, req.Text)
			done <- speakResult{audio: audio, err: err}
			if err != nil {
				return fmt.Errorf("speech synthesis: %w", err)
			}
			return nil
		},
	})

	select {
	case result := <-done:
		if result.err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Speech synthesis failed"})
			return
		}
		c.Data(http.StatusOK, "audio/wav", result.audio)
	case <-c.Request.Context().Done():
		c.AbortWithStatus(http.StatusGatewayTimeout)
	}
}

func toGenerationResponse(task *model.Task) dto.GenerationResponse {
	return dto.GenerationResponse{
		TaskID:        task.TaskID,
		Kind:          task.Kind,
		Prompt:        task.Prompt,
		Status:        task.Status,
		Error:         task.Error,
		ArtifactCount: len(task.Artifacts),
		CreatedAt:     task.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     task.UpdatedAt.Format(time.RFC3339),
	}
}
