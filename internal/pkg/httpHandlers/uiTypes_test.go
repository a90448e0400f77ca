package httpHandlers

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ollama-webchat/internal/pkg/chatSession"
	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/pullProgress"
)

func TestToUiSessionEncodesContents(t *testing.T) {
	block := chatSession.ChatBlock{
		UserMessage:      "hello <b>there</b>",
		UserImages:       []string{"aW1hZ2U=", "b3RoZXI="},
		AssistantMessage: "hi",
		Completed:        true,
	}

	uiSession := toUiSession(block)

	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hello <b>there</b>")), uiSession.UserMessageContent)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("hi")), uiSession.AssistantMessageContent)
	assert.Equal(t, 2, uiSession.AttachmentCount)
	assert.True(t, uiSession.Completed)
	assert.False(t, uiSession.Failed)
}

func TestToUiModelsMarksSelection(t *testing.T) {
	models := []ollama.ModelSummary{
		{Name: "llama3.2:latest", Size: 2 * (1 << 30), ModifiedAt: time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)},
		{Name: "qwen3:8b", Size: 512 * (1 << 20)},
	}

	uiModels := ToUiModels(models, "qwen3:8b")

	assert.Len(t, uiModels, 2)
	assert.False(t, uiModels[0].Selected)
	assert.True(t, uiModels[1].Selected)
	assert.Equal(t, "2.0 GB", uiModels[0].Size)
	assert.Equal(t, "512.0 MB", uiModels[1].Size)
	assert.Equal(t, "2025-03-01 10:30", uiModels[0].ModifiedAt)
	assert.Equal(t, "", uiModels[1].ModifiedAt)
}

func TestToUiPullStatusDeterminatePercent(t *testing.T) {
	status := pullProgress.Status{
		Model:       "llama3.2",
		Event:       ollama.PullProgressEvent{Status: "downloading", Completed: 50, Total: 200},
		Ratio:       0.25,
		Determinate: true,
	}

	uiStatus := ToUiPullStatus(status)

	assert.Equal(t, 25, uiStatus.Percent)
	assert.True(t, uiStatus.Determinate)
	assert.Equal(t, "downloading", uiStatus.StatusText)
}

func TestToUiPullStatusErrorOverridesStatusText(t *testing.T) {
	status := pullProgress.Status{
		Model:    "llama3.2",
		Event:    ollama.PullProgressEvent{Status: "pulling manifest", Error: "pull model manifest: file does not exist"},
		Terminal: true,
		Failed:   true,
	}

	uiStatus := ToUiPullStatus(status)

	assert.Equal(t, "pull model manifest: file does not exist", uiStatus.StatusText)
	assert.True(t, uiStatus.Failed)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.5 KB", formatSize(1536))
	assert.Equal(t, "4.7 GB", formatSize(5046586572))
}
