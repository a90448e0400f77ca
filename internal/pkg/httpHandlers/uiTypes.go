package httpHandlers

import (
	"encoding/base64"
	"fmt"
	"time"

	"ollama-webchat/internal/pkg/chatSession"
	"ollama-webchat/internal/pkg/ollama"
	"ollama-webchat/internal/pkg/pullProgress"
)

type UiSessionResponse struct {
	UiSession
	New bool
}

// UiSession carries one chat block to the templates. Message contents are
// base64-encoded; the browser decodes them before rendering.
type UiSession struct {
	UserMessageContent      string
	AssistantMessageContent string
	AttachmentCount         int
	Completed               bool
	Failed                  bool
}

func toUiSession(block chatSession.ChatBlock) UiSession {
	uiSession := UiSession{
		AttachmentCount: len(block.UserImages),
		Completed:       block.Completed,
		Failed:          block.Failed,
	}

	if block.UserMessage != "" {
		uiSession.UserMessageContent = base64.StdEncoding.EncodeToString([]byte(block.UserMessage))
	}

	if block.AssistantMessage != "" {
		uiSession.AssistantMessageContent = base64.StdEncoding.EncodeToString([]byte(block.AssistantMessage))
	}

	return uiSession
}

func ToUiSessionResponse(response chatSession.ChatBlockResponse) UiSessionResponse {
	return UiSessionResponse{
		UiSession: toUiSession(response.ChatBlock),
		New:       response.New,
	}
}

func ToUiSessions(blocks []chatSession.ChatBlock) []UiSession {
	uiSessions := make([]UiSession, len(blocks))
	for index, block := range blocks {
		uiSessions[index] = toUiSession(block)
	}
	return uiSessions
}

type UiModel struct {
	Name       string
	ModifiedAt string
	Size       string
	Selected   bool
}

func ToUiModels(models []ollama.ModelSummary, selected string) []UiModel {
	uiModels := make([]UiModel, len(models))
	for index, model := range models {
		uiModels[index] = UiModel{
			Name:       model.Name,
			ModifiedAt: formatModifiedAt(model.ModifiedAt),
			Size:       formatSize(model.Size),
			Selected:   model.Name == selected,
		}
	}
	return uiModels
}

type UiModelList struct {
	Models        []UiModel
	SelectedModel string
}

type UiModelDetail struct {
	Name              string
	License           string
	Parameters        string
	Template          string
	Format            string
	Family            string
	Families          []string
	ParameterSize     string
	QuantizationLevel string
}

func ToUiModelDetail(name string, detail *ollama.ModelDetail) UiModelDetail {
	return UiModelDetail{
		Name:              name,
		License:           detail.License,
		Parameters:        detail.Parameters,
		Template:          detail.Template,
		Format:            detail.Details.Format,
		Family:            detail.Details.Family,
		Families:          detail.Details.Families,
		ParameterSize:     detail.Details.ParameterSize,
		QuantizationLevel: detail.Details.QuantizationLevel,
	}
}

type UiPullStatus struct {
	Model       string
	StatusText  string
	Percent     int
	Determinate bool
	Terminal    bool
	Failed      bool
	Cleared     bool
}

func ToUiPullStatus(status pullProgress.Status) UiPullStatus {
	uiStatus := UiPullStatus{
		Model:       status.Model,
		StatusText:  status.Event.Status,
		Determinate: status.Determinate,
		Terminal:    status.Terminal,
		Failed:      status.Failed,
		Cleared:     status.Cleared,
	}

	if status.Determinate {
		uiStatus.Percent = int(status.Ratio * 100)
	}
	if status.Event.Error != "" {
		uiStatus.StatusText = status.Event.Error
	}

	return uiStatus
}

func formatModifiedAt(modifiedAt time.Time) string {
	if modifiedAt.IsZero() {
		return ""
	}
	return modifiedAt.Format("2006-01-02 15:04")
}

func formatSize(size int64) string {
	const (
		kilobyte = 1 << 10
		megabyte = 1 << 20
		gigabyte = 1 << 30
	)

	switch {
	case size >= gigabyte:
		return fmt.Sprintf("%.1f GB", float64(size)/gigabyte)
	case size >= megabyte:
		return fmt.Sprintf("%.1f MB", float64(size)/megabyte)
	case size >= kilobyte:
		return fmt.Sprintf("%.1f KB", float64(size)/kilobyte)
	default:
		return fmt.Sprintf("%d B", size)
	}
}
