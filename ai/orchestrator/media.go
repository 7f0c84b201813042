package orchestrator

import (
	"context"

	"github.com/google/uuid"
)

// UploadMediaRequest registers one media item into an owner's memory ahead
// of (or independent of) a chat turn. Metadata is merged into the stored
// event as-is.
type UploadMediaRequest struct {
	OwnerID  string         `json:"user_id"`
	Kind     MediaKind      `json:"kind"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata"`
}

// UploadMediaResponse reports the stored event and the text extracted from
// the media.
type UploadMediaResponse struct {
	MediaID       string `json:"media_id"`
	ExtractedText string `json:"extracted_text"`
}

// HandleUploadMedia extracts indexable text from the media item and upserts
// it into the owner's memory under a fresh event id. Extraction never fails;
// the memory write does not either, matching the chat pipeline's degradation
// policy.
func (o *Orchestrator) HandleUploadMedia(ctx context.Context, req *UploadMediaRequest) (*UploadMediaResponse, error) {
	mediaID := uuid.NewString()

	var extracted string
	switch req.Kind {
	case MediaImage:
		extracted = o.describeImage(ctx, req.Content)
	case MediaVideo:
		extracted = "Video URL noted for analysis: " + req.Content
	case MediaAudio:
		extracted = "Audio uploaded. Use the speech endpoint to transcribe."
	default:
		extracted = req.Content
	}

	metadata := make(map[string]any, len(req.Metadata)+2)
	for k, v := range req.Metadata {
		metadata[k] = v
	}
	metadata["media_kind"] = string(req.Kind)
	metadata["source"] = "media-upload"

	if _, err := o.memory.Upsert(ctx, req.OwnerID, extracted, metadata, mediaID); err != nil {
		o.logger.Warn("failed to index uploaded media", "owner_id", req.OwnerID, "media_id", mediaID, "error", err)
	}

	return &UploadMediaResponse{MediaID: mediaID, ExtractedText: extracted}, nil
}
