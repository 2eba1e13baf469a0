package relay

import (
	"errors"
	"fmt"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/extraction"
	"mediarelay/internal/link"
	"mediarelay/internal/media"
	"mediarelay/internal/optimize"
)

// ErrSecondaryActionFailure reports a follow-up action that could not complete.
var ErrSecondaryActionFailure = errors.New("secondary action failed")

const (
	MessageGreeting = "Hello! Send me an Instagram link (reel/post/carousel).\n" +
		"Features:\n" +
		"- Smart quality optimization\n" +
		"- Photo & video support\n" +
		"- Audio extraction\n" +
		"- Auto compression"
	MessagePrompt          = "Send me an Instagram link (reel/post/carousel)."
	MessageBusy            = "Still processing your previous link. Please wait."
	MessageDownloading     = "Downloading from Instagram..."
	MessageStillWorking    = "Still working on it, large media takes a while..."
	MessageDone            = "Done!"
	MessageDownloadFailed  = "Download failed. Try another link."
	MessageNoMedia         = "No media found."
	MessageArtifactExpired = "Audio option expired."
	MessageArtifactMissing = "The video is no longer available."
	MessageAudioFailed     = "Could not extract audio from this video."
	MessageAudioSending    = "Audio extracted. Sending..."
	MessageDiscarded       = "Video discarded."
	MessageUnknownAction   = "Unknown action."
	MessageNotYours        = "This button belongs to someone else's video."
	MessageSendFailed      = "Could not deliver a media file."
	MessageGenericFailure  = "Something went wrong. Please try again."
)

// ProcessingMessage announces how many items a run will deliver.
func ProcessingMessage(count int) string {
	return fmt.Sprintf("Processing %d media file(s)...", count)
}

// OversizeMessage reports media that would not fit after compression.
func OversizeMessage(kind media.Kind, sizeMB float64) string {
	label := "Video"
	if kind == media.KindPhoto {
		label = "Photo"
	}
	return fmt.Sprintf("%s too large (%.1f MB) after compression.", label, sizeMB)
}

// UserMessage maps err to the short notice shown to the requester. Internal
// detail never leaks into the result.
func UserMessage(err error) string {
	var oversize *optimize.OversizeError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, link.ErrLinkNotRecognized):
		return MessagePrompt
	case errors.Is(err, artifacts.ErrAlreadyProcessing):
		return MessageBusy
	case errors.Is(err, extraction.ErrNoMediaFound):
		return MessageNoMedia
	case errors.Is(err, extraction.ErrExtractionFailure):
		return MessageDownloadFailed
	case errors.As(err, &oversize):
		kind, _ := media.KindFromPath(oversize.Path)
		return OversizeMessage(kind, oversize.SizeMB())
	case errors.Is(err, optimize.ErrOversizeAfterCompression):
		return OversizeMessage(media.KindVideo, 0)
	case errors.Is(err, artifacts.ErrArtifactExpired):
		return MessageArtifactExpired
	case errors.Is(err, artifacts.ErrArtifactMissingOnDisk):
		return MessageArtifactMissing
	case errors.Is(err, ErrSecondaryActionFailure):
		return MessageAudioFailed
	case errors.Is(err, ErrUnknownAction):
		return MessageUnknownAction
	default:
		return MessageGenericFailure
	}
}
