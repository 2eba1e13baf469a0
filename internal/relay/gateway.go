package relay

import (
	"context"

	"mediarelay/internal/extraction"
	"mediarelay/internal/history"
	"mediarelay/internal/link"
	"mediarelay/internal/media"
	"mediarelay/internal/optimize"
)

// Gateway delivers results to the chat platform.
type Gateway interface {
	SendText(ctx context.Context, chatID int64, text string) (int, error)
	SendVideo(ctx context.Context, chatID int64, path, caption string, controls []Control) error
	SendPhoto(ctx context.Context, chatID int64, path, caption string) error
	SendAudio(ctx context.Context, chatID int64, path, title string) error
	AnswerCallback(ctx context.Context, callbackID, text string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}

// Extractor fetches raw media for a link. *extraction.Coordinator satisfies it.
type Extractor interface {
	Fetch(ctx context.Context, l link.Link, target extraction.Target) (media.ExtractionResult, error)
}

// Optimizer fits an item under the delivery ceiling. *optimize.Optimizer satisfies it.
type Optimizer interface {
	Optimize(ctx context.Context, item media.Item) (optimize.Outcome, error)
}

// AudioExtractor writes the audio track of a video. *ffmpeg.Client satisfies it.
type AudioExtractor interface {
	ExtractAudio(ctx context.Context, input, output string) error
}

// AudioProber reports whether a file carries an audio stream. *ffprobe.Prober satisfies it.
type AudioProber interface {
	HasAudio(ctx context.Context, path string) (bool, error)
}

// Recorder journals finished runs. *history.Store satisfies it, including a nil store.
type Recorder interface {
	Record(ctx context.Context, run history.Run) error
}
