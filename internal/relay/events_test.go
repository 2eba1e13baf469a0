package relay

import (
	"errors"
	"fmt"
	"testing"

	"mediarelay/internal/artifacts"
	"mediarelay/internal/extraction"
	"mediarelay/internal/link"
	"mediarelay/internal/optimize"
)

func TestParseAction(t *testing.T) {
	cases := []struct {
		data    string
		want    Action
		wantErr bool
	}{
		{data: "extract:abc", want: Action{Kind: ActionExtract, ArtifactID: "abc"}},
		{data: " discard:abc-def ", want: Action{Kind: ActionDiscard, ArtifactID: "abc-def"}},
		{data: "extract:", wantErr: true},
		{data: "extract", wantErr: true},
		{data: "noaudio:abc", wantErr: true},
		{data: "", wantErr: true},
	}
	for _, tc := range cases {
		got, err := ParseAction(tc.data)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownAction) {
				t.Fatalf("ParseAction(%q) err = %v, want ErrUnknownAction", tc.data, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseAction(%q) = %+v, %v; want %+v", tc.data, got, err, tc.want)
		}
		if round, _ := ParseAction(got.Data()); round != got {
			t.Fatalf("Data() not parseable: %q", got.Data())
		}
	}
}

func TestControlsFitCallbackLimit(t *testing.T) {
	for _, c := range Controls(artifacts.NewID()) {
		if len(c.Data) > 64 {
			t.Fatalf("control data %q exceeds 64 bytes", c.Data)
		}
	}
}

func TestUserMessage(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{link.ErrLinkNotRecognized, MessagePrompt},
		{fmt.Errorf("run: %w", artifacts.ErrAlreadyProcessing), MessageBusy},
		{fmt.Errorf("%w: x", extraction.ErrNoMediaFound), MessageNoMedia},
		{fmt.Errorf("%w: x", extraction.ErrExtractionFailure), MessageDownloadFailed},
		{&optimize.OversizeError{Path: "/w/a_01.jpg", Size: 60 * 1024 * 1024}, "Photo too large (60.0 MB) after compression."},
		{artifacts.ErrArtifactExpired, MessageArtifactExpired},
		{artifacts.ErrArtifactMissingOnDisk, MessageArtifactMissing},
		{fmt.Errorf("%w: no audio", ErrSecondaryActionFailure), MessageAudioFailed},
		{errors.New("yt-dlp: HTTP Error 429 at /internal/path"), MessageGenericFailure},
	}
	for _, tc := range cases {
		if got := UserMessage(tc.err); got != tc.want {
			t.Fatalf("UserMessage(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}
