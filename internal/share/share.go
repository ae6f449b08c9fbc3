// Package share hands a finished PDF to the platform's share capability,
// falling back to saving the file and preparing a WhatsApp chat link.
package share

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
)

// FallbackDelay separates the download from opening the chat link
const FallbackDelay = time.Second

// ChatURL is the base of the manual share link
const ChatURL = "https://wa.me/?text="

// ConfirmPrompt is shown before falling back to download and link
const ConfirmPrompt = "Fitur share langsung tidak didukung oleh browser ini.\n\nKlik OK untuk mengunduh PDF, lalu kirim manual via WhatsApp."

// ErrAborted is returned by a Sharer when the user dismissed the share sheet
var ErrAborted = errors.New("share aborted")

// File is a shareable artifact
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Message accompanies a shared file
type Message struct {
	Title string
	Text  string
}

// Sharer is a native share capability
type Sharer interface {
	CanShare(f File) bool
	Share(ctx context.Context, f File, msg Message) error
}

// Saver stores a file where the user can pick it up
type Saver interface {
	Save(filename string, data []byte) (string, error)
}

// Request describes one share action
type Request struct {
	File    File
	Message Message
	// FallbackText is the chat text used when the file has to be sent by hand
	FallbackText string
	// Confirm is asked before the fallback runs; nil means yes
	Confirm func(prompt string) bool
}

// Outcome reports what happened
type Outcome struct {
	Shared   bool   `json:"shared"`
	Aborted  bool   `json:"aborted,omitempty"`
	Declined bool   `json:"declined,omitempty"`
	Fallback bool   `json:"fallback,omitempty"`
	Path     string `json:"path,omitempty"`
	Link     string `json:"link,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// Service runs share requests
type Service struct {
	sharer Sharer
	saver  Saver
	delay  time.Duration
}

// NewService creates a share service. sharer may be nil when the platform
// has no native share capability.
func NewService(sharer Sharer, saver Saver) *Service {
	return &Service{sharer: sharer, saver: saver, delay: FallbackDelay}
}

// WithDelay overrides the pause between download and link
func (s *Service) WithDelay(d time.Duration) *Service {
	s.delay = d
	return s
}

// Share tries the native share first. A dismissed share sheet ends the
// action; any other failure or a missing capability falls back to saving
// the file and building a chat link.
func (s *Service) Share(ctx context.Context, req Request) (*Outcome, error) {
	if s.sharer != nil && s.sharer.CanShare(req.File) {
		err := s.sharer.Share(ctx, req.File, req.Message)
		switch {
		case err == nil:
			return &Outcome{Shared: true}, nil
		case errors.Is(err, ErrAborted), errors.Is(err, context.Canceled):
			return &Outcome{Aborted: true}, nil
		}
	}
	return s.fallback(ctx, req)
}

func (s *Service) fallback(ctx context.Context, req Request) (*Outcome, error) {
	out := &Outcome{Notice: baerrors.UserMessage(baerrors.ShareUnavailable)}

	if req.Confirm != nil && !req.Confirm(ConfirmPrompt) {
		out.Declined = true
		return out, nil
	}
	if s.saver == nil {
		return nil, baerrors.New(baerrors.KindShareUnavailable, "share", errors.New("no download location"))
	}

	path, err := s.saver.Save(req.File.Name, req.File.Data)
	if err != nil {
		return nil, baerrors.New(baerrors.KindShareUnavailable, "share", fmt.Errorf("download: %w", err))
	}
	out.Fallback = true
	out.Path = path

	if s.delay > 0 {
		t := time.NewTimer(s.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		case <-t.C:
		}
	}

	text := req.FallbackText
	if text == "" {
		text = req.Message.Text
	}
	out.Link = ChatLink(text)
	return out, nil
}

// ChatLink builds the wa.me link for text, encoded the way browsers encode
// a URI component
func ChatLink(text string) string {
	return ChatURL + strings.ReplaceAll(url.QueryEscape(text), "+", "%20")
}

// SignedMessage is the share text for a signed document
func SignedMessage(id roles.Identity) Message {
	return Message{
		Title: "Berita Acara",
		Text:  fmt.Sprintf("BA sudah ditandatangani oleh %s (%s)", id.DisplayName, id.Role),
	}
}

// SignedFallbackText is the chat text when a signed document is sent by hand
func SignedFallbackText(id roles.Identity) string {
	return SignedMessage(id).Text + ". Silakan download dari link yang dikirim."
}
