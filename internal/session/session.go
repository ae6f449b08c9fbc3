// Package session owns the state of one signing session: the source
// document, the signer, the page preview, the captured signature, the
// placement rectangle and the last signed result.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/markusprap/mcp-berita-acara/internal/compose"
	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
	"github.com/markusprap/mcp-berita-acara/internal/placement"
	"github.com/markusprap/mcp-berita-acara/internal/render"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
	"github.com/markusprap/mcp-berita-acara/internal/signature"
)

// Session errors
var (
	ErrNoDocument = errors.New("no document opened")
	ErrClosed     = errors.New("session closed")
)

// Options configure new sessions
type Options struct {
	Renderer  *render.Renderer
	Embedder  *compose.Embedder
	Separator string
	Now       func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Renderer == nil {
		o.Renderer = render.NewRenderer()
	}
	if o.Embedder == nil {
		o.Embedder = compose.NewEmbedder()
	}
	if o.Separator == "" {
		o.Separator = compose.DefaultSeparator
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session is one signer working on one document. All methods are safe for
// concurrent use; a commit in flight makes further commits fail with Busy.
type Session struct {
	id       string
	identity roles.Identity
	opts     Options

	mu         sync.Mutex
	closed     bool
	busy       bool
	doc        *pdf.Document
	source     pdf.Source
	preview    *render.PagePreview
	signature  *signature.Image
	controller *placement.Controller
	result     *compose.Result
}

// New creates a session for an authenticated signer
func New(id string, identity roles.Identity, opts Options) *Session {
	return &Session{id: id, identity: identity, opts: opts.withDefaults()}
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// Identity returns the signer
func (s *Session) Identity() roles.Identity { return s.identity }

// Snapshot is a read-only view of the session
type Snapshot struct {
	ID           string                `json:"id"`
	Signer       string                `json:"signer"`
	Role         string                `json:"role"`
	Document     *pdf.Document         `json:"document,omitempty"`
	Scale        float64               `json:"scale,omitempty"`
	CanvasWidth  float64               `json:"canvasWidth,omitempty"`
	CanvasHeight float64               `json:"canvasHeight,omitempty"`
	HasSignature bool                  `json:"hasSignature"`
	State        string                `json:"state"`
	Placement    *geometry.DisplayRect `json:"placement,omitempty"`
	Result       string                `json:"result,omitempty"`
}

// Snapshot describes the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:           s.id,
		Signer:       s.identity.DisplayName,
		Role:         s.identity.Role.String(),
		Document:     s.doc,
		HasSignature: s.signature != nil,
		State:        placement.Idle.String(),
	}
	if s.preview != nil {
		snap.Scale = float64(s.preview.Scale)
		snap.CanvasWidth, snap.CanvasHeight = s.preview.DisplaySize()
	}
	if s.controller != nil {
		snap.State = s.controller.State().String()
		if r, ok := s.controller.Rect(); ok {
			snap.Placement = &r
		}
	}
	if s.result != nil {
		snap.Result = s.result.Filename
	}
	return snap
}

// Open renders page 1 of a document at containerWidth and makes it the
// session's document. Any signature, placement and result from a previous
// document are dropped. On failure the previous state is kept.
func (s *Session) Open(ctx context.Context, doc *pdf.Document, source pdf.Source, containerWidth float64) (*render.PagePreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	if s.busy {
		return nil, baerrors.New(baerrors.KindBusy, "open document", nil)
	}

	preview, ctrl, err := s.layout(ctx, source, containerWidth)
	if err != nil {
		return nil, err
	}

	s.doc = doc
	s.source = source
	s.preview = preview
	s.controller = ctrl
	s.signature = nil
	s.result = nil
	return preview, nil
}

func (s *Session) layout(ctx context.Context, source pdf.Source, containerWidth float64) (*render.PagePreview, *placement.Controller, error) {
	data, err := source()
	if err != nil {
		return nil, nil, baerrors.New(baerrors.KindDocumentLoad, "read document", err)
	}
	preview, err := s.opts.Renderer.Render(ctx, data, containerWidth)
	if err != nil {
		return nil, nil, err
	}
	ctrl, err := placement.New(preview.DisplaySize())
	if err != nil {
		return nil, nil, baerrors.New(baerrors.KindDocumentLoad, "layout", err)
	}
	return preview, ctrl, nil
}

// Relayout re-renders the preview for a new container width. A placed
// rectangle keeps its position on the page and a committed one stays
// committed.
func (s *Session) Relayout(ctx context.Context, containerWidth float64) (*render.PagePreview, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return nil, err
	}
	if s.busy {
		return nil, baerrors.New(baerrors.KindBusy, "relayout", nil)
	}

	preview, ctrl, err := s.layout(ctx, s.source, containerWidth)
	if err != nil {
		return nil, err
	}

	if r, ok := s.controller.Rect(); ok {
		rect, err := geometry.PlacementToPDF(r, s.preview.Scale, s.preview.NativeHeight)
		if err != nil {
			return nil, err
		}
		moved, err := geometry.PDFRectToDisplay(rect, preview.Scale, preview.NativeHeight)
		if err != nil {
			return nil, err
		}
		ctrl.Place(moved)
		if s.controller.State() == placement.Committed {
			if _, err := ctrl.Commit(); err != nil {
				return nil, err
			}
		}
	}

	s.preview = preview
	s.controller = ctrl
	return preview, nil
}

// Preview returns the current page preview
func (s *Session) Preview() *render.PagePreview {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

// SaveSignature keeps a captured signature and places it at the role's
// default position
func (s *Session) SaveSignature(img *signature.Image) (geometry.DisplayRect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return geometry.DisplayRect{}, err
	}
	if img == nil {
		return geometry.DisplayRect{}, baerrors.New(baerrors.KindEmptySignature, "save signature", nil)
	}

	def := s.identity.Role.Info().DefaultPlacement
	r, err := geometry.PDFRectToDisplay(def, s.preview.Scale, s.preview.NativeHeight)
	if err != nil {
		return geometry.DisplayRect{}, err
	}

	s.signature = img
	return s.controller.Place(r), nil
}

// CancelSignature closes a capture without saving it. The stored signature,
// its placement and any signed result are left untouched; the return value
// reports whether a signature is kept.
func (s *Session) CancelSignature() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return false, err
	}
	return s.signature != nil, nil
}

// PointerDown starts a drag or resize gesture
func (s *Session) PointerDown(p geometry.DisplayPoint) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil || s.busy {
		return false
	}
	return s.controller.PointerDown(p)
}

// PointerMove continues the current gesture
func (s *Session) PointerMove(p geometry.DisplayPoint) geometry.DisplayRect {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller == nil || s.busy {
		return geometry.DisplayRect{}
	}
	return s.controller.PointerMove(p)
}

// PointerUp ends the current gesture
func (s *Session) PointerUp() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.controller != nil {
		s.controller.PointerUp()
	}
}

// Commit embeds the signature at the current placement into a fresh read
// of the source document. The previous result stays in place unless the
// whole embed succeeds.
func (s *Session) Commit(ctx context.Context) (*compose.Result, error) {
	const op = "commit signature"

	s.mu.Lock()
	if err := s.ready(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if s.busy {
		s.mu.Unlock()
		return nil, baerrors.New(baerrors.KindBusy, op, nil)
	}
	if s.signature == nil {
		s.mu.Unlock()
		return nil, baerrors.New(baerrors.KindEmptySignature, op, nil)
	}
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	rect, err := s.controller.Commit()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.busy = true
	req := compose.EmbedRequest{
		Signature:  s.signature,
		Placement:  rect,
		Scale:      s.preview.Scale,
		PageHeight: s.preview.NativeHeight,
		Identity:   s.identity,
	}
	source := s.source
	var code string
	if s.doc != nil {
		code = s.doc.StoreCode
	}
	s.mu.Unlock()

	res, err := s.embed(source, req, code)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.busy = false
	if s.closed {
		return nil, ErrClosed
	}
	if err != nil {
		s.controller.Reopen()
		return nil, err
	}
	s.result = res
	return res, nil
}

func (s *Session) embed(source pdf.Source, req compose.EmbedRequest, code string) (*compose.Result, error) {
	data, err := source()
	if err != nil {
		return nil, baerrors.New(baerrors.KindEmbed, "reopen document", err)
	}
	req.Original = data

	res, err := s.opts.Embedder.Embed(req)
	if err != nil {
		return nil, err
	}
	res.Filename = compose.SignedFilename(code, s.opts.Now(), s.identity.Role, s.opts.Separator)
	return res, nil
}

// Result returns the last signed document, if any
func (s *Session) Result() *compose.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Resign discards the signature, placement and result so the document can
// be signed again from its original bytes
func (s *Session) Resign() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ready(); err != nil {
		return err
	}
	if s.busy {
		return baerrors.New(baerrors.KindBusy, "resign", nil)
	}
	s.signature = nil
	s.result = nil
	s.controller.Reset()
	return nil
}

// Close releases everything the session holds
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.doc = nil
	s.source = nil
	s.preview = nil
	s.signature = nil
	s.controller = nil
	s.result = nil
}

func (s *Session) ready() error {
	if s.closed {
		return ErrClosed
	}
	if s.source == nil || s.preview == nil || s.controller == nil {
		return ErrNoDocument
	}
	return nil
}
