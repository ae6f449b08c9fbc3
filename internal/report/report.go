// Package report assembles a Berita Acara from form data, the reporter's
// signature and up to three photo attachments.
package report

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/markusprap/mcp-berita-acara/internal/capture"
	"github.com/markusprap/mcp-berita-acara/internal/compose"
	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/form"
	"github.com/markusprap/mcp-berita-acara/internal/signature"
)

// MaxAttachments is the number of photos a report can carry
const MaxAttachments = 3

// Attachment is one uploaded photo
type Attachment struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data []byte `json:"-"`
}

// Upload is a file offered for attachment
type Upload struct {
	Name string
	Data []byte
}

// Session is one report being filled in. It is safe for concurrent use;
// builds do not overlap.
type Session struct {
	mu          sync.Mutex
	raster      capture.Rasterizer
	paginator   *compose.Paginator
	data        form.Data
	signature   *signature.Image
	attachments []Attachment
	busy        bool
	result      *compose.Result
}

// NewSession creates an empty report
func NewSession(raster capture.Rasterizer, paginator *compose.Paginator) *Session {
	if paginator == nil {
		paginator = compose.NewPaginator()
	}
	return &Session{raster: raster, paginator: paginator}
}

// SetData replaces the form data, applying the field transforms
func (s *Session) SetData(d form.Data) {
	d.Normalize()
	s.mu.Lock()
	s.data = d
	s.mu.Unlock()
}

// Data returns the current form data
func (s *Session) Data() form.Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// SetSignature replaces the reporter's signature; nil clears it
func (s *Session) SetSignature(img *signature.Image) {
	s.mu.Lock()
	s.signature = img
	s.mu.Unlock()
}

// AddAttachments keeps as many uploads as there are free slots, in order.
// Uploads that are not images are skipped; rejected counts them.
func (s *Session) AddAttachments(uploads ...Upload) (added []Attachment, rejected int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range uploads {
		if len(s.attachments) >= MaxAttachments {
			break
		}
		if !strings.HasPrefix(http.DetectContentType(u.Data), "image/") {
			rejected++
			continue
		}
		a := Attachment{
			ID:   uuid.NewString(),
			Name: u.Name,
			Data: append([]byte(nil), u.Data...),
		}
		s.attachments = append(s.attachments, a)
		added = append(added, a)
	}
	return added, rejected
}

// RemoveAttachment drops an attachment by id
func (s *Session) RemoveAttachment(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, a := range s.attachments {
		if a.ID == id {
			s.attachments = append(s.attachments[:i:i], s.attachments[i+1:]...)
			return true
		}
	}
	return false
}

// Attachments returns the attachments in upload order
func (s *Session) Attachments() []Attachment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Attachment(nil), s.attachments...)
}

// Result returns the last successful build, if any
func (s *Session) Result() *compose.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// Missing lists what still has to be filled in before Build can run
func (s *Session) Missing() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.missing()
}

func (s *Session) missing() []string {
	m := s.data.Missing()
	if s.signature == nil {
		m = append(m, "signature")
	}
	return m
}

// Build renders the form, captures it and paginates it together with the
// attachments. A failed build leaves the previous result in place.
func (s *Session) Build(ctx context.Context) (*compose.Result, error) {
	const op = "build report"

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, baerrors.New(baerrors.KindBusy, op, nil)
	}
	if m := s.missing(); len(m) > 0 {
		sigMissing := s.signature == nil
		s.mu.Unlock()
		if sigMissing && len(m) == 1 {
			return nil, baerrors.New(baerrors.KindEmptySignature, op, nil)
		}
		return nil, baerrors.Newf(baerrors.KindInputRejected, op, "missing fields: %s", strings.Join(m, ", "))
	}
	s.busy = true
	data := s.data
	sig := s.signature
	atts := append([]Attachment(nil), s.attachments...)
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.busy = false
		s.mu.Unlock()
	}()

	res, err := s.build(ctx, data, sig, atts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.result = res
	s.mu.Unlock()
	return res, nil
}

func (s *Session) build(ctx context.Context, data form.Data, sig *signature.Image, atts []Attachment) (*compose.Result, error) {
	html, err := form.Render(data, sig.PNG)
	if err != nil {
		return nil, baerrors.New(baerrors.KindRender, "build report", err)
	}

	png, err := s.raster.Rasterize(ctx, html)
	if err != nil {
		if baerrors.KindOf(err) == baerrors.KindUnknown {
			err = baerrors.New(baerrors.KindRender, "capture form", err)
		}
		return nil, err
	}

	photos := make([][]byte, len(atts))
	for i, a := range atts {
		photos[i] = a.Data
	}

	res, err := s.paginator.Paginate(png, photos)
	if err != nil {
		return nil, err
	}
	res.Filename = compose.ReportFilename(data.KodeToko)
	return res, nil
}

// Caption is the share text for a built report
func Caption(d form.Data) string {
	code := d.KodeToko
	if code == "" {
		code = compose.ReportFallbackCode
	}
	return fmt.Sprintf("Berita Acara - %s", code)
}

// FallbackMessage is the chat text used when the report has to be sent by hand
func FallbackMessage(d form.Data) string {
	return fmt.Sprintf("Berita Acara - Kode Toko: %s, Nama Personil: %s", orDash(d.KodeToko), orDash(d.NamaPersonil))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
