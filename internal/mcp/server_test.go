package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markusprap/mcp-berita-acara/internal/config"
	"github.com/markusprap/mcp-berita-acara/internal/descriptions"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
	"github.com/markusprap/mcp-berita-acara/internal/pdf/pdftest"
	"github.com/markusprap/mcp-berita-acara/internal/placement"
	"github.com/markusprap/mcp-berita-acara/internal/render"
	"github.com/markusprap/mcp-berita-acara/internal/report"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
	"github.com/markusprap/mcp-berita-acara/internal/session"
	"github.com/markusprap/mcp-berita-acara/internal/signature"
)

type blankPages struct{}

func (blankPages) RasterizePage(data []byte, page int, dpi float64) (*image.RGBA, error) {
	w := int(math.Round(pdftest.A4Width * dpi / 72))
	h := int(math.Round(pdftest.A4Height * dpi / 72))
	return image.NewRGBA(image.Rect(0, 0, w, h)), nil
}

type formCapture struct {
	png    []byte
	closed bool
}

func (f *formCapture) Rasterize(ctx context.Context, html []byte) ([]byte, error) {
	return f.png, nil
}

func (f *formCapture) Close() error {
	f.closed = true
	return nil
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

type fixture struct {
	server *Server
	work   string
	out    string
	raster *formCapture
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	work := t.TempDir()
	out := filepath.Join(t.TempDir(), "signed")

	cfg := config.DefaultConfig()
	cfg.WorkDir = work
	cfg.OutputDir = out
	cfg.ServerName = "test-server"

	svc, err := pdf.NewService(cfg.MaxFileSize, work, out)
	require.NoError(t, err)

	roster, err := roles.NewRoster([]roles.Employee{
		{NIK: "2010001", Name: "Budi Santoso", Role: roles.AreaSupervisor},
		{NIK: "2010002", Name: "Sari Dewi", Role: roles.AreaManager},
	})
	require.NoError(t, err)

	raster := &formCapture{png: pngBytes(t, 400, 500)}
	s, err := NewServer(cfg, svc,
		WithRoster(roster),
		WithRasterizer(raster),
		WithClock(func() time.Time { return time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC) }),
		WithShareDelay(0),
		WithSessionOptions(session.Options{Renderer: render.NewRendererWith(blankPages{})}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, os.WriteFile(filepath.Join(work, "ba.pdf"), pdftest.BA(t, "A12B"), 0o600))
	return &fixture{server: s, work: work, out: out, raster: raster}
}

type handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func call(t *testing.T, h handler, args map[string]any) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: args}}
	result, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	return extractTextFromResult(result), result.IsError
}

func extractTextFromResult(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

var sessionLine = regexp.MustCompile(`Session: ([0-9a-f-]+)`)

func openDocument(t *testing.T, f *fixture, role, nik string) string {
	t.Helper()
	text, isErr := call(t, f.server.handleOpenDocument, map[string]any{"path": "ba.pdf", "role": role, "nik": nik})
	require.False(t, isErr, text)
	m := sessionLine.FindStringSubmatch(text)
	require.Len(t, m, 2, text)
	return m[1]
}

var strokes = []any{
	[]any{[]any{10.0, 40.0}, []any{60.0, 20.0}, []any{120.0, 45.0}},
	[]any{map[string]any{"x": 130.0, "y": 30.0}, map[string]any{"x": 180.0, "y": 30.0}},
}

func TestNewServer(t *testing.T) {
	_, err := NewServer(nil, nil)
	assert.Error(t, err)

	_, err = NewServer(config.DefaultConfig(), nil)
	assert.Error(t, err)

	f := newFixture(t)
	assert.NotNil(t, f.server.mcpServer)
	assert.NotNil(t, f.server.sessions)
}

func TestServer_RegistersTools(t *testing.T) {
	f := newFixture(t)

	resp := f.server.mcpServer.HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	require.NoError(t, err)

	for _, name := range descriptions.GetAllToolNames() {
		assert.Contains(t, string(b), `"`+name+`"`)
	}
}

func TestHandleListDocuments(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "Berita_Acara_C3D4.pdf"), pdftest.BA(t, "C3D4"), 0o600))

	text, isErr := call(t, f.server.handleListDocuments, map[string]any{})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Found 2 PDF file(s)")
	assert.Contains(t, text, "ba.pdf")

	text, isErr = call(t, f.server.handleListDocuments, map[string]any{"query": "c3d4"})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Found 1 PDF file(s)")
	assert.Contains(t, text, "Store code: C3D4")
	assert.NotContains(t, text, "ba.pdf")

	text, _ = call(t, f.server.handleListDocuments, map[string]any{"limit": 1.0})
	assert.Contains(t, text, "more files match")
}

func TestHandleLookupRole(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		args    map[string]any
		want    string
		wantErr bool
	}{
		{"registered", map[string]any{"role": "Area Supervisor", "nik": "2010001"}, "Signer: Budi Santoso", false},
		{"abbreviation", map[string]any{"role": "am", "nik": "2010002"}, "Signer: Sari Dewi", false},
		{"no nik role", map[string]any{"role": "EDP Manager"}, "Signer: EDP Manager", false},
		{"mismatch", map[string]any{"role": "Area Manager", "nik": "2010001"}, "bukan Area Manager", true},
		{"unknown nik", map[string]any{"role": "Area Supervisor", "nik": "999"}, "NIK tidak terdaftar", true},
		{"unknown role", map[string]any{"role": "Cashier"}, "unknown role", true},
		{"missing role", map[string]any{}, "role", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, f.server.handleLookupRole, tt.args)
			assert.Equal(t, tt.wantErr, isErr, text)
			assert.Contains(t, text, tt.want)
		})
	}
}

func TestSigningFlow(t *testing.T) {
	f := newFixture(t)
	id := openDocument(t, f, "Area Supervisor", "2010001")

	text, isErr := call(t, f.server.handleCommitSignature, map[string]any{"session_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "Silakan gambar tanda tangan")

	text, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "strokes": strokes})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Signature captured: 320x200 px")

	sess, err := f.server.sessions.Get(id)
	require.NoError(t, err)
	r := *sess.Snapshot().Placement

	text, isErr = call(t, f.server.handleAdjustPlacement, map[string]any{
		"session_id": id,
		"from_x":     r.X + 5, "from_y": r.Y + 5,
		"to_x": r.X + 15, "to_y": r.Y - 5,
	})
	require.False(t, isErr, text)
	moved := *sess.Snapshot().Placement
	assert.InDelta(t, r.X+10, moved.X, 1e-9)
	assert.InDelta(t, r.Y-10, moved.Y, 1e-9)

	text, isErr = call(t, f.server.handleAdjustPlacement, map[string]any{
		"session_id": id, "from_x": 1.0, "from_y": 1.0, "to_x": 2.0, "to_y": 2.0,
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "no signature box")

	text, isErr = call(t, f.server.handleCommitSignature, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "BA_VARIANCE_A12B_251225_TTD_AS.pdf")
	assert.FileExists(t, filepath.Join(f.out, "BA_VARIANCE_A12B_251225_TTD_AS.pdf"))

	text, isErr = call(t, f.server.handleShare, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "https://wa.me/?text=BA%20sudah%20ditandatangani%20oleh%20Budi%20Santoso")

	text, isErr = call(t, f.server.handleResign, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	text, isErr = call(t, f.server.handleShare, map[string]any{"session_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "no signed document")

	text, isErr = call(t, f.server.handleCloseSession, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	_, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "strokes": strokes})
	assert.True(t, isErr)
}

func TestHandleOpenDocument_Failures(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "notes.txt"), []byte("hello"), 0o600))

	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"not a pdf", map[string]any{"path": "notes.txt", "role": "DBM"}, "File tidak didukung"},
		{"outside work dir", map[string]any{"path": "../ba.pdf", "role": "DBM"}, "File tidak didukung"},
		{"role mismatch", map[string]any{"path": "ba.pdf", "role": "AM", "nik": "2010001"}, "bukan Area Manager"},
		{"missing path", map[string]any{"role": "DBM"}, "path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, isErr := call(t, f.server.handleOpenDocument, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, tt.want)
		})
	}
	assert.Equal(t, 0, f.server.sessions.Len())
}

func TestHandleOpenDocument_Upload(t *testing.T) {
	f := newFixture(t)

	text, isErr := call(t, f.server.handleOpenDocument, map[string]any{
		"content": base64.StdEncoding.EncodeToString(pdftest.BA(t, "C3D4")),
		"name":    "scan.pdf",
		"role":    "DBM",
	})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Document: scan.pdf")
	assert.Contains(t, text, "Store code: C3D4")

	text, isErr = call(t, f.server.handleOpenDocument, map[string]any{
		"content": base64.StdEncoding.EncodeToString(pngBytes(t, 10, 10)),
		"role":    "DBM",
	})
	assert.True(t, isErr)
	assert.Contains(t, text, "File tidak didukung")

	text, isErr = call(t, f.server.handleOpenDocument, map[string]any{"content": "%%%", "role": "DBM"})
	assert.True(t, isErr)
	assert.Contains(t, text, "decode upload")
	assert.Equal(t, 1, f.server.sessions.Len())
}

func TestHandleOpenDocument_Preview(t *testing.T) {
	f := newFixture(t)
	req := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: map[string]any{
		"path": "ba.pdf", "role": "Office Manager", "width": 300.0, "include_preview": true,
	}}}

	result, err := f.server.handleOpenDocument(context.Background(), req)
	require.NoError(t, err)
	require.False(t, result.IsError)

	var found bool
	for _, c := range result.Content {
		if img, ok := c.(mcp.ImageContent); ok {
			found = true
			assert.Equal(t, "image/png", img.MIMEType)
		}
	}
	assert.True(t, found, "preview image returned")
	assert.Contains(t, extractTextFromResult(result), "Preview: 300 x")
}

func TestHandleDrawSignature_Image(t *testing.T) {
	f := newFixture(t)
	id := openDocument(t, f, "DBM", "")

	text, isErr := call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "image_path": "missing.png"})
	assert.True(t, isErr, text)

	require.NoError(t, os.WriteFile(filepath.Join(f.work, "blank.png"), pngBytes(t, 40, 20), 0o600))
	text, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "image_path": "blank.png"})
	assert.True(t, isErr)
	assert.Contains(t, text, "Silakan gambar tanda tangan")

	text, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "strokes": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "strokes must be an array")
}

func TestHandleDrawSignature_RejectsOversizedInput(t *testing.T) {
	f := newFixture(t)
	id := openDocument(t, f, "DBM", "")

	tests := []struct {
		name string
		args map[string]any
	}{
		{"huge pad", map[string]any{"pad_width": 200000.0, "pad_height": 200000.0}},
		{"tall pad", map[string]any{"pad_height": float64(signature.MaxHeight + 1)}},
		{"negative pad", map[string]any{"pad_width": -5.0}},
		{"fat pen", map[string]any{"pen_width": 1e6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.args["session_id"] = id
			tt.args["strokes"] = strokes
			text, isErr := call(t, f.server.handleDrawSignature, tt.args)
			assert.True(t, isErr)
			assert.Contains(t, text, "File tidak didukung")
		})
	}

	big := image.NewRGBA(image.Rect(0, 0, signature.MaxImageSide+1, 1))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, big))
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "wide.png"), buf.Bytes(), 0o600))
	text, isErr := call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "image_path": "wide.png"})
	assert.True(t, isErr)
	assert.Contains(t, text, "4097x1")

	sess, err := f.server.sessions.Get(id)
	require.NoError(t, err)
	assert.False(t, sess.Snapshot().HasSignature)
}

func TestHandleComposeReport(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "rak.png"), pngBytes(t, 60, 40), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(f.work, "notes.txt"), []byte("not a photo"), 0o600))

	args := map[string]any{
		"kodeToko":      "a12b",
		"namaToko":      "Toko Contoh",
		"namaPersonil":  "Andi",
		"nik":           "2020001",
		"jabatan":       "Chief of Store",
		"nominal":       "1250000",
		"tanggalVarian": "2025-12-20",
		"kronologi":     "Selisih stok rokok.",
		"lokasi":        "Bekasi",
		"tanggalDibuat": "2025-12-25",
		"strokes":       strokes,
		"attachments":   []any{"rak.png", "notes.txt"},
	}

	text, isErr := call(t, f.server.handleComposeReport, args)
	require.False(t, isErr, text)
	assert.Contains(t, text, "Berita_Acara_A12B.pdf")
	assert.Contains(t, text, "Pages: 2 (1 attachment(s))")
	assert.Contains(t, text, "1 attachment(s) that are not images")
	assert.FileExists(t, filepath.Join(f.out, "Berita_Acara_A12B.pdf"))

	m := regexp.MustCompile(`Report: ([0-9a-f-]+)`).FindStringSubmatch(text)
	require.Len(t, m, 2)
	text, isErr = call(t, f.server.handleShare, map[string]any{"report_id": m[1], "confirm_fallback": false})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Download skipped")

	text, isErr = call(t, f.server.handleShare, map[string]any{"report_id": m[1]})
	require.False(t, isErr, text)
	assert.Contains(t, text, "Kode%20Toko%3A%20A12B")
}

func TestHandleDrawSignature_Cancel(t *testing.T) {
	f := newFixture(t)
	id := openDocument(t, f, "Area Supervisor", "2010001")

	text, isErr := call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "cancel": true})
	require.False(t, isErr, text)
	assert.Contains(t, text, "No signature yet")

	_, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "strokes": strokes})
	require.False(t, isErr)
	text, isErr = call(t, f.server.handleCommitSignature, map[string]any{"session_id": id})
	require.False(t, isErr, text)

	sess, err := f.server.sessions.Get(id)
	require.NoError(t, err)
	before := sess.Snapshot()

	// cancel wins over strokes sent along with it
	text, isErr = call(t, f.server.handleDrawSignature, map[string]any{"session_id": id, "cancel": true, "strokes": strokes})
	require.False(t, isErr, text)
	assert.Contains(t, text, "signature and its placement are kept")

	after := sess.Snapshot()
	assert.True(t, after.HasSignature)
	assert.Equal(t, placement.Committed.String(), after.State)
	assert.Equal(t, before.Placement, after.Placement)
	assert.Equal(t, before.Result, after.Result)

	text, isErr = call(t, f.server.handleShare, map[string]any{"session_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "wa.me")
}

func composeReport(t *testing.T, f *fixture) string {
	t.Helper()
	text, isErr := call(t, f.server.handleComposeReport, map[string]any{
		"kodeToko":      "A12B",
		"namaToko":      "Toko Contoh",
		"namaPersonil":  "Andi",
		"nik":           "2020001",
		"jabatan":       "Chief of Store",
		"nominal":       "50000",
		"tanggalVarian": "2025-12-20",
		"kronologi":     "Selisih kas.",
		"lokasi":        "Bekasi",
		"tanggalDibuat": "2025-12-25",
		"strokes":       strokes,
	})
	require.False(t, isErr, text)
	m := regexp.MustCompile(`Report: ([0-9a-f-]+)`).FindStringSubmatch(text)
	require.Len(t, m, 2, text)
	return m[1]
}

func TestHandleCloseReport(t *testing.T) {
	f := newFixture(t)
	id := composeReport(t, f)

	text, isErr := call(t, f.server.handleCloseReport, map[string]any{"report_id": id})
	require.False(t, isErr, text)
	assert.Contains(t, text, "closed")
	assert.FileExists(t, filepath.Join(f.out, "Berita_Acara_A12B.pdf"), "the saved file stays")

	text, isErr = call(t, f.server.handleShare, map[string]any{"report_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown report")

	text, isErr = call(t, f.server.handleCloseReport, map[string]any{"report_id": id})
	assert.True(t, isErr)
	assert.Contains(t, text, "unknown report")

	_, isErr = call(t, f.server.handleCloseReport, map[string]any{})
	assert.True(t, isErr)
}

func TestReports_OldestReleasedBeyondLimit(t *testing.T) {
	f := newFixture(t)

	ids := make([]string, 0, MaxReports+2)
	for i := 0; i < MaxReports+2; i++ {
		id := fmt.Sprintf("r%02d", i)
		f.server.keepReport(id, report.NewSession(f.raster, nil))
		ids = append(ids, id)
	}

	assert.Len(t, f.server.reports, MaxReports)
	assert.Len(t, f.server.reportOrder, MaxReports)
	for _, id := range ids[:2] {
		_, ok := f.server.lookupReport(id)
		assert.False(t, ok, id)
	}
	_, ok := f.server.lookupReport(ids[len(ids)-1])
	assert.True(t, ok)

	require.True(t, f.server.dropReport(ids[5]))
	assert.NotContains(t, f.server.reportOrder, ids[5])
	assert.Len(t, f.server.reports, MaxReports-1)
}

func TestHandleComposeReport_Incomplete(t *testing.T) {
	f := newFixture(t)

	text, isErr := call(t, f.server.handleComposeReport, map[string]any{"kodeToko": "A12B", "strokes": strokes})
	assert.True(t, isErr)
	assert.Contains(t, text, "missing fields")
	assert.Contains(t, text, "namaToko")

	text, isErr = call(t, f.server.handleShare, map[string]any{})
	assert.True(t, isErr)
	assert.Contains(t, text, "session_id or report_id")
}

func TestHandleServerInfo(t *testing.T) {
	f := newFixture(t)
	openDocument(t, f, "EDP Manager", "")

	text, isErr := call(t, f.server.handleServerInfo, nil)
	require.False(t, isErr)
	assert.Contains(t, text, "test-server")
	assert.Contains(t, text, "Roster: 2 approver(s)")
	assert.Contains(t, text, "Live Sessions: 1")
	for _, name := range descriptions.GetAllToolNames() {
		assert.Contains(t, text, name)
	}
	assert.True(t, strings.Contains(text, "DBM ADM / BM (DBM)"))
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	openDocument(t, f, "EDP Manager", "")

	require.NoError(t, f.server.Close())
	assert.True(t, f.raster.closed)
	assert.Equal(t, 0, f.server.sessions.Len())
}

func TestParseStrokes(t *testing.T) {
	got, err := parseStrokes(strokes)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Len(t, got[0], 3)
	assert.Equal(t, 180.0, got[1][1].X)

	got, err = parseStrokes(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	for _, bad := range []any{
		"x",
		[]any{"x"},
		[]any{[]any{[]any{1.0}}},
		[]any{[]any{[]any{"a", "b"}}},
		[]any{[]any{map[string]any{"x": 1.0}}},
	} {
		_, err := parseStrokes(bad)
		assert.Error(t, err, "%v", bad)
	}
}
