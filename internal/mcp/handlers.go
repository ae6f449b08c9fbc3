package mcp

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image/png"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/markusprap/mcp-berita-acara/internal/descriptions"
	baerrors "github.com/markusprap/mcp-berita-acara/internal/errors"
	"github.com/markusprap/mcp-berita-acara/internal/form"
	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
	"github.com/markusprap/mcp-berita-acara/internal/report"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
	"github.com/markusprap/mcp-berita-acara/internal/session"
	"github.com/markusprap/mcp-berita-acara/internal/share"
	"github.com/markusprap/mcp-berita-acara/internal/signature"
)

var reportFields = []struct {
	name        string
	description string
}{
	{form.FieldKodeToko, "Store code, e.g. A12B"},
	{form.FieldNamaToko, "Store name"},
	{form.FieldNamaPersonil, "Reporting employee"},
	{form.FieldNIK, "Reporting employee's NIK"},
	{form.FieldJabatan, "Position: " + strings.Join(form.JabatanOptions, ", ")},
	{form.FieldNominal, "Variance amount in rupiah"},
	{form.FieldTanggalVarian, "Variance date, yyyy-mm-dd"},
	{form.FieldKronologi, "Chronology of the variance"},
	{form.FieldLokasi, "Place the report is made"},
	{form.FieldTanggalDibuat, "Report date, yyyy-mm-dd"},
	{form.FieldWaktuDibuat, "Report time, hh:mm"},
}

// toolError turns a failure into a tool error carrying the user message
func toolError(err error) *mcp.CallToolResult {
	if baerrors.KindOf(err) == baerrors.KindUnknown {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s\n\nDetail: %v", baerrors.UserMessage(err), err))
}

func (s *Server) authenticate(request mcp.CallToolRequest) (roles.Identity, error) {
	roleName, err := request.RequireString("role")
	if err != nil {
		return roles.Identity{}, err
	}
	role, err := roles.Parse(roleName)
	if err != nil {
		return roles.Identity{}, err
	}
	return s.roster.Authenticate(request.GetString("nik", ""), role)
}

func (s *Server) lookupSession(request mcp.CallToolRequest) (*session.Session, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, id)
	}
	return sess, nil
}

func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	req := pdf.SearchRequest{
		Query: request.GetString("query", ""),
		Limit: int(request.GetFloat("limit", 0)),
	}
	result, err := s.pdfService.SearchDocuments(req)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Search failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatSearchResult(result)), nil
}

func formatSearchResult(result *pdf.SearchResult) string {
	text := fmt.Sprintf("Found %d PDF file(s) in directory: %s\n", result.TotalCount, result.Directory)
	if result.Query != "" {
		text += fmt.Sprintf("Search query: %s\n", result.Query)
	}
	if result.TotalCount == 0 {
		return text
	}
	text += "\nFiles:\n"

	for i, file := range result.Files {
		text += fmt.Sprintf("%d. %s\n", i+1, file.Name)
		text += fmt.Sprintf("   Path: %s\n", file.Path)
		if file.StoreCode != "" {
			text += fmt.Sprintf("   Store code: %s\n", file.StoreCode)
		}
		if file.Signed {
			text += "   Signed: yes\n"
		}
		text += fmt.Sprintf("   Size: %d bytes\n", file.Size)
		text += fmt.Sprintf("   Modified: %s\n", file.ModifiedTime)
		if i < len(result.Files)-1 {
			text += "\n"
		}
	}
	if result.Truncated {
		text += "\n(more files match; narrow the query or raise the limit)\n"
	}
	return text
}

func (s *Server) handleLookupRole(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.authenticate(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info := id.Role.Info()
	text := fmt.Sprintf("Signer: %s\n", id.DisplayName)
	text += fmt.Sprintf("Role: %s (%s)\n", info.Title, info.Abbreviation)
	text += fmt.Sprintf("Name printed under signature: %t\n", info.RequiresNameLabel)
	text += fmt.Sprintf("Default signature box (points): %s\n", info.DefaultPlacement)
	return mcp.NewToolResultText(text), nil
}

// openSource reads the document from the work directory or from uploaded
// base64 content
func (s *Server) openSource(request mcp.CallToolRequest) (*pdf.Document, pdf.Source, error) {
	if content := request.GetString("content", ""); content != "" {
		data, err := base64.StdEncoding.DecodeString(content)
		if err != nil {
			return nil, nil, baerrors.New(baerrors.KindInputRejected, "decode upload", err)
		}
		return s.pdfService.Accept(request.GetString("name", "upload.pdf"), data)
	}
	path := request.GetString("path", "")
	if path == "" {
		return nil, nil, fmt.Errorf("path or content is required")
	}
	return s.pdfService.Open(path)
}

func (s *Server) handleOpenDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := s.authenticate(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	doc, source, err := s.openSource(request)
	if err != nil {
		return toolError(err), nil
	}

	sess := s.sessions.Create(id)
	preview, err := sess.Open(ctx, doc, source, request.GetFloat("width", s.config.PreviewWidth))
	if err != nil {
		_ = s.sessions.Close(sess.ID())
		return toolError(err), nil
	}
	s.debugf("session %s: %s opened %s as %s", sess.ID(), id.DisplayName, doc.Name, id.Role)

	canvasW, canvasH := preview.DisplaySize()
	text := fmt.Sprintf("Session: %s\n", sess.ID())
	text += fmt.Sprintf("Signer: %s (%s)\n", id.DisplayName, id.Role)
	text += fmt.Sprintf("Document: %s, %d page(s), %d bytes\n", doc.Name, doc.Pages, doc.Size)
	if doc.StoreCode != "" {
		text += fmt.Sprintf("Store code: %s\n", doc.StoreCode)
	}
	text += fmt.Sprintf("Page 1: %.2f x %.2f pt\n", preview.NativeWidth, preview.NativeHeight)
	text += fmt.Sprintf("Preview: %.0f x %.0f px at scale %.4f\n", canvasW, canvasH, float64(preview.Scale))
	text += fmt.Sprintf("\nNext: %s to capture the signature.\n", descriptions.ToolDrawSignature)

	if !request.GetBool("include_preview", false) {
		return mcp.NewToolResultText(text), nil
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, preview.Bitmap); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode preview: %v", err)), nil
	}
	return mcp.NewToolResultImage(text, base64.StdEncoding.EncodeToString(buf.Bytes()), "image/png"), nil
}

// signatureFromRequest builds a signature from strokes or an image file
func (s *Server) signatureFromRequest(request mcp.CallToolRequest) (*signature.Image, error) {
	if path := request.GetString("image_path", ""); path != "" {
		data, err := s.pdfService.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return signature.LoadImage(data)
	}

	strokes, err := parseStrokes(request.GetArguments()["strokes"])
	if err != nil {
		return nil, baerrors.New(baerrors.KindInputRejected, "read strokes", err)
	}

	padW, padH, err := signature.PadSize(request.GetFloat("pad_width", 0), request.GetFloat("pad_height", 0))
	if err != nil {
		return nil, err
	}
	var opts []signature.Option
	if w := request.GetFloat("pen_width", 0); w > 0 {
		if w > signature.MaxPenWidth {
			return nil, baerrors.Newf(baerrors.KindInputRejected, "signature pad",
				"pen width %v exceeds %d", w, signature.MaxPenWidth)
		}
		opts = append(opts, signature.WithPenWidth(w))
	}
	pad := signature.NewPad(padW, padH, opts...)
	for _, stroke := range strokes {
		pad.AddStroke(stroke...)
	}
	return pad.Export()
}

// parseStrokes accepts [[[x, y], ...], ...] or [[{"x": x, "y": y}, ...], ...]
func parseStrokes(v any) ([][]geometry.DisplayPoint, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("strokes must be an array")
	}

	strokes := make([][]geometry.DisplayPoint, 0, len(list))
	for i, raw := range list {
		points, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("stroke %d must be an array of points", i)
		}
		stroke := make([]geometry.DisplayPoint, 0, len(points))
		for j, rp := range points {
			p, err := parsePoint(rp)
			if err != nil {
				return nil, fmt.Errorf("stroke %d point %d: %w", i, j, err)
			}
			stroke = append(stroke, p)
		}
		if len(stroke) > 0 {
			strokes = append(strokes, stroke)
		}
	}
	return strokes, nil
}

func parsePoint(v any) (geometry.DisplayPoint, error) {
	switch p := v.(type) {
	case []any:
		if len(p) != 2 {
			return geometry.DisplayPoint{}, fmt.Errorf("point must have two coordinates")
		}
		x, xok := p[0].(float64)
		y, yok := p[1].(float64)
		if !xok || !yok {
			return geometry.DisplayPoint{}, fmt.Errorf("coordinates must be numbers")
		}
		return geometry.DisplayPoint{X: x, Y: y}, nil
	case map[string]any:
		x, xok := p["x"].(float64)
		y, yok := p["y"].(float64)
		if !xok || !yok {
			return geometry.DisplayPoint{}, fmt.Errorf("point needs numeric x and y")
		}
		return geometry.DisplayPoint{X: x, Y: y}, nil
	default:
		return geometry.DisplayPoint{}, fmt.Errorf("unsupported point %v", v)
	}
}

func (s *Server) handleDrawSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if request.GetBool("cancel", false) {
		kept, err := sess.CancelSignature()
		if err != nil {
			return toolError(err), nil
		}
		if kept {
			return mcp.NewToolResultText("Capture cancelled. The current signature and its placement are kept.\n"), nil
		}
		return mcp.NewToolResultText("Capture cancelled. No signature yet.\n"), nil
	}

	img, err := s.signatureFromRequest(request)
	if err != nil {
		return toolError(err), nil
	}
	rect, err := sess.SaveSignature(img)
	if err != nil {
		return toolError(err), nil
	}

	text := fmt.Sprintf("Signature captured: %dx%d px\n", img.Width(), img.Height())
	text += fmt.Sprintf("Placed at %s (display pixels)\n", rect)
	text += fmt.Sprintf("\nNext: %s, or %s to move it first.\n", descriptions.ToolCommitSignature, descriptions.ToolAdjustPlacement)
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleAdjustPlacement(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if w := request.GetFloat("width", 0); w > 0 {
		if _, err := sess.Relayout(ctx, w); err != nil {
			return toolError(err), nil
		}
	}

	args := request.GetArguments()
	if _, ok := args["from_x"]; ok {
		from := geometry.DisplayPoint{X: request.GetFloat("from_x", 0), Y: request.GetFloat("from_y", 0)}
		to := geometry.DisplayPoint{X: request.GetFloat("to_x", from.X), Y: request.GetFloat("to_y", from.Y)}
		if !sess.PointerDown(from) {
			return mcp.NewToolResultError(fmt.Sprintf("no signature box under %.1f,%.1f", from.X, from.Y)), nil
		}
		sess.PointerMove(to)
		sess.PointerUp()
	}

	snap := sess.Snapshot()
	text := fmt.Sprintf("Canvas: %.0f x %.0f px at scale %.4f\n", snap.CanvasWidth, snap.CanvasHeight, snap.Scale)
	if snap.Placement != nil {
		text += fmt.Sprintf("Placement: %s (%s)\n", snap.Placement, snap.State)
	} else {
		text += "Placement: none\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCommitSignature(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := sess.Commit(ctx)
	if err != nil {
		return toolError(err), nil
	}
	path, err := s.pdfService.Save(res.Filename, res.PDF)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save %s: %v", res.Filename, err)), nil
	}
	s.debugf("session %s: signed %s", sess.ID(), path)

	text := fmt.Sprintf("PDF sudah ditandatangani oleh %s!\n", sess.Identity().DisplayName)
	text += fmt.Sprintf("File: %s\n", res.Filename)
	text += fmt.Sprintf("Path: %s\n", path)
	text += fmt.Sprintf("Pages: %d, %d bytes\n", res.PageCount, len(res.PDF))
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleResign(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := sess.Resign(); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s is ready for a new signature.", sess.ID())), nil
}

func (s *Server) handleCloseSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("session_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.sessions.Close(id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("%v: %s", err, id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Session %s closed.", id)), nil
}

func (s *Server) handleComposeReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var data form.Data
	for _, f := range reportFields {
		if v := request.GetString(f.name, ""); v != "" {
			if err := data.Apply(f.name, v); err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
		}
	}

	rep := report.NewSession(s.raster, nil)
	rep.SetData(data)

	img, err := s.signatureFromRequest(request)
	if err != nil && baerrors.KindOf(err) != baerrors.KindEmptySignature {
		return toolError(err), nil
	}
	rep.SetSignature(img)

	var uploads []report.Upload
	if list, ok := request.GetArguments()["attachments"].([]any); ok {
		for _, v := range list {
			path, ok := v.(string)
			if !ok || path == "" {
				continue
			}
			b, err := s.pdfService.ReadFile(path)
			if err != nil {
				return toolError(err), nil
			}
			uploads = append(uploads, report.Upload{Name: filepath.Base(path), Data: b})
		}
	}
	added, rejected := rep.AddAttachments(uploads...)

	res, err := rep.Build(ctx)
	if err != nil {
		return toolError(err), nil
	}
	path, err := s.pdfService.Save(res.Filename, res.PDF)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to save %s: %v", res.Filename, err)), nil
	}

	id := uuid.NewString()
	s.keepReport(id, rep)
	s.debugf("report %s: %s", id, path)

	text := fmt.Sprintf("Report: %s\n", id)
	text += fmt.Sprintf("File: %s\n", res.Filename)
	text += fmt.Sprintf("Path: %s\n", path)
	text += fmt.Sprintf("Pages: %d (%d attachment(s))\n", res.PageCount, len(added))
	if skipped := len(uploads) - len(added) - rejected; skipped > 0 {
		text += fmt.Sprintf("Skipped %d attachment(s): at most %d are allowed\n", skipped, report.MaxAttachments)
	}
	if rejected > 0 {
		text += fmt.Sprintf("Skipped %d attachment(s) that are not images\n", rejected)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleCloseReport(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("report_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.dropReport(id) {
		return mcp.NewToolResultError(fmt.Sprintf("unknown report: %s", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Report %s closed.", id)), nil
}

func (s *Server) handleShare(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm := request.GetBool("confirm_fallback", true)
	req := share.Request{Confirm: func(string) bool { return confirm }}

	switch {
	case request.GetString("session_id", "") != "":
		sess, err := s.lookupSession(request)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		res := sess.Result()
		if res == nil {
			return mcp.NewToolResultError("no signed document in this session yet"), nil
		}
		req.File = share.File{Name: res.Filename, MIMEType: "application/pdf", Data: res.PDF}
		req.Message = share.SignedMessage(sess.Identity())
		req.FallbackText = share.SignedFallbackText(sess.Identity())

	case request.GetString("report_id", "") != "":
		id := request.GetString("report_id", "")
		rep, ok := s.lookupReport(id)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown report: %s", id)), nil
		}
		res := rep.Result()
		data := rep.Data()
		req.File = share.File{Name: res.Filename, MIMEType: "application/pdf", Data: res.PDF}
		req.Message = share.Message{Title: "Berita Acara", Text: report.Caption(data)}
		req.FallbackText = report.FallbackMessage(data)

	default:
		return mcp.NewToolResultError("session_id or report_id is required"), nil
	}

	out, err := s.shares.Share(ctx, req)
	if err != nil {
		return toolError(err), nil
	}

	var text string
	switch {
	case out.Shared:
		text = "Shared.\n"
	case out.Aborted:
		text = "Share cancelled.\n"
	case out.Declined:
		text = out.Notice + "\nDownload skipped.\n"
	default:
		text = out.Notice + "\n"
		text += fmt.Sprintf("Saved: %s\n", out.Path)
		text += fmt.Sprintf("WhatsApp: %s\n", out.Link)
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Work Directory: %s\n", s.pdfService.WorkDir())
	text += fmt.Sprintf("📤 Output Directory: %s\n", s.pdfService.OutputDir())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	text += fmt.Sprintf("👥 Roster: %d approver(s)\n", s.roster.Len())
	text += fmt.Sprintf("✍️  Live Sessions: %d\n\n", s.sessions.Len())

	text += "🧾 Roles:\n"
	for _, r := range roles.All() {
		info := r.Info()
		text += fmt.Sprintf("  • %s (%s): box %s, NIK required: %t, name label: %t\n",
			info.Title, info.Abbreviation, info.DefaultPlacement, info.RequiresNIK, info.RequiresNameLabel)
	}

	text += "\n🛠️  Available Tools:\n"
	for _, name := range descriptions.GetAllToolNames() {
		desc := descriptions.GetToolDescription(name)
		if i := strings.IndexByte(desc, '\n'); i >= 0 {
			desc = desc[:i]
		}
		text += fmt.Sprintf("  • %s: %s\n", name, desc)
	}
	return mcp.NewToolResultText(text), nil
}
