package mcp

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/markusprap/mcp-berita-acara/internal/capture"
	"github.com/markusprap/mcp-berita-acara/internal/config"
	"github.com/markusprap/mcp-berita-acara/internal/descriptions"
	"github.com/markusprap/mcp-berita-acara/internal/pdf"
	"github.com/markusprap/mcp-berita-acara/internal/report"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
	"github.com/markusprap/mcp-berita-acara/internal/session"
	"github.com/markusprap/mcp-berita-acara/internal/share"
)

// ShutdownTimeout bounds the HTTP server shutdown in server mode
const ShutdownTimeout = 5 * time.Second

// MaxReports bounds the composed reports held for sharing; the oldest is
// released first
const MaxReports = 16

// Server represents the MCP server instance
type Server struct {
	config     *config.Config
	pdfService *pdf.Service
	roster     *roles.Roster
	sessions   *session.Store
	raster     capture.Rasterizer
	shares     *share.Service
	mcpServer  *server.MCPServer

	mu          sync.Mutex
	reports     map[string]*report.Session
	reportOrder []string
}

// Option customizes a Server
type Option func(*options)

type options struct {
	roster  *roles.Roster
	raster  capture.Rasterizer
	sharer  share.Sharer
	now     func() time.Time
	delay   *time.Duration
	session session.Options
}

// WithRoster sets the approver roster
func WithRoster(r *roles.Roster) Option {
	return func(o *options) { o.roster = r }
}

// WithRasterizer replaces the headless Chrome form capture
func WithRasterizer(r capture.Rasterizer) Option {
	return func(o *options) { o.raster = r }
}

// WithSharer sets a native share capability
func WithSharer(s share.Sharer) Option {
	return func(o *options) { o.sharer = s }
}

// WithClock sets the clock used for signed file names
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithShareDelay overrides the pause before the manual share link
func WithShareDelay(d time.Duration) Option {
	return func(o *options) { o.delay = &d }
}

// WithSessionOptions sets the renderer and embedder used by signing sessions
func WithSessionOptions(so session.Options) Option {
	return func(o *options) { o.session = so }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, pdfService *pdf.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if pdfService == nil {
		return nil, fmt.Errorf("pdfService cannot be nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.raster == nil {
		o.raster = capture.NewChromeRasterizer(cfg.BrowserBin, 0)
	}
	so := o.session
	so.Separator = cfg.Separator
	if o.now != nil {
		so.Now = o.now
	}

	shares := share.NewService(o.sharer, pdfService)
	if o.delay != nil {
		shares.WithDelay(*o.delay)
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:     cfg,
		pdfService: pdfService,
		roster:     o.roster,
		sessions:   session.NewStore(so),
		raster:     o.raster,
		shares:     shares,
		mcpServer:  mcpServer,
		reports:    make(map[string]*report.Session),
	}

	// Register tools
	s.registerTools()

	return s, nil
}

var roleNames = func() []string {
	var names []string
	for _, r := range roles.All() {
		names = append(names, r.String())
	}
	return names
}()

func signatureParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithArray("strokes",
			mcp.Description("Pen strokes; each stroke is a list of [x, y] points in pad pixels"),
			mcp.Items(map[string]any{"type": "array"}),
		),
		mcp.WithString("image_path",
			mcp.Description("PNG or JPEG signature image in the work directory, used instead of strokes"),
		),
		mcp.WithNumber("pad_width", mcp.Description("Pad width in pixels (default 320)")),
		mcp.WithNumber("pad_height", mcp.Description("Pad height in pixels (default 200)")),
		mcp.WithNumber("pen_width", mcp.Description("Pen width in pixels (default 2.5)")),
	}
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolListDocuments,
		mcp.WithDescription(descriptions.ListDocumentsDescription),
		mcp.WithString("query", mcp.Description("Store code or words of the file name (optional)")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of files (default 100)")),
	), s.handleListDocuments)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolLookupRole,
		mcp.WithDescription(descriptions.LookupRoleDescription),
		mcp.WithString("role", mcp.Required(), mcp.Description("Selected role"), mcp.Enum(roleNames...)),
		mcp.WithString("nik", mcp.Description("Employee NIK; required for Area Supervisor and Area Manager")),
	), s.handleLookupRole)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolOpenDocument,
		mcp.WithDescription(descriptions.OpenDocumentDescription),
		mcp.WithString("path", mcp.Description("BA PDF in the work directory")),
		mcp.WithString("content", mcp.Description("Base64 PDF uploaded instead of path")),
		mcp.WithString("name", mcp.Description("File name of the uploaded PDF, used for the store code")),
		mcp.WithString("role", mcp.Required(), mcp.Description("Signer role"), mcp.Enum(roleNames...)),
		mcp.WithString("nik", mcp.Description("Signer NIK; required for Area Supervisor and Area Manager")),
		mcp.WithNumber("width", mcp.Description("Preview container width in pixels")),
		mcp.WithBoolean("include_preview", mcp.Description("Return the rendered page 1 as PNG")),
	), s.handleOpenDocument)

	drawOpts := append([]mcp.ToolOption{
		mcp.WithDescription(descriptions.DrawSignatureDescription),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Signing session")),
		mcp.WithBoolean("cancel", mcp.Description("Close the capture without saving; the current signature is kept")),
	}, signatureParams()...)
	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolDrawSignature, drawOpts...), s.handleDrawSignature)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolAdjustPlacement,
		mcp.WithDescription(descriptions.AdjustPlacementDescription),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Signing session")),
		mcp.WithNumber("from_x", mcp.Description("Pointer down X in display pixels")),
		mcp.WithNumber("from_y", mcp.Description("Pointer down Y in display pixels")),
		mcp.WithNumber("to_x", mcp.Description("Pointer up X in display pixels")),
		mcp.WithNumber("to_y", mcp.Description("Pointer up Y in display pixels")),
		mcp.WithNumber("width", mcp.Description("New preview container width")),
	), s.handleAdjustPlacement)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolCommitSignature,
		mcp.WithDescription(descriptions.CommitSignatureDescription),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Signing session")),
	), s.handleCommitSignature)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolResign,
		mcp.WithDescription(descriptions.ResignDescription),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Signing session")),
	), s.handleResign)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolCloseSession,
		mcp.WithDescription(descriptions.CloseSessionDescription),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("Signing session")),
	), s.handleCloseSession)

	reportOpts := []mcp.ToolOption{mcp.WithDescription(descriptions.ComposeReportDescription)}
	for _, f := range reportFields {
		reportOpts = append(reportOpts, mcp.WithString(f.name, mcp.Description(f.description)))
	}
	reportOpts = append(reportOpts, signatureParams()...)
	reportOpts = append(reportOpts, mcp.WithArray("attachments",
		mcp.Description("Up to three photos in the work directory"),
		mcp.Items(map[string]any{"type": "string"}),
	))
	s.mcpServer.AddTool(mcp.NewTool(descriptions.ToolComposeReport, reportOpts...), s.handleComposeReport)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolCloseReport,
		mcp.WithDescription(descriptions.CloseReportDescription),
		mcp.WithString("report_id", mcp.Required(), mcp.Description("Composed report")),
	), s.handleCloseReport)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolShare,
		mcp.WithDescription(descriptions.ShareDescription),
		mcp.WithString("session_id", mcp.Description("Signing session with a committed signature")),
		mcp.WithString("report_id", mcp.Description("Composed report")),
		mcp.WithBoolean("confirm_fallback", mcp.Description("Save the file and return a chat link when native share is unavailable (default true)")),
	), s.handleShare)

	s.mcpServer.AddTool(mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// Close releases the sessions and the browser
func (s *Server) Close() error {
	s.sessions.CloseAll()
	s.mu.Lock()
	s.reports = make(map[string]*report.Session)
	s.reportOrder = nil
	s.mu.Unlock()
	return s.raster.Close()
}

// keepReport holds a composed report for sharing, releasing the oldest
// beyond MaxReports
func (s *Server) keepReport(id string, rep *report.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reports[id] = rep
	s.reportOrder = append(s.reportOrder, id)
	for len(s.reportOrder) > MaxReports {
		oldest := s.reportOrder[0]
		s.reportOrder = slices.Delete(s.reportOrder, 0, 1)
		delete(s.reports, oldest)
		s.debugf("report %s released", oldest)
	}
}

func (s *Server) lookupReport(id string) (*report.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rep, ok := s.reports[id]
	return rep, ok
}

// dropReport releases a report; it reports whether the id was held
func (s *Server) dropReport(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return false
	}
	delete(s.reports, id)
	if i := slices.Index(s.reportOrder, id); i >= 0 {
		s.reportOrder = slices.Delete(s.reportOrder, i, i+1)
	}
	return true
}

func (s *Server) debugf(format string, args ...any) {
	if s.config.IsDebug() {
		log.Printf(format, args...)
	}
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.debugf("Starting Berita Acara MCP server in stdio mode")
	s.debugf("Work directory: %s, output directory: %s", s.pdfService.WorkDir(), s.pdfService.OutputDir())

	// Use the mark3labs/mcp-go server.ServeStdio function
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves MCP over HTTP with server-sent events until ctx ends
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	log.Printf("Starting Berita Acara MCP server on %s (SSE)", addr)
	log.Printf("Work directory: %s, output directory: %s", s.pdfService.WorkDir(), s.pdfService.OutputDir())

	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve http: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down http server: %w", err)
		}
		return nil
	}
}
