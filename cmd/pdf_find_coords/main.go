package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/markusprap/mcp-berita-acara/internal/geometry"
	"github.com/markusprap/mcp-berita-acara/internal/render"
	"github.com/markusprap/mcp-berita-acara/internal/roles"
)

var (
	width        = pflag.Float64("width", 600, "Preview container width in pixels")
	previewPath  = pflag.String("preview", "", "Write the rendered page 1 to this PNG file")
	outputFormat = pflag.String("format", "text", "Output format: text, json")
	help         = pflag.BoolP("help", "h", false, "Show help message")
)

// Click is a display point and the PDF point it maps to
type Click struct {
	Display geometry.DisplayPoint `json:"display"`
	PDF     geometry.PDFPoint     `json:"pdf"`
}

// RoleBox is a role's default signature box in both spaces
type RoleBox struct {
	Role    string               `json:"role"`
	PDF     geometry.PDFRect     `json:"pdf"`
	Display geometry.DisplayRect `json:"display"`
}

// Report is everything printed for one page
type Report struct {
	NativeWidth  float64   `json:"nativeWidth"`
	NativeHeight float64   `json:"nativeHeight"`
	Scale        float64   `json:"scale"`
	Clicks       []Click   `json:"clicks,omitempty"`
	Roles        []RoleBox `json:"roles"`
	preview      *render.PagePreview
}

func main() {
	pflag.Parse()

	if *help {
		printHelp()
		return
	}

	if pflag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		printUsage()
		os.Exit(1)
	}

	data, err := os.ReadFile(pflag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	clicks, err := parseClicks(pflag.Args()[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rep, err := findCoords(context.Background(), render.NewRenderer(), data, *width, clicks)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering page 1: %v\n", err)
		os.Exit(1)
	}

	if *previewPath != "" {
		if err := writePreview(*previewPath, rep.preview); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing preview: %v\n", err)
			os.Exit(1)
		}
	}

	if err := outputResults(os.Stdout, rep, *outputFormat); err != nil {
		fmt.Fprintf(os.Stderr, "Error outputting results: %v\n", err)
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println("PDF Find Coords - map preview clicks on a BA page to PDF points")
	fmt.Println()
	fmt.Println("Renders page 1 at the given container width and converts each x,y display")
	fmt.Println("click into PDF user space (origin bottom-left). Use it to measure the")
	fmt.Println("signature boxes of a new BA template.")
	fmt.Println()
	printUsage()
	fmt.Println()
	fmt.Println("OPTIONS:")
	pflag.PrintDefaults()
}

func printUsage() {
	fmt.Println("USAGE:")
	fmt.Println("  pdf_find_coords [options] <pdf-file> [x,y ...]")
	fmt.Println()
	fmt.Println("EXAMPLES:")
	fmt.Println("  pdf_find_coords --preview page1.png ba.pdf")
	fmt.Println("  pdf_find_coords --width 800 ba.pdf 310,420 520,420")
}

// parseClicks reads "x,y" display coordinates
func parseClicks(args []string) ([]geometry.DisplayPoint, error) {
	points := make([]geometry.DisplayPoint, 0, len(args))
	for _, arg := range args {
		xs, ys, ok := strings.Cut(arg, ",")
		if !ok {
			return nil, fmt.Errorf("click %q: want x,y", arg)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("click %q: %w", arg, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("click %q: %w", arg, err)
		}
		points = append(points, geometry.DisplayPoint{X: x, Y: y})
	}
	return points, nil
}

func findCoords(ctx context.Context, r *render.Renderer, data []byte, containerWidth float64, clicks []geometry.DisplayPoint) (*Report, error) {
	preview, err := r.Render(ctx, data, containerWidth)
	if err != nil {
		return nil, err
	}

	rep := &Report{
		NativeWidth:  preview.NativeWidth,
		NativeHeight: preview.NativeHeight,
		Scale:        float64(preview.Scale),
		preview:      preview,
	}
	for _, c := range clicks {
		p, err := geometry.DisplayToPDF(c, preview.Scale, preview.NativeHeight)
		if err != nil {
			return nil, err
		}
		rep.Clicks = append(rep.Clicks, Click{Display: c, PDF: p})
	}
	for _, role := range roles.All() {
		info := role.Info()
		d, err := geometry.PDFRectToDisplay(info.DefaultPlacement, preview.Scale, preview.NativeHeight)
		if err != nil {
			return nil, err
		}
		rep.Roles = append(rep.Roles, RoleBox{Role: info.Abbreviation, PDF: info.DefaultPlacement, Display: d})
	}
	return rep, nil
}

func writePreview(path string, preview *render.PagePreview) error {
	f, err := os.Create(path) // #nosec G304 -- path comes from the command line
	if err != nil {
		return err
	}
	if err := png.Encode(f, preview.Bitmap); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func outputResults(w io.Writer, rep *Report, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	case "text":
		fmt.Fprintf(w, "Page 1: %.2f x %.2f pt, scale %.4f\n", rep.NativeWidth, rep.NativeHeight, rep.Scale)
		for _, c := range rep.Clicks {
			fmt.Fprintf(w, "  click (%.1f, %.1f) -> pdf (%.2f, %.2f)\n", c.Display.X, c.Display.Y, c.PDF.X, c.PDF.Y)
		}
		fmt.Fprintln(w, "Default signature boxes:")
		for _, b := range rep.Roles {
			fmt.Fprintf(w, "  %-4s %s %s\n", b.Role, b.PDF, b.Display)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
