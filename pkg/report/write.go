package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ops-tooling/rolegraph/pkg/graph"
)

// ImageFormat selects the rendered graph image type.
type ImageFormat string

const (
	ImageSVG  ImageFormat = "svg"
	ImagePNG  ImageFormat = "png"
	ImageNone ImageFormat = "none"
)

// WriteOptions configures a full artifact set.
type WriteOptions struct {
	// Prefix is the output path prefix; artifacts are written as
	// <prefix>.gv, <prefix>.html, <prefix>_incl_unknown.html and
	// <prefix>.<image format>.
	Prefix string
	// Title labels the graph drawing and HTML pages.
	Title string
	// Image selects the rendered image format (default SVG; None skips
	// rendering entirely).
	Image ImageFormat
	// ShowUnknown includes placeholder nodes in the primary HTML page too,
	// not just in the _incl_unknown variant.
	ShowUnknown bool
}

// Artifacts lists the files produced by WriteAll.
type Artifacts struct {
	DOT      string
	HTML     string // resolved units only
	HTMLFull string // including unknown/external placeholders
	Image    string // empty when rendering was skipped
}

// WriteAll writes the complete artifact set for a graph. The DOT file and
// image include placeholder nodes (that is their point); the two HTML
// pages split the resolved and full views. All files are staged in memory
// first so a rendering failure leaves no partial set behind.
func WriteAll(ctx context.Context, g *graph.Graph, opts WriteOptions) (Artifacts, error) {
	if opts.Image == "" {
		opts.Image = ImageSVG
	}

	arts := Artifacts{
		DOT:      opts.Prefix + ".gv",
		HTML:     opts.Prefix + ".html",
		HTMLFull: opts.Prefix + "_incl_unknown.html",
	}

	dot := ToDOT(g, DOTOptions{Title: opts.Title, IncludeUnknown: true})

	files := map[string][]byte{
		arts.DOT: []byte(dot),
	}

	footer := footerFromMeta(g)

	resolved, err := HTMLString(g, HTMLOptions{
		Title:          opts.Title,
		IncludeUnknown: opts.ShowUnknown,
		ImageRef:       imageRef(opts),
		Footer:         footer,
	})
	if err != nil {
		return Artifacts{}, err
	}
	files[arts.HTML] = []byte(resolved)

	full, err := HTMLString(g, HTMLOptions{
		Title:          opts.Title + " (incl. unknown)",
		IncludeUnknown: true,
		ImageRef:       imageRef(opts),
		Footer:         footer,
	})
	if err != nil {
		return Artifacts{}, err
	}
	files[arts.HTMLFull] = []byte(full)

	if opts.Image != ImageNone {
		arts.Image = fmt.Sprintf("%s.%s", opts.Prefix, opts.Image)
		var img []byte
		switch opts.Image {
		case ImageSVG:
			img, err = RenderSVG(ctx, dot)
		case ImagePNG:
			img, err = RenderPNG(ctx, dot)
		default:
			err = fmt.Errorf("unsupported image format %q", opts.Image)
		}
		if err != nil {
			return Artifacts{}, err
		}
		files[arts.Image] = img
	}

	if dir := filepath.Dir(opts.Prefix); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Artifacts{}, fmt.Errorf("create output dir: %w", err)
		}
	}
	for path, content := range files {
		if err := os.WriteFile(path, content, 0o644); err != nil {
			return Artifacts{}, fmt.Errorf("write %s: %w", path, err)
		}
	}
	return arts, nil
}

// footerFromMeta composes the report footer from the graph's scan metadata.
func footerFromMeta(g *graph.Graph) string {
	meta := g.Meta()
	var parts []string
	if v, ok := meta["generated_at"].(string); ok && v != "" {
		parts = append(parts, "generated "+v)
	}
	if v, ok := meta["instance"].(string); ok && v != "" {
		parts = append(parts, "instance "+v)
	}
	if v, ok := meta["run_id"].(string); ok && v != "" {
		parts = append(parts, "run "+v)
	}
	return strings.Join(parts, " · ")
}

// imageRef is the relative link from the HTML pages to the graph image.
func imageRef(opts WriteOptions) string {
	if opts.Image == ImageNone {
		return ""
	}
	return filepath.Base(opts.Prefix) + "." + string(opts.Image)
}
