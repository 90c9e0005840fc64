package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aussiebroadwan/gatepass/internal/pass/domain"
	"github.com/aussiebroadwan/gatepass/pkg/cardimg"
)

// ErrFileShareUnsupported is returned by a ShareTarget whose platform cannot
// attach files, triggering the text-share fallback.
var ErrFileShareUnsupported = errors.New("file sharing not supported")

// ShareTarget abstracts the platform's native share surface.
type ShareTarget interface {
	// ShareFile shares the rendered card image with an accompanying text.
	ShareFile(ctx context.Context, filename string, png []byte, text string) error

	// ShareText shares a plain text summary.
	ShareText(ctx context.Context, text string) error
}

// Clipboard is the last-resort share fallback.
type Clipboard interface {
	Copy(text string) error
}

// ShareOutcome reports which rung of the share fallback ladder succeeded.
type ShareOutcome int

const (
	ShareFailed ShareOutcome = iota
	SharedFile
	SharedText
	CopiedToClipboard
)

// Exporter turns an issued pass into a displayable and shareable artifact.
// None of its failures are fatal to the workflow: the issued pass remains
// valid whatever happens here.
type Exporter struct {
	template    *cardimg.Template
	sharer      ShareTarget
	clipboard   Clipboard
	downloadDir string
	logger      *slog.Logger
}

// ExporterConfig wires an Exporter. Sharer and Clipboard may be nil, in
// which case the corresponding rungs of the fallback ladder are skipped.
type ExporterConfig struct {
	Template    *cardimg.Template
	Sharer      ShareTarget
	Clipboard   Clipboard
	DownloadDir string
	Logger      *slog.Logger
}

func NewExporter(cfg ExporterConfig) *Exporter {
	if cfg.Template == nil {
		cfg.Template = cardimg.NewTemplate()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Exporter{
		template:    cfg.Template,
		sharer:      cfg.Sharer,
		clipboard:   cfg.Clipboard,
		downloadDir: cfg.DownloadDir,
		logger:      cfg.Logger,
	}
}

// Capture rasterizes the pass to a PNG. The template's visual overrides are
// scoped inside Render and restored on every exit path.
func (e *Exporter) Capture(pass domain.VisitorPass, resident domain.ResidentIdentity) ([]byte, error) {
	return e.template.Render(cardimg.Card{
		ResidentName: resident.Name,
		VisitorName:  pass.VisitorName,
		Gate:         int(pass.Gate),
		CardNumber:   pass.CardNumber,
		ExpiresAt:    pass.ExpiresAt,
	})
}

// Download writes the rendered card into the download directory and returns
// the written path.
func (e *Exporter) Download(png []byte, filename string) (string, error) {
	if err := os.MkdirAll(e.downloadDir, 0o755); err != nil {
		return "", fmt.Errorf("create download dir: %w", err)
	}
	path := filepath.Join(e.downloadDir, filename)
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return "", fmt.Errorf("write card image: %w", err)
	}
	return path, nil
}

// Share walks the fallback ladder: native file share, then text share, then
// clipboard copy. The returned outcome tells the caller which notification
// to surface; a distinct "copied" outcome accompanies the clipboard rung.
func (e *Exporter) Share(ctx context.Context, pass domain.VisitorPass, resident domain.ResidentIdentity) (ShareOutcome, error) {
	summary := Summary(pass)

	if e.sharer != nil {
		png, err := e.Capture(pass, resident)
		if err == nil {
			err = e.sharer.ShareFile(ctx, shareFilename(pass), png, summary)
			if err == nil {
				return SharedFile, nil
			}
		}
		if err != nil && !errors.Is(err, ErrFileShareUnsupported) {
			e.logger.Warn("file share failed, falling back to text", "error", err)
		}

		if err := e.sharer.ShareText(ctx, summary); err == nil {
			return SharedText, nil
		} else {
			e.logger.Warn("text share failed, falling back to clipboard", "error", err)
		}
	}

	if e.clipboard != nil {
		if err := e.clipboard.Copy(summary); err == nil {
			return CopiedToClipboard, nil
		} else {
			e.logger.Warn("clipboard copy failed", "error", err)
		}
	}

	return ShareFailed, fmt.Errorf("share pass: all share targets failed")
}

// Summary is the text form of a pass used for text shares and clipboard
// copies.
func Summary(pass domain.VisitorPass) string {
	return fmt.Sprintf("Visitor pass for %s: gate %d, card %s, valid until %s",
		pass.VisitorName, int(pass.Gate), pass.CardNumber, pass.FormatExpiry())
}

func shareFilename(pass domain.VisitorPass) string {
	return fmt.Sprintf("visitor-pass-%s.png", pass.CardNumber)
}
