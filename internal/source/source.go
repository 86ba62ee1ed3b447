package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/atotto/clipboard"

	"github.com/sokinpui/recon/internal/logging"
)

// Kind names where a response was read from.
type Kind string

const (
	KindFile      Kind = "file"
	KindStdin     Kind = "stdin"
	KindClipboard Kind = "clipboard"
)

// Provider determines and retrieves the model response to reconcile.
type Provider struct {
	file          string
	stdin         *os.File
	readClipboard func() (string, error)
	logger        logging.Logger
}

// New creates a Provider. A non-empty file takes precedence over stdin and
// the clipboard; "-" forces stdin.
func New(file string, logger logging.Logger) *Provider {
	return &Provider{
		file:          file,
		stdin:         os.Stdin,
		readClipboard: clipboard.ReadAll,
		logger:        logging.OrNop(logger),
	}
}

// Read returns the response text and where it came from: the file when one
// was given, stdin when it is piped, otherwise the clipboard.
func (p *Provider) Read() (string, Kind, error) {
	switch {
	case p.file == "-":
		return p.readStdin()
	case p.file != "":
		p.logger.Debug("source: reading %s", p.file)
		data, err := os.ReadFile(p.file)
		if err != nil {
			return "", KindFile, fmt.Errorf("failed to read response file: %w", err)
		}
		return string(data), KindFile, nil
	case p.stdinPiped():
		return p.readStdin()
	}

	p.logger.Debug("source: reading clipboard")
	content, err := p.readClipboard()
	if err != nil {
		return "", KindClipboard, fmt.Errorf("failed to read from clipboard: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		p.logger.Warn("source: clipboard is empty")
		return "", KindClipboard, nil
	}
	return content, KindClipboard, nil
}

func (p *Provider) stdinPiped() bool {
	if p.stdin == nil {
		return false
	}
	stat, err := p.stdin.Stat()
	if err != nil {
		return false
	}
	return stat.Mode()&os.ModeCharDevice == 0
}

func (p *Provider) readStdin() (string, Kind, error) {
	p.logger.Debug("source: reading stdin")
	content, err := io.ReadAll(p.stdin)
	if err != nil {
		return "", KindStdin, fmt.Errorf("failed to read from stdin: %w", err)
	}
	return string(content), KindStdin, nil
}
