package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/samber/lo"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/scanner"
)

// ErrResourceNotFound is returned when the scanned resource file is missing
// or cannot be parsed.
var ErrResourceNotFound = xerrors.New("no dev translations found")

const missingResourceMessage = "No dev translations found in file. This is a requirement to generate translation strings."

// KeyPusher sends newly discovered source strings to Drupal.
type KeyPusher interface {
	AddTranslations(ctx context.Context, keys []string) (string, error)
	AddURL() string
}

// SourceScanner extracts keys and writes them to a resource file.
type SourceScanner interface {
	Scan(ctx context.Context) (scanner.Result, error)
	ResourcePath() string
}

// PushResult describes a completed push.
type PushResult struct {
	Keys    []string
	Message string
}

// PushService is the post-build step: scan, read the resource back, push.
type PushService struct {
	scanner SourceScanner
	pusher  KeyPusher
	warn    io.Writer
}

// NewPushService reports missing resources on warn; nil means stderr.
func NewPushService(s SourceScanner, p KeyPusher, warn io.Writer) *PushService {
	if warn == nil {
		warn = os.Stderr
	}
	return &PushService{scanner: s, pusher: p, warn: warn}
}

// OnPostBuild scans sources and pushes the discovered keys. A missing or
// unparsable resource file is reported and skipped: it returns a nil
// result and a nil error. Scan and network failures are returned.
func (s *PushService) OnPostBuild(ctx context.Context) (*PushResult, error) {
	log.Infof("%s scanning files for translatable strings.", LogPrefix)
	res, err := s.scanner.Scan(ctx)
	if err != nil {
		return nil, xerrors.Errorf("scan sources: %w", err)
	}
	log.Debugf("scanned %d files, %d keys", len(res.Files), len(res.Keys))

	keys, err := ReadResourceKeys(s.scanner.ResourcePath())
	if err != nil {
		color.New(color.Bold, color.BgRed).Fprintln(s.warn, missingResourceMessage)
		log.Warnf("%s %s", LogPrefix, err)
		return nil, nil
	}

	log.Infof("%s pushing new Drupal translations to %s", LogPrefix, s.pusher.AddURL())
	message, err := s.pusher.AddTranslations(ctx, keys)
	if err != nil {
		return nil, err
	}
	log.Infof("%s %s", LogPrefix, message)

	return &PushResult{Keys: keys, Message: message}, nil
}

// ReadResourceKeys returns the sorted top-level keys of a JSON resource file.
func ReadResourceKeys(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceNotFound, path, err)
	}
	var resources map[string]json.RawMessage
	if err := json.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrResourceNotFound, path, err)
	}
	keys := lo.Keys(resources)
	sort.Strings(keys)
	return keys, nil
}
