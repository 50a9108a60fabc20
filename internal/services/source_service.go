package services

import (
	"context"
	"sort"
	"strings"

	logging "github.com/ipfs/go-log/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/drupal"
	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/nodes"
)

var log = logging.Logger("services")

// LogPrefix tags reporter output the way the build plugin always has.
const LogPrefix = "[next-drupal-interface-i18n]:"

// Fetcher retrieves the translations payload from Drupal.
type Fetcher interface {
	FetchTranslations(ctx context.Context) (drupal.Response, error)
	TranslationsURL() string
}

// NodeStore persists translation nodes and their type definitions.
type NodeStore interface {
	TranslationQuerier
	CreateTypes(ctx context.Context, name, sdl string) error
	TypeDefinition(ctx context.Context, name string) (string, bool, error)
	ReplaceNodes(ctx context.Context, ns []nodes.Node) error
	CountNodes(ctx context.Context) (int, error)
}

// SourceService pulls Drupal interface translations into the node store.
type SourceService struct {
	fetcher Fetcher
	store   NodeStore
}

func NewSourceService(fetcher Fetcher, store NodeStore) *SourceService {
	return &SourceService{fetcher: fetcher, store: store}
}

// CreateSchemaCustomization registers the DrupalTranslation node type. An
// identical stored definition is left alone.
func (s *SourceService) CreateSchemaCustomization(ctx context.Context) error {
	sdl, ok, err := s.store.TypeDefinition(ctx, nodes.TypeName)
	if err != nil {
		return err
	}
	if ok && sdl == strings.TrimSpace(nodes.SchemaSDL) {
		log.Debugf("%s type unchanged", nodes.TypeName)
		return nil
	}
	return s.store.CreateTypes(ctx, nodes.TypeName, nodes.SchemaSDL)
}

// SourceNodes fetches every translation and registers one node per
// (langcode, source), replacing the previous set in one transaction. Nodes
// are built concurrently, one goroutine per language. An empty response
// registers nothing and keeps the existing nodes.
func (s *SourceService) SourceNodes(ctx context.Context) (int, error) {
	log.Infof("%s fetching Drupal interface translations from %s", LogPrefix, s.fetcher.TranslationsURL())

	response, err := s.fetcher.FetchTranslations(ctx)
	if err != nil {
		return 0, err
	}
	if len(response) == 0 {
		log.Infof("%s no interface translations returned", LogPrefix)
		return 0, nil
	}

	langcodes := sortedLangcodes(response)
	built := make([][]nodes.Node, len(langcodes))
	g, gctx := errgroup.WithContext(ctx)
	for i, langcode := range langcodes {
		sources := response[langcode]
		g.Go(func() error {
			out := make([]nodes.Node, 0, len(sources))
			for source, translation := range sources {
				if err := gctx.Err(); err != nil {
					return err
				}
				out = append(out, nodes.Process(langcode, source, translation))
			}
			built[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	if err := s.store.ReplaceNodes(ctx, lo.Flatten(built)); err != nil {
		return 0, xerrors.Errorf("register translation nodes: %w", err)
	}
	created, err := s.store.CountNodes(ctx)
	if err != nil {
		return 0, err
	}

	log.Infof("%s registered %d translation nodes in %d languages", LogPrefix, created, len(response))
	return created, nil
}

// Translations is the query adapter: every registered record, ordered.
func (s *SourceService) Translations(ctx context.Context) ([]core.Translation, error) {
	return s.store.AllTranslations(ctx)
}

func sortedLangcodes(r drupal.Response) []string {
	langs := lo.Keys(r)
	sort.Strings(langs)
	return langs
}
