// Package nodes turns sourced translations into typed content nodes.
//
// A node carries the translation record itself plus the metadata the node
// store needs: a deterministic id, the JSON content it was built from and a
// digest of that content.
package nodes

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"
	"golang.org/x/xerrors"

	"github.com/mandclu-acquia/next-drupal-interface-18n/internal/core"
)

const (
	// TypeName is the node type every translation node is registered under.
	TypeName = "DrupalTranslation"
	// MediaType describes Internal.Content.
	MediaType = "text/json"

	pluginName = "next-drupal-interface-i18n"
)

// SchemaSDL declares the DrupalTranslation node shape.
const SchemaSDL = `
    type DrupalTranslation implements Node {
      source: String
      translation: String
      langcode: String
    }
`

var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(pluginName))

// Internal is the node bookkeeping that is not part of the record.
type Internal struct {
	Type          string `json:"type"`
	MediaType     string `json:"mediaType"`
	Content       string `json:"content"`
	ContentDigest string `json:"contentDigest"`
}

// Node is a translation record registered with the node store.
type Node struct {
	core.Translation

	ID       string   `json:"id"`
	Parent   *string  `json:"parent"`
	Children []string `json:"children"`
	Internal Internal `json:"internal"`
}

// Process builds the node for one translation of source into langcode.
func Process(langcode, source, translation string) Node {
	record := core.Translation{
		Source:      source,
		Translation: translation,
		Langcode:    langcode,
	}
	content := Encode(record)

	return Node{
		Translation: record,
		ID:          ID(langcode, source),
		Children:    []string{},
		Internal: Internal{
			Type:          TypeName,
			MediaType:     MediaType,
			Content:       content,
			ContentDigest: ContentDigest(content),
		},
	}
}

// ID returns the deterministic node id for a (langcode, source) pair.
// Langcodes never contain NUL, so the encoding is unambiguous.
func ID(langcode, source string) string {
	return uuid.NewSHA1(namespace, []byte("drupal-translation-"+langcode+"\x00"+source)).String()
}

// ContentDigest is the hex md5 of the node content.
func ContentDigest(content string) string {
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Encode serializes a record as node content.
func Encode(t core.Translation) string {
	// a struct of three strings cannot fail to marshal
	b, _ := json.Marshal(t)
	return string(b)
}

// Decode parses node content back into its record.
func Decode(content string) (core.Translation, error) {
	var t core.Translation
	if err := json.Unmarshal([]byte(content), &t); err != nil {
		return core.Translation{}, xerrors.Errorf("decode node content: %w", err)
	}
	return t, nil
}

// Verify checks that the node's digest still matches its content.
func (n Node) Verify() error {
	if got := ContentDigest(n.Internal.Content); got != n.Internal.ContentDigest {
		return xerrors.Errorf("node %s: content digest %s does not match %s", n.ID, n.Internal.ContentDigest, got)
	}
	return nil
}
