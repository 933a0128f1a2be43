package fsadapter

import (
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yeseh/cortex/internal/cortexerr"
	"github.com/yeseh/cortex/internal/model"
)

// delimiter separates the YAML front matter from the content body.
const delimiter = "---"

// frontMatter is the on-disk shape of MemoryMetadata (spec.md §6).
// Unknown keys round-trip via the Extra map so writers preserve fields the
// engine doesn't itself interpret.
type frontMatter struct {
	CreatedAt time.Time      `yaml:"created_at"`
	UpdatedAt time.Time      `yaml:"updated_at"`
	Tags      []string       `yaml:"tags,omitempty"`
	Source    string         `yaml:"source,omitempty"`
	Citations []string       `yaml:"citations,omitempty"`
	ExpiresAt *time.Time     `yaml:"expires_at,omitempty"`
	Summary   *string        `yaml:"summary,omitempty"`
	Extra     map[string]any `yaml:",inline"`
}

// serializeMemory renders a Memory as front-matter + body.
func serializeMemory(mem model.Memory) ([]byte, error) {
	fm := frontMatter{
		CreatedAt: mem.Metadata.CreatedAt,
		UpdatedAt: mem.Metadata.UpdatedAt,
		Tags:      mem.Metadata.Tags,
		Source:    string(mem.Metadata.Source),
		Citations: mem.Metadata.Citations,
		ExpiresAt: mem.Metadata.ExpiresAt,
		Summary:   mem.Metadata.Summary,
		Extra:     mem.Metadata.Extra,
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return nil, cortexerr.Wrap(cortexerr.SerializeFailed, "failed to serialize memory front matter", err)
	}

	var sb strings.Builder
	sb.WriteString(delimiter)
	sb.WriteString("\n")
	sb.Write(header)
	sb.WriteString(delimiter)
	sb.WriteString("\n")
	sb.WriteString(mem.Content)
	return []byte(sb.String()), nil
}

// parseMemory parses a document into its front-matter metadata and body.
// The caller assembles the Memory and fills in Path, since the path is
// derived from the file's location, not stored in the document.
func parseMemory(raw []byte) (model.MemoryMetadata, string, error) {
	text := string(raw)
	if !strings.HasPrefix(text, delimiter) {
		return model.MemoryMetadata{}, "", cortexerr.New(cortexerr.ParseFailed, "memory document is missing front matter delimiter").
			WithRemediation("the document must begin with a line of three dashes")
	}

	rest := text[len(delimiter):]
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "\n"+delimiter+"\n")
	var headerText, body string
	if end == -1 {
		// Allow a trailing delimiter with no following newline (EOF body).
		if strings.HasSuffix(rest, "\n"+delimiter) {
			headerText = rest[:len(rest)-len("\n"+delimiter)]
			body = ""
		} else {
			return model.MemoryMetadata{}, "", cortexerr.New(cortexerr.ParseFailed, "memory document is missing closing front matter delimiter").
				WithRemediation("ensure the front matter block is closed by a line of three dashes")
		}
	} else {
		headerText = rest[:end]
		body = rest[end+len("\n"+delimiter+"\n"):]
	}

	var fm frontMatter
	if err := yaml.Unmarshal([]byte(headerText), &fm); err != nil {
		return model.MemoryMetadata{}, "", cortexerr.Wrap(cortexerr.ParseFailed, "failed to parse memory front matter", err)
	}

	meta := model.MemoryMetadata{
		CreatedAt: fm.CreatedAt,
		UpdatedAt: fm.UpdatedAt,
		Tags:      fm.Tags,
		Source:    model.Source(fm.Source),
		Citations: fm.Citations,
		ExpiresAt: fm.ExpiresAt,
		Summary:   fm.Summary,
		Extra:     fm.Extra,
	}
	return meta, body, nil
}
