// Package prompt loads chat prompts written as markdown with YAML frontmatter.
package prompt

import (
	"bufio"
	"bytes"
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults/*.md
var defaultFS embed.FS

// DefaultSlug is the built-in script prompt.
const DefaultSlug = "reel-script"

// Config is the frontmatter of a prompt file.
type Config struct {
	Slug              string   `yaml:"slug"`
	Description       string   `yaml:"description,omitempty"`
	Temperature       *float64 `yaml:"temperature,omitempty"`
	MaxTokens         *int     `yaml:"max_tokens,omitempty"`
	ResponseFormat    string   `yaml:"response_format,omitempty"`
	RequiredVariables []string `yaml:"required_variables,omitempty"`
	SystemTemplate    string   `yaml:"system_template,omitempty"`
	UserTemplate      string   `yaml:"user_template,omitempty"`
}

// Prompt is a parsed prompt with its source.
type Prompt struct {
	Config Config
	Source string
}

// Load parses a prompt definition from markdown with YAML frontmatter.
// The markdown body becomes the system template unless one is set explicitly.
func Load(source string, data []byte) (*Prompt, error) {
	cfg, body, err := parseFrontmatter(data)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %s: %w", source, err)
	}

	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		cfg.SystemTemplate = strings.TrimSpace(body)
	}
	if strings.TrimSpace(cfg.Slug) == "" {
		return nil, fmt.Errorf("prompt %s missing slug", source)
	}
	if strings.TrimSpace(cfg.SystemTemplate) == "" {
		return nil, fmt.Errorf("prompt %s missing system_template", source)
	}

	return &Prompt{Config: cfg, Source: source}, nil
}

// LoadFile reads a prompt from disk.
func LoadFile(path string) (*Prompt, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- prompt path is user-provided
	if err != nil {
		return nil, fmt.Errorf("read prompt %s: %w", path, err)
	}
	return Load(path, data)
}

// Default returns the embedded prompt for slug.
func Default(slug string) (*Prompt, error) {
	path := "defaults/" + slug + ".md"
	data, err := defaultFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unknown prompt: %s", slug)
	}
	return Load("embedded:"+path, data)
}

// Render fills the templates with vars and returns the system and user messages.
func (p *Prompt) Render(vars map[string]string) (string, string, error) {
	if p == nil {
		return "", "", fmt.Errorf("prompt is required")
	}

	var missing []string
	for _, name := range p.Config.RequiredVariables {
		if strings.TrimSpace(vars[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", "", fmt.Errorf("prompt %s: invalid input, missing variables: %s", p.Config.Slug, strings.Join(missing, ", "))
	}

	user := p.Config.UserTemplate
	if strings.TrimSpace(user) == "" {
		user = "{{product}}"
	}
	return strings.TrimSpace(applyVars(p.Config.SystemTemplate, vars)), strings.TrimSpace(applyVars(user, vars)), nil
}

func applyVars(template string, vars map[string]string) string {
	result := template
	for key, value := range vars {
		result = strings.ReplaceAll(result, "{{"+key+"}}", value)
	}
	return result
}

func parseFrontmatter(data []byte) (Config, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return Config{}, "", fmt.Errorf("empty prompt")
	}

	lines := bufio.NewScanner(bytes.NewReader(trimmed))
	lines.Split(bufio.ScanLines)

	var (
		frontmatter []string
		body        []string
		inFront     bool
		headerSeen  bool
	)

	for lines.Scan() {
		line := lines.Text()
		switch {
		case !headerSeen && strings.TrimSpace(line) == "---":
			headerSeen = true
			inFront = true
		case headerSeen && inFront && strings.TrimSpace(line) == "---":
			inFront = false
		default:
			if inFront {
				frontmatter = append(frontmatter, line)
			} else {
				body = append(body, line)
			}
		}
	}
	if err := lines.Err(); err != nil {
		return Config{}, "", err
	}

	var cfg Config
	if headerSeen {
		if err := yaml.Unmarshal([]byte(strings.Join(frontmatter, "\n")), &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid frontmatter: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(trimmed, &cfg); err != nil {
			return Config{}, "", fmt.Errorf("invalid yaml: %w", err)
		}
	}

	return cfg, strings.Join(body, "\n"), nil
}
