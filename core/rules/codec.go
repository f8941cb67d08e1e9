package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gaurav-prasanna/parapipe/core"
)

// FormatVersion is written into every export.
const FormatVersion = "1.0"

// ErrUnknownFormat is returned for an unsupported rule file format.
var ErrUnknownFormat = errors.New("unknown rule format")

// Format is a persisted rule encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the codec from a file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// export is the persisted envelope.
type export struct {
	FormatVersion string   `json:"format_version" yaml:"format_version"`
	ExportedAt    string   `json:"exported_at,omitempty" yaml:"exported_at,omitempty"`
	Rules         []record `json:"rules" yaml:"rules"`
}

// record is one persisted rule. Priority is a pointer so an omitted field
// falls back to DefaultPriority rather than zero.
type record struct {
	ID          string       `json:"id" yaml:"id"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty"`
	Conditions  []Condition  `json:"conditions" yaml:"conditions"`
	Action      actionRecord `json:"action" yaml:"action"`
	Priority    *int         `json:"priority,omitempty" yaml:"priority,omitempty"`
	CreatedAt   string       `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// actionRecord reads either a plain label string or the rule-trainer
// object form {"classify_as": "Heading 1", "set_style": {...}}. It always
// writes the plain string.
type actionRecord core.Action

type classifyAs struct {
	ClassifyAs string `json:"classify_as" yaml:"classify_as"`
}

func (a actionRecord) MarshalJSON() ([]byte, error) { return json.Marshal(string(a)) }

func (a *actionRecord) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = actionRecord(s)
		return nil
	}
	var obj classifyAs
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("action must be a label or {\"classify_as\": label}: %w", err)
	}
	*a = actionRecord(obj.ClassifyAs)
	return nil
}

func (a actionRecord) MarshalYAML() (any, error) { return string(a), nil }

func (a *actionRecord) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*a = actionRecord(node.Value)
		return nil
	case yaml.MappingNode:
		var obj classifyAs
		if err := node.Decode(&obj); err != nil {
			return err
		}
		*a = actionRecord(obj.ClassifyAs)
		return nil
	default:
		return fmt.Errorf("line %d: action must be a label or a classify_as mapping", node.Line)
	}
}

func toRecord(r Rule) record {
	prio := r.Priority
	return record{
		ID:          r.ID,
		Description: r.Description,
		Conditions:  r.Conditions,
		Action:      actionRecord(r.Action),
		Priority:    &prio,
		CreatedAt:   r.CreatedAt,
	}
}

func (rec record) toRule() Rule {
	prio := DefaultPriority
	if rec.Priority != nil {
		prio = *rec.Priority
	}
	conds := rec.Conditions
	if conds == nil {
		conds = []Condition{}
	}
	return Rule{
		ID:          rec.ID,
		Description: rec.Description,
		Conditions:  conds,
		Action:      core.Action(rec.Action),
		Priority:    prio,
		CreatedAt:   rec.CreatedAt,
	}
}

// Export writes rules in evaluation order using the given format.
func Export(w io.Writer, rules []Rule, format Format) error {
	env := export{
		FormatVersion: FormatVersion,
		ExportedAt:    time.Now().UTC().Format(time.RFC3339),
		Rules:         make([]record, 0, len(rules)),
	}
	for _, r := range rules {
		env.Rules = append(env.Rules, toRecord(r))
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("encoding rules as JSON: %w", err)
		}
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(env); err != nil {
			return fmt.Errorf("encoding rules as YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return fmt.Errorf("flushing YAML: %w", err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return nil
}

// Import reads rules written by Export. A bare list of rules (no envelope)
// is accepted too.
func Import(r io.Reader, format Format) ([]Rule, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading rules: %w", err)
	}

	var recs []record
	switch format {
	case FormatJSON:
		trimmed := bytes.TrimSpace(data)
		if len(trimmed) > 0 && trimmed[0] == '[' {
			err = json.Unmarshal(trimmed, &recs)
		} else {
			var env export
			err = json.Unmarshal(trimmed, &env)
			recs = env.Rules
		}
		if err != nil {
			return nil, fmt.Errorf("decoding JSON rules: %w", err)
		}
	case FormatYAML:
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, fmt.Errorf("decoding YAML rules: %w", err)
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Content[0].Decode(&recs)
		} else if len(node.Content) > 0 {
			var env export
			err = node.Content[0].Decode(&env)
			recs = env.Rules
		}
		if err != nil {
			return nil, fmt.Errorf("decoding YAML rules: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	out := make([]Rule, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toRule())
	}
	return out, nil
}

// LoadFile reads a rule file, choosing the codec by extension.
func LoadFile(path string) ([]Rule, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening rules %s: %w", path, err)
	}
	defer f.Close()

	rules, err := Import(f, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rules, nil
}

// SaveFile writes rules to path, choosing the codec by extension.
func SaveFile(path string, rules []Rule) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Export(&buf, rules, format); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing rules %s: %w", path, err)
	}
	return nil
}
