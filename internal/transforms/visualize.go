package transforms

import (
	"encoding/json"
	"fmt"
	"strings"
)

// VisualizationFormat is the output format of Visualize.
type VisualizationFormat string

const (
	FormatText    VisualizationFormat = "text"
	FormatMermaid VisualizationFormat = "mermaid"
	FormatDOT     VisualizationFormat = "dot"
	FormatJSON    VisualizationFormat = "json"
)

// Visualize renders the resolved chain.
func (c *Chain) Visualize(format VisualizationFormat) (string, error) {
	switch format {
	case FormatText, "":
		return c.visualizeText(), nil
	case FormatMermaid:
		return c.visualizeMermaid(), nil
	case FormatDOT:
		return c.visualizeDOT(), nil
	case FormatJSON:
		return c.visualizeJSON()
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

type edge struct{ from, to string }

// edges lists ordering constraints between enabled transformers.
func (c *Chain) edges() []edge {
	enabled := make(map[string]bool, len(c.ordered))
	for _, t := range c.ordered {
		enabled[t.Name()] = true
	}
	var out []edge
	for _, t := range c.ordered {
		deps := t.Dependencies()
		for _, dep := range deps.MustRunAfter {
			if enabled[dep] {
				out = append(out, edge{dep, t.Name()})
			}
		}
		for _, after := range deps.MustRunBefore {
			if enabled[after] {
				out = append(out, edge{t.Name(), after})
			}
		}
	}
	return out
}

func (c *Chain) byStage() map[Stage][]Transformer {
	out := make(map[Stage][]Transformer)
	for _, t := range c.ordered {
		out[t.Stage()] = append(out[t.Stage()], t)
	}
	return out
}

func (c *Chain) visualizeText() string {
	var sb strings.Builder
	sb.WriteString("Transformer Chain\n")
	sb.WriteString("=================\n\n")

	byStage := c.byStage()
	var phase Phase
	for i, stage := range StageOrder {
		stageTransformers := byStage[stage]
		if len(stageTransformers) == 0 {
			continue
		}
		if stage.Phase() != phase {
			phase = stage.Phase()
			fmt.Fprintf(&sb, "── %s phase ──\n", phase)
		}
		fmt.Fprintf(&sb, "┌─ Stage %d: %s\n", i+1, stage)
		for j, t := range stageTransformers {
			prefix := "├──"
			if j == len(stageTransformers)-1 {
				prefix = "└──"
			}
			fmt.Fprintf(&sb, "│ %s [%s]\n", prefix, t.Name())
			deps := t.Dependencies()
			if len(deps.MustRunAfter) > 0 {
				fmt.Fprintf(&sb, "│       ⤷ after: %s\n", strings.Join(deps.MustRunAfter, ", "))
			}
			if len(deps.Requires) > 0 {
				fmt.Fprintf(&sb, "│       ⤷ requires: %s\n", strings.Join(deps.Requires, ", "))
			}
		}
		sb.WriteString("│\n")
	}
	fmt.Fprintf(&sb, "Total: %d transformers across %d stages\n", len(c.ordered), len(byStage))
	return sb.String()
}

func mermaidID(name string) string {
	return strings.NewReplacer("_", "", "-", "").Replace(name)
}

func (c *Chain) visualizeMermaid() string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	byStage := c.byStage()
	for _, stage := range StageOrder {
		if len(byStage[stage]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "    subgraph %s[\"Stage: %s\"]\n", stage, stage)
		for _, t := range byStage[stage] {
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", mermaidID(t.Name()), t.Name())
		}
		sb.WriteString("    end\n")
	}
	for _, e := range c.edges() {
		fmt.Fprintf(&sb, "    %s --> %s\n", mermaidID(e.from), mermaidID(e.to))
	}
	return sb.String()
}

func (c *Chain) visualizeDOT() string {
	var sb strings.Builder
	sb.WriteString("digraph TransformerChain {\n")
	sb.WriteString("    rankdir=TB;\n")
	sb.WriteString("    node [shape=box, style=rounded];\n\n")
	byStage := c.byStage()
	for i, stage := range StageOrder {
		if len(byStage[stage]) == 0 {
			continue
		}
		fmt.Fprintf(&sb, "    subgraph cluster_%d {\n", i)
		fmt.Fprintf(&sb, "        label=\"Stage: %s\";\n", stage)
		for _, t := range byStage[stage] {
			fmt.Fprintf(&sb, "        %q;\n", t.Name())
		}
		sb.WriteString("    }\n")
	}
	for _, e := range c.edges() {
		fmt.Fprintf(&sb, "    %q -> %q;\n", e.from, e.to)
	}
	sb.WriteString("}\n")
	return sb.String()
}

type jsonTransformer struct {
	Name          string   `json:"name"`
	Stage         Stage    `json:"stage"`
	Phase         Phase    `json:"phase"`
	Order         int      `json:"order"`
	MustRunAfter  []string `json:"mustRunAfter"`
	MustRunBefore []string `json:"mustRunBefore"`
	Requires      []string `json:"requires"`
}

func (c *Chain) visualizeJSON() (string, error) {
	out := struct {
		Transformers []jsonTransformer `json:"transformers"`
		Warnings     []string          `json:"warnings,omitempty"`
	}{Warnings: c.warnings}
	for i, t := range c.ordered {
		deps := t.Dependencies()
		out.Transformers = append(out.Transformers, jsonTransformer{
			Name:          t.Name(),
			Stage:         t.Stage(),
			Phase:         t.Stage().Phase(),
			Order:         i + 1,
			MustRunAfter:  nonNil(deps.MustRunAfter),
			MustRunBefore: nonNil(deps.MustRunBefore),
			Requires:      nonNil(deps.Requires),
		})
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data) + "\n", nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
