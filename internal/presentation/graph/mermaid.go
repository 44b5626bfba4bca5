package graph

import (
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/flow"
)

// Overlay marks the position of one session on the graph.
type Overlay struct {
	// Visited lists (flow, step) pairs already passed, oldest first.
	Visited []domain.Snapshot
	Flow    domain.FlowID
	Step    domain.StepID
}

// OverlayFor builds the overlay for s.
func OverlayFor(s *domain.Session) *Overlay {
	o := &Overlay{Flow: s.State, Step: s.Step}
	if s.History != nil {
		o.Visited = s.History.Entries()
	}
	return o
}

// GenerateMermaid renders the catalog as a Mermaid flowchart: one subgraph
// per flow, steps chained in declaration order and dotted hand-off edges
// between flows.
//
// Shapes:
//   - entry: ((Circle))
//   - media step (image or voice): [/Parallelogram/]
//   - button-only step: {{Hexagon}}
//   - default: [Rectangle]
//
// Optional steps carry a "(optional)" label.
func GenerateMermaid(c *flow.Catalog, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	entry := c.Entry()
	fmt.Fprintf(&sb, "    start((\"start\")) --> %s\n", anchor(c, entry))

	for _, def := range c.Flows() {
		steps := def.Steps()
		fmt.Fprintf(&sb, "    subgraph %s[\"%s\"]\n", sanitizeMermaidID(string(def.ID)), escape(title(def)))
		if len(steps) == 0 {
			fmt.Fprintf(&sb, "        %s[\"%s\"]\n", nodeID(def.ID, ""), escape(title(def)))
		}
		for _, st := range steps {
			opener, closer := shape(st)
			label := string(st.Name)
			if st.Conditional() {
				label += " <br/> (optional)"
			}
			fmt.Fprintf(&sb, "        %s%s\"%s\"%s\n", nodeID(def.ID, st.Name), opener, label, closer)
		}
		for i := 1; i < len(steps); i++ {
			fmt.Fprintf(&sb, "        %s --> %s\n", nodeID(def.ID, steps[i-1].Name), nodeID(def.ID, steps[i].Name))
		}
		sb.WriteString("    end\n")
	}

	sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", nodeID(domain.FlowCompletion, ""), domain.FlowCompletion))
	for _, def := range c.Flows() {
		for _, to := range def.Successors() {
			fmt.Fprintf(&sb, "    %s -.-> %s\n", exit(def), anchor(c, to))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, snap := range overlay.Visited {
			if !c.Has(snap.State, snap.Step) {
				continue
			}
			id := nodeID(snap.State, snap.Step)
			if !seen[id] {
				seen[id] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", id)
			}
		}
		if c.Has(overlay.Flow, overlay.Step) {
			fmt.Fprintf(&sb, "    class %s current;\n", nodeID(overlay.Flow, overlay.Step))
		}
	}

	return sb.String()
}

func title(def *flow.Definition) string {
	if def.Title != "" {
		return def.Title
	}
	return string(def.ID)
}

func shape(st *flow.Step) (string, string) {
	m := st.Modalities()
	switch {
	case slices.Contains(m, domain.ModalityImage) || slices.Contains(m, domain.ModalityVoice):
		return "[/", "/]"
	case len(m) == 1 && m[0] == domain.ModalityButton:
		return "{{", "}}"
	}
	return "[", "]"
}

// anchor is the node a hand-off into id lands on.
func anchor(c *flow.Catalog, id domain.FlowID) string {
	def, ok := c.Get(id)
	if !ok {
		return nodeID(id, "")
	}
	steps := def.Steps()
	if len(steps) == 0 {
		return nodeID(id, "")
	}
	return nodeID(id, steps[0].Name)
}

// exit is the node a hand-off out of def leaves from.
func exit(def *flow.Definition) string {
	steps := def.Steps()
	if len(steps) == 0 {
		return nodeID(def.ID, "")
	}
	return nodeID(def.ID, steps[len(steps)-1].Name)
}

func nodeID(f domain.FlowID, s domain.StepID) string {
	if s == "" {
		return sanitizeMermaidID(string(f)) + "__node"
	}
	return sanitizeMermaidID(string(f) + "." + string(s))
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
