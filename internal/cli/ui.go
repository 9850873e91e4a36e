package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/bpedit/pkg/graph"
)

// Palette. Wire colours match the in-game circuit wires.
var (
	colorAccent = lipgloss.Color("36")
	colorOK     = lipgloss.Color("35")
	colorWarn   = lipgloss.Color("220")
	colorFail   = lipgloss.Color("167")
	colorCmd    = lipgloss.Color("75")
	colorText   = lipgloss.Color("255")
	colorMuted  = lipgloss.Color("245")
	colorFaint  = lipgloss.Color("240")

	colorWireRed   = lipgloss.Color("160")
	colorWireGreen = lipgloss.Color("40")
)

// Exported styles are shared with the interactive views.
var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorAccent)
	StyleDim       = lipgloss.NewStyle().Foreground(colorFaint)
	StyleValue     = lipgloss.NewStyle().Foreground(colorText)
	StyleNumber    = lipgloss.NewStyle().Foreground(colorAccent)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorOK)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorWarn)
)

var (
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorAccent)
	styleCommand     = lipgloss.NewStyle().Foreground(colorCmd)
	styleKey         = lipgloss.NewStyle().Foreground(colorMuted).Width(12)

	styleWire = map[graph.WireColor]lipgloss.Style{
		graph.Red:   lipgloss.NewStyle().Foreground(colorWireRed),
		graph.Green: lipgloss.NewStyle().Foreground(colorWireGreen),
	}
)

// statusLevel selects the icon and colour of a status line.
type statusLevel int

const (
	levelSuccess statusLevel = iota
	levelError
	levelWarning
	levelInfo
	levelUndo
	levelRedo
)

var statusIcons = [...]struct {
	icon  string
	style lipgloss.Style
}{
	levelSuccess: {"✓", lipgloss.NewStyle().Foreground(colorOK)},
	levelError:   {"✗", lipgloss.NewStyle().Foreground(colorFail)},
	levelWarning: {"!", lipgloss.NewStyle().Foreground(colorWarn)},
	levelInfo:    {"›", lipgloss.NewStyle().Foreground(colorMuted)},
	levelUndo:    {"↶", lipgloss.NewStyle().Foreground(colorWarn)},
	levelRedo:    {"↷", lipgloss.NewStyle().Foreground(colorOK)},
}

// statusOut receives status lines. Command results go to the command's
// output so that they can be piped.
var statusOut io.Writer = os.Stderr

func status(level statusLevel, msg string) {
	s := statusIcons[level]
	fmt.Fprintln(statusOut, s.style.Render(s.icon)+" "+msg)
}

func printSuccess(format string, args ...any) { status(levelSuccess, fmt.Sprintf(format, args...)) }
func printError(format string, args ...any)   { status(levelError, fmt.Sprintf(format, args...)) }
func printInfo(format string, args ...any)    { status(levelInfo, fmt.Sprintf(format, args...)) }

func printWarning(format string, args ...any) {
	status(levelWarning, StyleWarning.Render(fmt.Sprintf(format, args...)))
}

// printDetail prints an indented secondary line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints the path of a written file.
func printFile(path string) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render("→")+" "+StyleValue.Render(path))
}

// printKeyValue prints a labeled value to w.
func printKeyValue(w io.Writer, key, value string) {
	fmt.Fprintln(w, styleKey.Render(key)+" "+StyleValue.Render(value))
}

// printStep prints an undo or redo step with the annotation it replayed.
func printStep(undo bool, annotation string) {
	if undo {
		status(levelUndo, annotation)
		return
	}
	status(levelRedo, annotation)
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(statusOut, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

// blueprintStats summarises a blueprint for status output. Wires is keyed
// by circuit colour; a nil map means wire counts are unknown.
type blueprintStats struct {
	Entities int
	Tiles    int
	Wires    map[graph.WireColor]int
}

func statsOf(g *graph.Graph) blueprintStats {
	st := blueprintStats{
		Entities: g.EntityCount(),
		Tiles:    g.TileCount(),
		Wires:    make(map[graph.WireColor]int),
	}
	for _, w := range g.Wires() {
		st.Wires[w.Color]++
	}
	return st
}

func (st blueprintStats) String() string {
	parts := []string{fmt.Sprintf("%d entities", st.Entities)}
	for _, c := range []graph.WireColor{graph.Red, graph.Green} {
		if n := st.Wires[c]; n > 0 {
			parts = append(parts, styleWire[c].Render(fmt.Sprintf("%d %s", n, c))+StyleDim.Render(" wires"))
		}
	}
	if st.Tiles > 0 {
		parts = append(parts, fmt.Sprintf("%d tiles", st.Tiles))
	}
	return strings.Join(parts, StyleDim.Render(" · "))
}

// printStats prints blueprint counts on a single line.
func printStats(st blueprintStats) {
	fmt.Fprintln(statusOut, "  "+StyleDim.Render(st.String()))
}
