package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"autogif/internal/effects"
)

// StyleChoice holds the caption style picked in the setup carousel.
type StyleChoice struct {
	Cancelled bool
	Effect    string
	Intensity int
	FPS       float64
	Height    int
	Position  string
	Quantizer string
	Dither    bool
}

var intensityInfo = []struct{ name, desc string }{
	{"0", "Motionless. The effect keeps its look but stops moving"},
	{"25", "Subtle"},
	{"50", "Balanced, close to most effect defaults"},
	{"75", "Loud"},
	{"100", "Maximum travel, jitter and glow"},
}

var fpsInfo = []struct{ name, desc string }{
	{"8", "Choppy, smallest files"},
	{"10", "Default. Smooth enough for text animation"},
	{"12", "Smoother motion"},
	{"15", "Near video smoothness, larger files"},
	{"24", "Film rate. Files grow quickly"},
}

const fpsNote = "GIF delays are stored in hundredths of a second,\n" +
	"so rates that do not divide 100 alternate delays."

var heightInfo = []struct{ name, desc string }{
	{"240", "Chat sized"},
	{"360", "Small"},
	{"480", "Default"},
	{"720", "Large. Expect multi-megabyte files"},
}

var positionInfo = []struct{ name, desc string }{
	{"bottom", "Classic subtitle placement"},
	{"middle", "Centred on the frame"},
	{"top", "Above the action"},
}

var quantizerInfo = []struct{ name, desc string }{
	{"median-cut", "Palette built from each frame. Best colour"},
	{"plan9", "Fixed 256 colour palette. Fast, banding on skin"},
}

var ditherInfo = []struct{ name, desc string }{
	{"off", "Flat colour areas, smaller files"},
	{"on", "Floyd-Steinberg error diffusion, smoother gradients"},
}

type carouselRow struct {
	label   string
	options []string
	current int
}

type styleSetupModel struct {
	rows      []carouselRow
	effects   []effects.Descriptor
	focused   int
	done      bool
	cancelled bool
}

func newStyleSetupModel(descs []effects.Descriptor, current StyleChoice) styleSetupModel {
	slugs := make([]string, 0, len(descs))
	for _, d := range descs {
		slugs = append(slugs, d.Slug)
	}
	if len(slugs) == 0 {
		slugs = []string{"none"}
	}
	dither := "off"
	if current.Dither {
		dither = "on"
	}
	return styleSetupModel{
		effects: descs,
		rows: []carouselRow{
			{label: "Effect", options: slugs, current: findIdx(slugs, current.Effect, 0)},
			{label: "Intensity", options: names(intensityInfo), current: findIdx(names(intensityInfo), strconv.Itoa(current.Intensity), 2)},
			{label: "FPS", options: names(fpsInfo), current: findIdx(names(fpsInfo), strconv.FormatFloat(current.FPS, 'f', -1, 64), 1)},
			{label: "Height", options: names(heightInfo), current: findIdx(names(heightInfo), strconv.Itoa(current.Height), 2)},
			{label: "Position", options: names(positionInfo), current: findIdx(names(positionInfo), current.Position, 0)},
			{label: "Quantizer", options: names(quantizerInfo), current: findIdx(names(quantizerInfo), current.Quantizer, 0)},
			{label: "Dither", options: names(ditherInfo), current: findIdx(names(ditherInfo), dither, 0)},
		},
	}
}

func names(items []struct{ name, desc string }) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = item.name
	}
	return out
}

func findIdx(options []string, value string, defaultIdx int) int {
	if value == "" {
		return defaultIdx
	}
	for i, o := range options {
		if o == value {
			return i
		}
	}
	return defaultIdx
}

func (m styleSetupModel) Init() tea.Cmd {
	return nil
}

func (m styleSetupModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "up", "k":
		if m.focused > 0 {
			m.focused--
		}
	case "down", "j":
		if m.focused < len(m.rows)-1 {
			m.focused++
		}
	case "left", "h":
		row := m.rows[m.focused]
		row.current = (row.current - 1 + len(row.options)) % len(row.options)
		m.rows[m.focused] = row
	case "right", "l":
		row := m.rows[m.focused]
		row.current = (row.current + 1) % len(row.options)
		m.rows[m.focused] = row
	case "enter":
		m.done = true
		return m, tea.Quit
	case "esc", "q", "ctrl+c":
		m.cancelled = true
		return m, tea.Quit
	}
	return m, nil
}

func (m styleSetupModel) value(row int) string {
	r := m.rows[row]
	return r.options[r.current]
}

func (m styleSetupModel) View() string {
	faint := lipgloss.NewStyle().Faint(true)

	if m.cancelled {
		return faint.Render("  cancelled") + "\n"
	}

	var sb strings.Builder
	sb.WriteString("\n")
	if m.done {
		for i, row := range m.rows {
			fmt.Fprintf(&sb, "%s %s\n", faint.Render(fmt.Sprintf("  %-10s", row.label)), m.value(i))
		}
		sb.WriteString("\n")
		return sb.String()
	}

	focused := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("4"))
	for i, row := range m.rows {
		prefix, label := "  ", faint.Render(fmt.Sprintf("%-10s", row.label))
		if i == m.focused {
			prefix, label = "▸ ", focused.Render(fmt.Sprintf("%-10s", row.label))
		}
		fmt.Fprintf(&sb, "%s%s ←  %-14s→\n", prefix, label, m.value(i))
	}

	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1).
		BorderForeground(lipgloss.Color("8"))
	sb.WriteString("\n")
	sb.WriteString(panel.Render(m.helpPanel()))
	sb.WriteString("\n")
	sb.WriteString(faint.Render("  [↑↓] Navigate  [←→] Change  [Enter] Save  [Esc] Cancel"))
	sb.WriteString("\n")
	return sb.String()
}

func (m styleSetupModel) helpPanel() string {
	current := m.value(m.focused)
	switch m.focused {
	case 0:
		return m.effectPanel(current)
	case 1:
		return listPanel(current, intensityInfo, "")
	case 2:
		return listPanel(current, fpsInfo, fpsNote)
	case 3:
		return listPanel(current, heightInfo, "")
	case 4:
		return listPanel(current, positionInfo, "")
	case 5:
		return listPanel(current, quantizerInfo, "")
	case 6:
		return listPanel(current, ditherInfo, "")
	}
	return ""
}

func (m styleSetupModel) effectPanel(slug string) string {
	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	for _, d := range m.effects {
		if d.Slug != slug {
			continue
		}
		var sb strings.Builder
		sb.WriteString(bold.Render(d.DisplayName))
		sb.WriteString("\n")
		if d.Description != "" {
			sb.WriteString(d.Description)
			sb.WriteString("\n")
		}
		level := "caption"
		if d.WordLevel {
			level = "word"
		}
		sb.WriteString(faint.Render(fmt.Sprintf("%s effect, animates per %s, default intensity %d", d.Capability, level, d.DefaultIntensity)))
		return sb.String()
	}
	return faint.Render(slug)
}

func listPanel(current string, items []struct{ name, desc string }, note string) string {
	faint := lipgloss.NewStyle().Faint(true)
	bold := lipgloss.NewStyle().Bold(true)
	var sb strings.Builder
	for _, info := range items {
		prefix, nameStr := "  ", faint.Render(fmt.Sprintf("%-10s", info.name))
		if info.name == current {
			prefix, nameStr = "▸ ", bold.Render(fmt.Sprintf("%-10s", info.name))
		}
		fmt.Fprintf(&sb, "%s%s  %s\n", prefix, nameStr, info.desc)
	}
	if note != "" {
		sb.WriteString("\n")
		for _, line := range strings.Split(note, "\n") {
			sb.WriteString(faint.Render("  "+line) + "\n")
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (m styleSetupModel) result() StyleChoice {
	if m.cancelled || !m.done {
		return StyleChoice{Cancelled: true}
	}
	intensity, _ := strconv.Atoi(m.value(1))
	fps, _ := strconv.ParseFloat(m.value(2), 64)
	height, _ := strconv.Atoi(m.value(3))
	return StyleChoice{
		Effect:    m.value(0),
		Intensity: intensity,
		FPS:       fps,
		Height:    height,
		Position:  m.value(4),
		Quantizer: m.value(5),
		Dither:    m.value(6) == "on",
	}
}

// RunStyleSetup shows the interactive carousel pre-selected from current and
// returns what the user picked.
func RunStyleSetup(w io.Writer, descs []effects.Descriptor, current StyleChoice) (StyleChoice, error) {
	p := tea.NewProgram(newStyleSetupModel(descs, current), tea.WithOutput(w))
	finalModel, err := p.Run()
	if err != nil {
		return StyleChoice{}, err
	}
	return finalModel.(styleSetupModel).result(), nil
}
