package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/gravsim/internal/clock"
	"github.com/san-kum/gravsim/internal/physics"
	"github.com/san-kum/gravsim/internal/quadtree"
	"github.com/san-kum/gravsim/internal/sim"
	"github.com/san-kum/gravsim/internal/vec"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	statsWidth    = 40

	historyCapacity = 300

	// MaxStepsPerFrame bounds the physics work done for one frame.
	MaxStepsPerFrame = 1000

	// energy is O(n²); larger systems skip the graph
	maxEnergyBodies = 1500

	thetaStep = 0.1
	frameRate = time.Second / 30
)

type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// Model is the bubbletea model of the live view. It owns neither the
// simulation nor the clock; the caller closes the simulation afterwards.
type Model struct {
	sim     *sim.Simulation
	clock   *clock.Clock
	initial []physics.Body
	title   string

	canvas *Canvas
	view   Viewport
	theme  int
	styles styles

	showTree bool
	showHelp bool

	energy []float64
	frames int
	err    error
}

// NewModel shows s, which should already hold initial. Reset restores
// initial.
func NewModel(s *sim.Simulation, c *clock.Clock, initial []physics.Body, title string) Model {
	canvas := NewCanvas(defaultWidth-statsWidth-4, defaultHeight)
	return Model{
		sim:     s,
		clock:   c,
		initial: initial,
		title:   title,
		canvas:  canvas,
		view:    Fit(initial, canvas.PixelWidth(), canvas.PixelHeight()),
		styles:  newStyles(Themes[0]),
		energy:  make([]float64, 0, historyCapacity),
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.canvas.Resize(msg.Width-statsWidth-6, msg.Height-2)
	case TickMsg:
		m.clock.Tick(time.Time(msg))
		m.advance()
		return m, tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	pw := m.canvas.PixelWidth()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ":
		m.clock.TogglePause()
	case "enter":
		m.clock.StepOnce()
		m.advance()
	case "+", "=":
		m.clock.Faster(2)
	case "-", "_":
		m.clock.Slower(2)
	case "[":
		_ = m.sim.SetTheta(math.Max(0, m.sim.Theta()-thetaStep))
	case "]":
		_ = m.sim.SetTheta(m.sim.Theta() + thetaStep)
	case "t":
		m.showTree = !m.showTree
	case "c":
		m.theme = (m.theme + 1) % len(Themes)
		m.styles = newStyles(Themes[m.theme])
	case "r":
		m.reset()
	case "f":
		m.view = Fit(m.sim.Bodies(), pw, m.canvas.PixelHeight())
	case "z":
		m.view.Zoom(1.25)
	case "x":
		m.view.Zoom(0.8)
	case "left", "h":
		m.view.Pan(-0.1, 0, pw)
	case "right", "l":
		m.view.Pan(0.1, 0, pw)
	case "up", "k":
		m.view.Pan(0, 0.1, pw)
	case "down", "j":
		m.view.Pan(0, -0.1, pw)
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

// advance runs every step the clock has budgeted, up to MaxStepsPerFrame.
func (m *Model) advance() {
	if m.err != nil {
		return
	}

	stepped := 0
	for m.clock.ShouldStep() {
		if stepped == MaxStepsPerFrame {
			m.clock.Discard()
			break
		}
		if err := m.sim.Update(m.clock.Step()); err != nil {
			m.err = err
			if !m.clock.Paused() {
				m.clock.TogglePause()
			}
			return
		}
		m.clock.Consume()
		stepped++
	}

	if stepped > 0 {
		m.frames++
		m.recordEnergy()
	}
}

func (m *Model) recordEnergy() {
	if m.sim.Len() > maxEnergyBodies {
		return
	}
	m.energy = append(m.energy, m.sim.Energy())
	if len(m.energy) > historyCapacity {
		m.energy = m.energy[1:]
	}
}

func (m *Model) reset() {
	m.sim.Reset()
	if err := m.sim.AddBodies(m.initial); err != nil {
		m.err = err
		return
	}
	m.clock.Reset()
	m.energy = m.energy[:0]
	m.err = nil
	m.view = Fit(m.initial, m.canvas.PixelWidth(), m.canvas.PixelHeight())
}

func (m *Model) draw() {
	m.canvas.Clear()
	pw, ph := m.canvas.PixelWidth(), m.canvas.PixelHeight()

	if m.showTree {
		m.sim.Tree().Walk(func(_ int, n quadtree.Node) bool {
			if n.IsEmpty() {
				return true
			}
			half := n.Quad.Size / 2
			x0, y0 := m.view.ToPixel(n.Quad.Center.Sub(vec.New(half, -half)), pw, ph)
			x1, y1 := m.view.ToPixel(n.Quad.Center.Add(vec.New(half, -half)), pw, ph)
			m.canvas.DrawRect(x0, y0, x1, y1)
			return true
		})
	}

	for i := 0; i < m.sim.Len(); i++ {
		b := m.sim.Body(i)
		x, y := m.view.ToPixel(b.Pos, pw, ph)
		m.canvas.FillCircle(x, y, int(b.Radius*m.view.Scale))
	}
}

func (m Model) status() string {
	switch {
	case m.err != nil:
		return m.styles.failed.Render("HALTED")
	case m.clock.Paused():
		return m.styles.paused.Render("PAUSED")
	default:
		return "RUNNING"
	}
}

func (m Model) View() string {
	m.draw()
	st := m.styles
	canvasView := st.canvas.Render(m.canvas.String())

	row := func(label, value string) string {
		return st.label.Render(label) + st.value.Render(value) + "\n"
	}

	var s strings.Builder
	s.WriteString(st.header.Render(strings.ToUpper(m.title)) + "\n")
	s.WriteString(m.status() + "\n\n")

	s.WriteString(row("Time", fmt.Sprintf("%.4f yr", m.sim.Time())))
	s.WriteString(row("Steps", fmt.Sprintf("%d", m.sim.Steps())))
	s.WriteString(row("Bodies", fmt.Sprintf("%d", m.sim.Len())))
	s.WriteString(row("Nodes", fmt.Sprintf("%d", m.sim.Tree().Len())))
	s.WriteString(row("Theta", fmt.Sprintf("%.2f", m.sim.Theta())))
	s.WriteString(row("Softening", fmt.Sprintf("%.1e AU", m.sim.Epsilon())))
	s.WriteString(row("Scale", fmt.Sprintf("%.4f yr/s", m.clock.TimeScale())))
	s.WriteString(row("Workers", fmt.Sprintf("%d", m.sim.Workers())))

	if n := len(m.energy); n > 0 {
		s.WriteString(row("Energy", fmt.Sprintf("%.6e", m.energy[n-1])))
		if n > 1 && m.energy[0] != 0 {
			drift := make([]float64, n)
			for i, e := range m.energy {
				drift[i] = (e - m.energy[0]) / math.Abs(m.energy[0])
			}
			chart := asciigraph.Plot(drift, asciigraph.Height(4), asciigraph.Width(statsWidth-12), asciigraph.Caption("energy drift"))
			s.WriteString(st.graph.Render(chart) + "\n")
		}
	}

	if m.err != nil {
		s.WriteString("\n" + st.failed.Render(wrap(m.err.Error(), statsWidth-4)) + "\n")
	}

	if m.showHelp {
		s.WriteString(st.help.Render(helpText))
	} else {
		s.WriteString(st.help.Render("SP:Pause ⏎:Step Q:Quit ?:Help"))
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, canvasView, st.stats.Render(s.String()))
}

const helpText = `Space   pause / resume
Enter   single step while paused
+ -     time scale x2 / /2
[ ]     theta -/+ 0.1
t       tree overlay
c       cycle theme
r       reset
f       fit view
z x     zoom in / out
arrows  pan
q       quit`

func wrap(s string, width int) string {
	if len(s) <= width {
		return s
	}
	var b strings.Builder
	for len(s) > width {
		b.WriteString(s[:width] + "\n")
		s = s[width:]
	}
	b.WriteString(s)
	return b.String()
}

// Run starts the live view on the alternate screen and blocks until the user
// quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
