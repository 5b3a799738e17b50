package viz

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/golang/geo/r3"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/pushctl/internal/contact"
	"github.com/san-kum/pushctl/internal/controller"
	"github.com/san-kum/pushctl/internal/recorder"
	"github.com/san-kum/pushctl/internal/trial"
)

const (
	width           = 60
	height          = 24
	historyCapacity = 600
	trailCapacity   = 400
	minSpan         = 0.30
)

// Snapshot is what the view needs from one tick, kept for replay.
type Snapshot struct {
	Tick     int
	Elapsed  float64
	Object   r3.Vector
	Effector r3.Vector
	Error    float64
	Contact  float64
	Phase    controller.Phase
}

type TickMsg time.Time

// BuildFunc returns a fresh, unstarted trial.
type BuildFunc func() (*trial.Trial, error)

// Model steps one trial per TickMsg and draws it from above.
type Model struct {
	ctx    context.Context
	build  BuildFunc
	period time.Duration
	title  string

	trial   *trial.Trial
	contact *contact.Monitor
	frame   Frame
	goal    r3.Vector
	timeout float64
	done    bool
	record  recorder.TrialRecord
	err     error

	canvas   *Canvas
	styles   styles
	running  bool
	history  []Snapshot
	trail    []r3.Vector
	playHead int
	showHelp bool
}

// NewModel builds and starts the first trial. rate sets the redraw cadence.
func NewModel(ctx context.Context, title string, rate float64, build BuildFunc) (Model, error) {
	if rate <= 0 {
		rate = 60
	}
	m := Model{
		ctx:      ctx,
		build:    build,
		period:   time.Duration(float64(time.Second) / rate),
		title:    title,
		canvas:   NewCanvas(width, height),
		styles:   newStyles(Themes[0]),
		playHead: -1,
	}
	if err := m.restart(); err != nil {
		return Model{}, err
	}
	return m, nil
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.period, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.trial.Close()
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			if err := m.restart(); err != nil {
				m.err = err
			}
		case "[":
			m.scrub(-1)
		case "]":
			m.scrub(1)
		case "t":
			m.styles = newStyles(NextTheme(m.styles.theme.Name))
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.running {
			if m.playHead == -1 {
				m.step()
			} else {
				m.playHead++
				if m.playHead >= len(m.history) {
					m.playHead = -1
				}
			}
		}
		return m, m.tick()
	}
	return m, nil
}

// restart closes the current trial, if any, and starts a fresh one.
func (m *Model) restart() error {
	if m.trial != nil {
		m.trial.Close()
	}
	t, err := m.build()
	if err != nil {
		return err
	}
	if err := t.Start(m.ctx); err != nil {
		t.Close()
		return err
	}
	s := t.Settings()
	m.trial = t
	m.contact = contact.NewMonitor(s.ContactThreshold)
	m.goal = t.Goal().Position()
	m.timeout = s.Timeout.Seconds()
	m.done, m.err = false, nil
	m.record = recorder.TrialRecord{}
	m.running = true
	m.history = m.history[:0]
	m.trail = m.trail[:0]
	m.playHead = -1

	start := t.Observation().Object
	span := math.Max(minSpan, 2.5*math.Hypot(m.goal.X-start.X, m.goal.Y-start.Y))
	m.frame = NewFrame(m.canvas, start.Add(m.goal).Mul(0.5), span)
	m.snapshot()
	return nil
}

// step advances the trial by one tick.
func (m *Model) step() {
	if m.done {
		return
	}
	done, err := m.trial.Tick(m.ctx)
	if err != nil {
		m.err, m.done, m.running = err, true, false
		return
	}
	if done {
		m.record, _ = m.trial.Record()
		m.done = true
	}
	m.snapshot()
}

func (m *Model) snapshot() {
	obs := m.trial.Observation()
	m.history = append(m.history, Snapshot{
		Tick:     m.trial.Ticks(),
		Elapsed:  m.trial.Elapsed().Seconds(),
		Object:   obs.Object,
		Effector: obs.EndEffector,
		Error:    m.trial.Error().Magnitude,
		Contact:  m.contact.Magnitude(obs),
		Phase:    m.trial.Controller().Phase(),
	})
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}
	m.trail = append(m.trail, obs.Object)
	if len(m.trail) > trailCapacity {
		m.trail = m.trail[1:]
	}
}

// scrub changes the playback position in history.
func (m *Model) scrub(dir int) {
	if m.playHead == -1 {
		if len(m.history) == 0 {
			return
		}
		m.playHead = len(m.history) - 1
		m.running = false
	}
	m.playHead += dir
	if m.playHead < 0 {
		m.playHead = 0
	}
	if m.playHead >= len(m.history) {
		m.playHead = -1
	}
}

// current is the snapshot on screen: the playhead or the latest tick.
func (m Model) current() Snapshot {
	if m.playHead >= 0 && m.playHead < len(m.history) {
		return m.history[m.playHead]
	}
	return m.history[len(m.history)-1]
}

func (m Model) draw(s Snapshot) {
	c, f := m.canvas, m.frame
	c.Clear()

	for i := 1; i < len(m.trail); i++ {
		x0, y0 := f.Project(m.trail[i-1])
		x1, y1 := f.Project(m.trail[i])
		c.DrawLine(x0, y0, x1, y1)
	}

	ox, oy := f.Project(s.Object)
	gx, gy := f.Project(m.goal)
	c.DrawDashed(ox, oy, gx, gy, 1, 2)
	c.DrawDiamond(gx, gy, 3)
	c.DrawSquare(ox, oy, f.Dots(0.02))

	ex, ey := f.Project(s.Effector)
	c.DrawCross(ex, ey, 2)
}

func (m Model) statusLine() string {
	st := m.styles
	switch {
	case m.err != nil:
		return st.failure.Render("ERROR")
	case m.done:
		return st.status(m.record.Status).Render(strings.ToUpper(m.record.Status.String()))
	case m.playHead != -1:
		latest := m.history[len(m.history)-1].Elapsed
		label := "REPLAY"
		if !m.running {
			label = "REPLAY PAUSED"
		}
		return st.paused.Render(fmt.Sprintf("%s (%.1fs)", label, m.history[m.playHead].Elapsed-latest))
	case !m.running:
		return st.paused.Render("PAUSED")
	}
	return st.running.Render("RUNNING")
}

func (m Model) View() string {
	st := m.styles
	snap := m.current()
	m.draw(snap)
	canvasView := st.canvas.Render(m.canvas.String())

	var s strings.Builder
	s.WriteString(gradient(strings.ToUpper(m.title), st.theme.Primary, st.theme.Accent) + "\n\n")
	s.WriteString(m.statusLine() + "\n\n")

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Phase", snap.Phase.String())
	row("Tick", fmt.Sprintf("%d", snap.Tick))
	row("Elapsed", fmt.Sprintf("%.2fs / %.0fs", snap.Elapsed, m.timeout))
	s.WriteString(st.label.Render("") + st.progressBar(snap.Elapsed/m.timeout, 20) + "\n")
	row("Error", fmt.Sprintf("%.4f m", snap.Error))
	row("Contact", fmt.Sprintf("%.5f", snap.Contact))
	row("Height", fmt.Sprintf("%+.4f m", snap.Effector.Z-snap.Object.Z))

	errs := make([]float64, len(m.history))
	contacts := make([]float64, len(m.history))
	for i, h := range m.history {
		errs[i], contacts[i] = h.Error, h.Contact
	}
	if len(errs) > 1 {
		chart := asciigraph.Plot(errs, asciigraph.Height(5), asciigraph.Width(34), asciigraph.Caption("error (m)"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}
	s.WriteString(st.label.Render("force") + st.muted.Render(sparkline(contacts, 30)) + "\n")

	if m.done && m.err == nil {
		s.WriteString("\n" + st.header.Render(recorder.Format(m.record)) + "\n")
		values := m.trial.Metrics()
		names := make([]string, 0, len(values))
		for k := range values {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			row(k, fmt.Sprintf("%.4g", values[k]))
		}
	}
	if m.err != nil {
		s.WriteString("\n" + st.failure.Render(m.err.Error()) + "\n")
	}

	s.WriteString(st.help.Render("SP:Pause R:Restart Q:Quit\nT:Theme [ ]:Replay ?:Help"))
	statsView := st.panel.Render(s.String())
	mainView := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, statsView)
	if m.showHelp {
		return helpText + "\n\n" + mainView
	}
	return mainView
}

const helpText = `
╔══════════════════════════════════════╗
║           KEYBOARD SHORTCUTS         ║
╠══════════════════════════════════════╣
║  Space    - Pause/Resume trial       ║
║  R        - Restart trial            ║
║  Q        - Quit                     ║
║  [        - Step back through replay ║
║  ]        - Step forward             ║
║  T        - Cycle themes             ║
║  ?        - Toggle this help         ║
║                                      ║
║  ◇ goal   □ object   × end-effector  ║
╚══════════════════════════════════════╝`

// Run shows a single trial until the user quits.
func Run(ctx context.Context, title string, rate float64, build BuildFunc) error {
	m, err := NewModel(ctx, title, rate, build)
	if err != nil {
		return err
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
