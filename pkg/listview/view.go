// Package listview renders an accumulated item sequence as a scrollable
// terminal list with pull-to-refresh and end-reached continuation.
package listview

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	defaultThreshold = 2
	defaultHeight    = 10
	// rows used by the title, refresh banner, footer and help line
	chromeRows = 4
	// how often the source is re-read while a handler runs
	pollInterval = 100 * time.Millisecond
)

// ViewState is what a view needs from its data source.
type ViewState[T any] struct {
	Items   []T
	Loading bool
	Err     error
	// Refreshing is true while a visible refresh runs.
	Refreshing bool
	// RefreshPending is true while any refresh, visible or silent, runs.
	RefreshPending bool
}

// Source supplies the state rendered by a View.
type Source[T any] interface {
	ViewState() ViewState[T]
}

// LoadingComponent renders the loading indicator.
type LoadingComponent func() string

// ErrorComponent renders the current error.
type ErrorComponent func(err error) string

// Props configure a View.
type Props[T any] struct {
	// Title is rendered above the list when set.
	Title string

	// KeyFunc extracts a stable key used to keep the selection on the same
	// item across data changes. Without it the selection keeps its index.
	KeyFunc func(item T) string

	// ItemTemplate renders one row (default: fmt.Sprint).
	ItemTemplate func(item T) string

	// OnEndReached is called when the selection moves within Threshold
	// rows of the end.
	OnEndReached func(distanceFromEnd int)

	// OnRefresh is called when the user pulls to refresh.
	OnRefresh func()

	// Threshold is the end-reached distance in rows (default: 2).
	Threshold int

	// Height is the number of visible rows (default: 10, then the
	// terminal height).
	Height int

	// Loading and Error override the default footer components.
	Loading LoadingComponent
	Error   ErrorComponent
}

// SyncedMsg is delivered after a refresh or end-reached handler returns.
type SyncedMsg struct {
	// EndReached is set when the finished handler was OnEndReached.
	EndReached bool
}

// PollMsg re-reads the source while handlers are running, so loading and
// refresh indicators show up before the handler returns.
type PollMsg struct{}

// View is a bubbletea model bound to a Source.
type View[T any] struct {
	source Source[T]
	props  Props[T]

	state       ViewState[T]
	cursor      int
	offset      int
	height      int
	selectedKey string
	// endPending suppresses new end-reached calls until the last returns.
	endPending bool
	// pending counts handlers that have not returned yet.
	pending int
	polling bool
}

// New creates a view over source.
func New[T any](source Source[T], props Props[T]) *View[T] {
	if props.Threshold <= 0 {
		props.Threshold = defaultThreshold
	}
	if props.Height <= 0 {
		props.Height = defaultHeight
	}
	if props.ItemTemplate == nil {
		props.ItemTemplate = func(item T) string { return fmt.Sprint(item) }
	}
	if props.Loading == nil {
		props.Loading = DefaultLoading
	}
	if props.Error == nil {
		props.Error = DefaultError
	}

	v := &View[T]{
		source: source,
		props:  props,
		height: props.Height,
	}
	v.Sync()
	return v
}

// Init implements tea.Model.
func (v *View[T]) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (v *View[T]) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncedMsg:
		if v.pending > 0 {
			v.pending--
		}
		if msg.EndReached {
			v.endPending = false
		}
		v.Sync()
		return v, nil

	case PollMsg:
		v.Sync()
		if v.pending > 0 {
			return v, v.poll()
		}
		v.polling = false
		return v, nil

	case tea.WindowSizeMsg:
		if h := msg.Height - chromeRows; h > 0 {
			v.height = h
			v.scroll()
		}
		return v, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return v, tea.Quit
		case "r":
			return v, v.refreshCmd()
		case "up", "k":
			v.move(-1)
		case "down", "j":
			v.move(1)
		case "pgup":
			v.move(-v.height)
		case "pgdown", " ":
			v.move(v.height)
		case "home", "g":
			v.move(-len(v.state.Items))
		case "end", "G":
			v.move(len(v.state.Items))
		default:
			return v, nil
		}
		return v, v.endReachedCmd()
	}

	return v, nil
}

// Sync reloads the state from the source and restores the selection.
func (v *View[T]) Sync() {
	v.state = v.source.ViewState()

	if v.props.KeyFunc != nil && v.selectedKey != "" {
		for i, item := range v.state.Items {
			if v.props.KeyFunc(item) == v.selectedKey {
				v.cursor = i
				break
			}
		}
	}
	v.clamp()
	v.remember()
	v.scroll()
}

// Cursor returns the selected row index.
func (v *View[T]) Cursor() int {
	return v.cursor
}

// Selected returns the selected item, if any.
func (v *View[T]) Selected() (T, bool) {
	var zero T
	if v.cursor < 0 || v.cursor >= len(v.state.Items) {
		return zero, false
	}
	return v.state.Items[v.cursor], true
}

func (v *View[T]) move(delta int) {
	v.cursor += delta
	v.clamp()
	v.remember()
	v.scroll()
}

func (v *View[T]) clamp() {
	if v.cursor >= len(v.state.Items) {
		v.cursor = len(v.state.Items) - 1
	}
	if v.cursor < 0 {
		v.cursor = 0
	}
}

func (v *View[T]) remember() {
	if v.props.KeyFunc == nil {
		return
	}
	if item, ok := v.Selected(); ok {
		v.selectedKey = v.props.KeyFunc(item)
	}
}

func (v *View[T]) scroll() {
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	if v.cursor >= v.offset+v.height {
		v.offset = v.cursor - v.height + 1
	}
	if v.offset < 0 {
		v.offset = 0
	}
}

func (v *View[T]) refreshCmd() tea.Cmd {
	onRefresh := v.props.OnRefresh
	if onRefresh == nil {
		return nil
	}
	return v.start(func() tea.Msg {
		onRefresh()
		return SyncedMsg{}
	})
}

func (v *View[T]) endReachedCmd() tea.Cmd {
	onEndReached := v.props.OnEndReached
	if onEndReached == nil || v.endPending {
		return nil
	}

	distance := len(v.state.Items) - 1 - v.cursor
	if distance >= v.props.Threshold {
		return nil
	}

	v.endPending = true
	return v.start(func() tea.Msg {
		onEndReached(distance)
		return SyncedMsg{EndReached: true}
	})
}

// start runs handler as a command and polls the source until every
// running handler has returned.
func (v *View[T]) start(handler tea.Cmd) tea.Cmd {
	v.pending++
	if v.polling {
		return handler
	}
	v.polling = true
	return tea.Batch(handler, v.poll())
}

func (v *View[T]) poll() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return PollMsg{}
	})
}

// View implements tea.Model.
func (v *View[T]) View() string {
	var b strings.Builder

	if v.props.Title != "" {
		b.WriteString(titleStyle.Render(v.props.Title))
		b.WriteString("\n")
	}
	if v.state.Refreshing {
		b.WriteString(refreshStyle.Render("↻ refreshing"))
		b.WriteString("\n")
	}

	if len(v.state.Items) == 0 && !v.state.Loading && v.state.Err == nil {
		b.WriteString(statusStyle.Render("no items"))
		b.WriteString("\n")
	}

	end := v.offset + v.height
	if end > len(v.state.Items) {
		end = len(v.state.Items)
	}
	for i := v.offset; i < end; i++ {
		row := v.props.ItemTemplate(v.state.Items[i])
		if i == v.cursor {
			b.WriteString(selectedStyle.Render("> " + row))
		} else {
			b.WriteString("  " + row)
		}
		b.WriteString("\n")
	}

	if footer := v.footer(); footer != "" {
		b.WriteString(footer)
		b.WriteString("\n")
	}

	b.WriteString(statusStyle.Render(fmt.Sprintf("%d items • ↑/↓ move • r refresh • q quit", len(v.state.Items))))
	return b.String()
}

// footer shows the loading indicator while a non-refresh fetch is in
// flight, or the error when nothing is loading.
func (v *View[T]) footer() string {
	if v.state.Loading && !v.state.RefreshPending {
		return v.props.Loading()
	}
	if v.state.Err != nil && !v.state.Loading {
		return v.props.Error(v.state.Err)
	}
	return ""
}
