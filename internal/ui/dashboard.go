package ui

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/polkafarm/polkafarm/internal/chain"
	"github.com/polkafarm/polkafarm/internal/connector"
	"github.com/polkafarm/polkafarm/internal/farm"
	"github.com/polkafarm/polkafarm/internal/portfolio"
)

// Farm is what the dashboard drives. *farm.Service implements it.
type Farm interface {
	Resume(ctx context.Context) (connector.View, error)
	Connect(ctx context.Context) (connector.View, error)
	SwitchNetwork(ctx context.Context) (connector.View, error)
	Follow(ctx context.Context, ev connector.Event) (connector.View, error)
	Session() *connector.Session
	Load(ctx context.Context) (*portfolio.Snapshot, error)
	Poll(ctx context.Context) (*portfolio.Snapshot, error)
	Derive(ctx context.Context, snap *portfolio.Snapshot) portfolio.Derived
	ParseAmount(amount string) (*big.Int, error)
	MaxStake(ctx context.Context) (*big.Int, error)
	Stake(ctx context.Context, amount *big.Int) (*types.Receipt, error)
	Exit(ctx context.Context) (*types.Receipt, error)
}

// DashboardOptions configures the dashboard.
type DashboardOptions struct {
	Interval time.Duration            // balance polling period
	Dark     bool                     // initial theme
	OnTheme  func(dark bool) error    // persists a theme toggle
	Events   <-chan connector.Event   // wallet changes made elsewhere
}

// Dashboard is the Bubble Tea model for the farm screen.
type Dashboard struct {
	ctx  context.Context
	farm Farm
	opts DashboardOptions

	view    connector.View
	loading bool
	busy    string
	editing bool
	input   textinput.Model
	spin    spinner.Model

	snap    *portfolio.Snapshot
	derived portfolio.Derived

	now      time.Time
	status   string
	err      string
	width    int
	quitting bool
}

type (
	viewMsg struct {
		view connector.View
		err  error
	}
	snapshotMsg struct {
		snap    *portfolio.Snapshot
		derived portfolio.Derived
		err     error
	}
	txMsg struct {
		exit    bool
		receipt *types.Receipt
		err     error
	}
	maxMsg struct {
		amount *big.Int
		err    error
	}
	themeMsg  struct{ err error }
	pollMsg   time.Time
	clockMsg  time.Time
	eventMsg  connector.Event
	eventsEnd struct{}
)

// NewDashboard builds the dashboard model.
func NewDashboard(ctx context.Context, f Farm, opts DashboardOptions) Dashboard {
	ApplyTheme(opts.Dark)

	in := textinput.New()
	in.Placeholder = "0.0"
	in.Prompt = "Amount: "
	in.CharLimit = 32
	in.Cursor.SetMode(cursor.CursorStatic)

	return Dashboard{
		ctx:   ctx,
		farm:  f,
		opts:  opts,
		view:  connector.ViewDisconnected,
		input: in,
		spin:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		now:   time.Now(),
	}
}

// RunDashboard runs the dashboard until the user quits.
func RunDashboard(ctx context.Context, f Farm, opts DashboardOptions) error {
	p := tea.NewProgram(NewDashboard(ctx, f, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Dashboard) Init() tea.Cmd {
	return tea.Batch(m.resumeCmd(), m.spin.Tick, clock(), m.poll(), m.waitEvent())
}

func (m Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case viewMsg:
		m.busy = ""
		m.view = msg.view
		m.err = ""
		if msg.err != nil {
			m.err = msg.err.Error()
		}
		if m.view != connector.ViewDashboard {
			m.snap = nil
			return m, nil
		}
		m.loading = true
		return m, m.loadCmd()

	case snapshotMsg:
		m.loading = false
		if msg.err != nil {
			if !errors.Is(msg.err, portfolio.ErrRefreshInFlight) {
				m.err = "Failed to load farm data: " + msg.err.Error()
			}
			return m, nil
		}
		m.snap, m.derived = msg.snap, msg.derived
		if strings.HasPrefix(m.err, "Failed to load") {
			m.err = ""
		}
		return m, nil

	case txMsg:
		m.busy = ""
		if msg.err != nil {
			m.status = ""
			if msg.exit {
				m.err = farm.ExitFailure(msg.err, m.symbol())
			} else {
				m.err = farm.StakeFailure(msg.err)
			}
			return m, nil
		}
		m.err = ""
		m.status = farm.StakeSucceeded
		if msg.exit {
			m.status = farm.ExitSucceeded
		}
		if msg.receipt != nil {
			m.status += " " + m.txLink(msg.receipt.TxHash.Hex())
		}
		m.editing = false
		m.input.Reset()
		m.input.Blur()
		return m, m.pollCmd()

	case maxMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
			return m, nil
		}
		m.input.SetValue(chain.FormatUnits(msg.amount, m.decimals()))
		return m, nil

	case themeMsg:
		if msg.err != nil {
			m.err = "Saving theme: " + msg.err.Error()
		}
		return m, nil

	case pollMsg:
		cmds := []tea.Cmd{m.poll()}
		if m.view == connector.ViewDashboard && m.busy == "" && !m.loading {
			cmds = append(cmds, m.pollCmd())
		}
		return m, tea.Batch(cmds...)

	case clockMsg:
		m.now = time.Time(msg)
		return m, clock()

	case eventMsg:
		ev := connector.Event(msg)
		if ev.Kind == connector.AccountsChanged && ev.Account == "" {
			m.view, m.snap, m.status = connector.ViewDisconnected, nil, ""
		} else {
			m.busy = "Reloading..."
		}
		return m, tea.Batch(m.waitEvent(), m.followCmd(ev))

	case eventsEnd:
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	if m.editing {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Dashboard) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		m.quitting = true
		return m, tea.Quit
	}

	if m.editing {
		switch key {
		case "esc":
			m.editing = false
			m.input.Reset()
			m.input.Blur()
			return m, nil
		case "enter":
			return m.submitStake()
		case "m":
			return m, m.maxCmd()
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "t":
		dark := !Dark
		ApplyTheme(dark)
		return m, m.themeCmd(dark)
	}
	if m.busy != "" {
		return m, nil
	}

	switch m.view {
	case connector.ViewDisconnected:
		if key == "c" {
			m.busy, m.err = "Connecting...", ""
			return m, m.connectCmd()
		}
	case connector.ViewWrongNetwork:
		if key == "w" {
			m.busy, m.err = "Switching network...", ""
			return m, m.switchCmd()
		}
	case connector.ViewDashboard:
		switch key {
		case "s":
			m.editing, m.status = true, ""
			return m, m.input.Focus()
		case "m":
			m.editing, m.status = true, ""
			return m, tea.Batch(m.input.Focus(), m.maxCmd())
		case "x":
			if m.snap != nil {
				if err := portfolio.ValidateExit(m.snap.Staked, m.symbol()); err != nil {
					m.err = err.Error()
					return m, nil
				}
			}
			m.busy, m.err, m.status = "Withdrawing...", "", ""
			return m, m.exitCmd()
		case "r":
			return m, m.pollCmd()
		}
	}
	return m, nil
}

func (m Dashboard) submitStake() (tea.Model, tea.Cmd) {
	amount, err := m.farm.ParseAmount(m.input.Value())
	if err == nil && m.snap != nil {
		err = portfolio.ValidateStake(amount, m.snap.Native)
	}
	if err != nil {
		m.err = farm.StakeFailure(err)
		return m, nil
	}
	m.busy, m.err, m.status = "Staking...", "", ""
	return m, m.stakeCmd(amount)
}

// --- commands ---

func (m Dashboard) resumeCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.farm.Resume(m.ctx)
		return viewMsg{view: v, err: err}
	}
}

func (m Dashboard) connectCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.farm.Connect(m.ctx)
		return viewMsg{view: v, err: err}
	}
}

func (m Dashboard) followCmd(ev connector.Event) tea.Cmd {
	return func() tea.Msg {
		v, err := m.farm.Follow(m.ctx, ev)
		return viewMsg{view: v, err: err}
	}
}

func (m Dashboard) switchCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.farm.SwitchNetwork(m.ctx)
		return viewMsg{view: v, err: err}
	}
}

func (m Dashboard) loadCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.farm.Load(m.ctx)
		return m.snapshot(snap, err)
	}
}

func (m Dashboard) pollCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.farm.Poll(m.ctx)
		return m.snapshot(snap, err)
	}
}

func (m Dashboard) snapshot(snap *portfolio.Snapshot, err error) tea.Msg {
	if err != nil {
		return snapshotMsg{err: err}
	}
	return snapshotMsg{snap: snap, derived: m.farm.Derive(m.ctx, snap)}
}

func (m Dashboard) stakeCmd(amount *big.Int) tea.Cmd {
	return func() tea.Msg {
		r, err := m.farm.Stake(m.ctx, amount)
		return txMsg{receipt: r, err: err}
	}
}

func (m Dashboard) exitCmd() tea.Cmd {
	return func() tea.Msg {
		r, err := m.farm.Exit(m.ctx)
		return txMsg{exit: true, receipt: r, err: err}
	}
}

func (m Dashboard) maxCmd() tea.Cmd {
	return func() tea.Msg {
		v, err := m.farm.MaxStake(m.ctx)
		return maxMsg{amount: v, err: err}
	}
}

func (m Dashboard) themeCmd(dark bool) tea.Cmd {
	if m.opts.OnTheme == nil {
		return nil
	}
	return func() tea.Msg { return themeMsg{err: m.opts.OnTheme(dark)} }
}

func (m Dashboard) waitEvent() tea.Cmd {
	if m.opts.Events == nil {
		return nil
	}
	ch := m.opts.Events
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return eventsEnd{}
		}
		return eventMsg(ev)
	}
}

func (m Dashboard) poll() tea.Cmd {
	d := m.opts.Interval
	if d <= 0 {
		d = 10 * time.Second
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return pollMsg(t) })
}

func clock() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

// --- view ---

func (m Dashboard) symbol() string {
	if s := m.farm.Session(); s != nil {
		return s.Symbol()
	}
	return "WND"
}

func (m Dashboard) decimals() int {
	if s := m.farm.Session(); s != nil {
		return s.Decimals()
	}
	return 18
}

func (m Dashboard) tokenSymbol() string {
	if m.snap != nil && m.snap.Stats.TokenSymbol != "" {
		return m.snap.Stats.TokenSymbol
	}
	return "PLKF"
}

func (m Dashboard) txLink(hash string) string {
	if s := m.farm.Session(); s != nil && s.Target != nil {
		if u := s.Target.TxURL(hash); u != "" {
			return Meta(u)
		}
	}
	return Meta(hash)
}

func (m Dashboard) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(m.header() + "\n\n")

	switch m.view {
	case connector.ViewDisconnected:
		sb.WriteString(Banner() + "\n")
		sb.WriteString("Connect your wallet to start staking.\n\n")
		sb.WriteString(Key("c") + " connect   " + Key("q") + " quit\n")
	case connector.ViewWrongNetwork:
		sb.WriteString(StyleWarning.Render("Wrong Network") + "\n\n")
		if s := m.farm.Session(); s != nil && s.Target != nil {
			sb.WriteString(fmt.Sprintf("PolkaFarm runs on %s (Chain ID: %d).\n", ChainName(s.Target.DisplayName), s.Target.ChainID))
			sb.WriteString(Meta(fmt.Sprintf("Your wallet is on chain %d.", s.ChainID)) + "\n\n")
		}
		sb.WriteString(Key("w") + " switch network   " + Key("q") + " quit\n")
	case connector.ViewDashboard:
		sb.WriteString(m.dashboardView())
	}

	if m.busy != "" {
		sb.WriteString("\n" + m.spin.View() + " " + m.busy + "\n")
	}
	if m.status != "" {
		sb.WriteString("\n" + Success(m.status) + "\n")
	}
	if m.err != "" {
		sb.WriteString("\n" + Err(m.err) + "\n")
	}
	return sb.String()
}

func (m Dashboard) header() string {
	title := StyleChain.Render("PolkaFarm")
	right := Meta(m.now.Format("15:04:05"))
	if s := m.farm.Session(); s != nil {
		net := fmt.Sprintf("chain %d", s.ChainID)
		if s.Network != nil {
			net = s.Network.DisplayName
		}
		right = Addr(TruncateAddr(s.Account.Hex())) + "  " + ChainName(net) + "  " + right
	}
	gap := m.width - lipgloss.Width(title) - lipgloss.Width(right)
	if gap < 2 {
		gap = 2
	}
	return title + strings.Repeat(" ", gap) + right
}

func (m Dashboard) dashboardView() string {
	if m.snap == nil {
		return Meta("Loading farm data...") + "\n"
	}
	d, sym, tok := m.derived, m.symbol(), m.tokenSymbol()
	rate := chain.ToFloat(m.snap.Stats.RewardRate, int(m.snap.Stats.TokenDecimals))

	stats := lipgloss.JoinHorizontal(lipgloss.Top,
		Card("Total Staked", Val(FormatLargeNumber(d.Total)+" "+sym), 22),
		Card("Reward Rate", Val(FormatRate(rate)+" "+tok+"/block"), 26),
		Card("Your Share", Val(FormatPercent(d.Share)), 16),
		Card("APY", Val(fmt.Sprintf("%.1f%%", d.APY)), 12),
	)

	stakedLabel := FormatAmount(d.Staked, sym)
	if m.snap.StakeSource == portfolio.SourcePresumed {
		stakedLabel += Meta(" (presumed)")
	}
	holdings := KeyValueBlock("Your Portfolio", [][2]string{
		{"Available", FormatAmount(d.Native, sym) + "  " + Meta(FormatUSD(d.NativeUSD))},
		{"Staked", stakedLabel + "  " + Meta(FormatUSD(d.StakedUSD))},
		{tok + " Balance", FormatAmount(d.Token, tok) + "  " + Meta(FormatUSD(d.TokenUSD))},
		{"Est. Daily Rewards", FormatRewards(d.DailyRewards, tok) + "  " + Meta(FormatUSD(d.DailyRewardsUSD)+"/day")},
	})

	var sb strings.Builder
	sb.WriteString(stats + "\n" + holdings + "\n\n")

	if m.editing {
		sb.WriteString(StyleTitle.Render(fmt.Sprintf("Stake %s  (%.1f%% APY)", sym, d.APY)) + "\n")
		sb.WriteString(m.input.View() + " " + Meta(sym) + "\n")
		sb.WriteString(Meta(fmt.Sprintf("Available: %s", FormatAmount(d.Native, sym))) + "\n")
		sb.WriteString(Key("enter") + " stake   " + Key("m") + " max   " + Key("esc") + " cancel\n")
	} else {
		sb.WriteString(Key("s") + " stake   " + Key("m") + " max   " + Key("x") + " withdraw all   " +
			Key("r") + " refresh   " + Key("t") + " theme   " + Key("q") + " quit\n")
	}
	sb.WriteString(Meta("Updated "+m.snap.UpdatedAt.Format("15:04:05")) + "\n")
	return sb.String()
}
