package ui

import "github.com/charmbracelet/lipgloss"

// Palette is a set of theme colors.
type Palette struct {
	Success   lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Address   lipgloss.Color
	Value     lipgloss.Color
	Meta      lipgloss.Color
	Border    lipgloss.Color
	Accent    lipgloss.Color
	Highlight lipgloss.Color
	OnAccent  lipgloss.Color
}

var (
	// DarkPalette suits dark terminal backgrounds.
	DarkPalette = Palette{
		Success:   lipgloss.Color("#00D26A"),
		Warning:   lipgloss.Color("#FFB800"),
		Error:     lipgloss.Color("#FF4444"),
		Address:   lipgloss.Color("#00B4D8"),
		Value:     lipgloss.Color("#FFFFFF"),
		Meta:      lipgloss.Color("#7A7A7A"),
		Border:    lipgloss.Color("#3A2A5F"),
		Accent:    lipgloss.Color("#E6007A"), // polkadot pink
		Highlight: lipgloss.Color("#F15BB5"),
		OnAccent:  lipgloss.Color("#000000"),
	}
	// LightPalette suits light terminal backgrounds.
	LightPalette = Palette{
		Success:   lipgloss.Color("#008A45"),
		Warning:   lipgloss.Color("#B07D00"),
		Error:     lipgloss.Color("#C62828"),
		Address:   lipgloss.Color("#00728A"),
		Value:     lipgloss.Color("#111111"),
		Meta:      lipgloss.Color("#6B6B6B"),
		Border:    lipgloss.Color("#D0C4E4"),
		Accent:    lipgloss.Color("#B3005F"),
		Highlight: lipgloss.Color("#E6007A"),
		OnAccent:  lipgloss.Color("#FFFFFF"),
	}
)

// Active theme. Rebuilt by ApplyTheme.
var (
	Theme = LightPalette
	Dark  bool

	StyleSuccess  lipgloss.Style
	StyleWarning  lipgloss.Style
	StyleError    lipgloss.Style
	StyleAddress  lipgloss.Style
	StyleValue    lipgloss.Style
	StyleMeta     lipgloss.Style
	StyleChain    lipgloss.Style
	StyleBorder   lipgloss.Style
	StyleHeader   lipgloss.Style
	StyleSelected lipgloss.Style
	StyleTitle    lipgloss.Style
	StyleKey      lipgloss.Style
)

func init() { ApplyTheme(false) }

// ApplyTheme switches every style to the dark or light palette.
func ApplyTheme(dark bool) {
	p := LightPalette
	if dark {
		p = DarkPalette
	}
	Theme, Dark = p, dark

	StyleSuccess = lipgloss.NewStyle().Foreground(p.Success).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(p.Warning).Bold(true)
	StyleError = lipgloss.NewStyle().Foreground(p.Error).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(p.Address)
	StyleValue = lipgloss.NewStyle().Foreground(p.Value).Bold(true)
	StyleMeta = lipgloss.NewStyle().Foreground(p.Meta)
	StyleChain = lipgloss.NewStyle().Foreground(p.Accent).Bold(true)
	StyleBorder = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(p.Border).
		Padding(0, 1)
	StyleHeader = lipgloss.NewStyle().Foreground(p.Highlight).Bold(true).Underline(true)
	StyleSelected = lipgloss.NewStyle().Background(p.Highlight).Foreground(p.OnAccent).Bold(true)
	StyleTitle = lipgloss.NewStyle().Foreground(p.Accent).Bold(true).MarginBottom(1)
	StyleKey = lipgloss.NewStyle().Foreground(p.OnAccent).Background(p.Accent).Padding(0, 1)
}

// Banner returns the polkafarm banner.
func Banner() string {
	art := `
  ┌─┐┌─┐┬  ┬┌─┌─┐┌─┐┌─┐┬─┐┌┬┐
  ├─┘│ ││  ├┴┐├─┤├┤ ├─┤├┬┘│││
  ┴  └─┘┴─┘┴ ┴┴ ┴└  ┴ ┴┴└─┴ ┴`
	tagline := StyleMeta.Render("  Stake WND, earn PLKF")
	return StyleChain.Render(art) + "\n" + tagline + "\n"
}

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a next-step suggestion.
func Hint(msg string) string { return StyleMeta.Render("→ " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// ChainName formats a chain name.
func ChainName(c string) string { return StyleChain.Render(c) }

// Key formats a key binding label.
func Key(k string) string { return StyleKey.Render(k) }

// TruncateAddr shortens an address for display: 0x1234...5678.
func TruncateAddr(addr string) string {
	if len(addr) <= 10 {
		return addr
	}
	return addr[:6] + "..." + addr[len(addr)-4:]
}
