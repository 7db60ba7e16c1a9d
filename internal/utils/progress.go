package utils

import (
	"fmt"
	"os"
	"time"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/term"
)

// Progress represents a progress bar using mpb. It stays silent when
// stderr is not a terminal or when disabled.
type Progress struct {
	container   *mpb.Progress
	bar         *mpb.Bar
	enabled     bool
	description string
}

const descLength = 20

// NewProgress creates a new progress bar with the given total count
func NewProgress(total int, enabled bool) *Progress {
	p := &Progress{
		enabled: enabled && isTerminal(),
	}

	if !p.enabled {
		return p
	}

	// Add space before progress bar
	fmt.Fprintln(os.Stderr)

	p.container = mpb.New(
		mpb.WithOutput(os.Stderr),
		mpb.WithWidth(64),
		mpb.WithRefreshRate(100*time.Millisecond),
	)

	p.bar = p.container.New(int64(total),
		mpb.BarStyle().Lbound("[").Filler("█").Tip("█").Padding("░").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(statistics decor.Statistics) string {
				if len(p.description) > descLength {
					return p.description[:descLength-2] + ".."
				}
				return p.description
			}, decor.WC{W: descLength, C: decor.DindentRight}),
			decor.Name("  "),
			decor.CountersNoUnit("%d/%d", decor.WC{C: decor.DindentRight}),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
		),
	)

	return p
}

// Update updates the progress bar with current count and description
func (p *Progress) Update(current int, description string) {
	if !p.enabled || p.bar == nil {
		return
	}

	// Update the description which will be shown by the dynamic decorator
	p.description = description

	p.bar.SetCurrent(int64(current))
}

// Finish completes the progress bar and shuts down the container
func (p *Progress) Finish() {
	if !p.enabled || p.container == nil {
		return
	}

	p.container.Wait()

	// Add space after progress bar
	fmt.Fprintln(os.Stderr)
}

// isTerminal checks if stderr is a terminal (TTY)
func isTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}
