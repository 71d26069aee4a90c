package progress

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
)

var (
	doneMark = color.GreenString("✓")
	failMark = color.RedString("✗")
)

// Run shows a spinner labelled msg on out for exactly as long as fn runs. Each
// call owns its spinner; nothing is shared between steps. The spinner decides
// whether to animate by checking stdout for a terminal, not out.
func Run(out io.Writer, msg string, fn func() error) error {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.Suffix = " " + msg

	s.Start()
	err := fn()
	if err != nil {
		s.FinalMSG = failMark + " " + msg + "\n"
	} else {
		s.FinalMSG = doneMark + " " + msg + "\n"
	}
	s.Stop()
	return err
}
