package output

import (
	"fmt"
	"io"
	"os"

	"github.com/tkjaer/ifmtu/internal/shared"
)

// TextOutput prints a short human readable summary per result
type TextOutput struct {
	w       io.Writer
	showMSS bool
}

// NewTextOutput writes to w, or stdout when w is nil.
func NewTextOutput(w io.Writer, showMSS bool) *TextOutput {
	if w == nil {
		w = os.Stdout
	}
	return &TextOutput{w: w, showMSS: showMSS}
}

func (t *TextOutput) Write(result shared.Result) error {
	var err error
	if t.showMSS {
		_, err = fmt.Fprintf(t.w, "%s: interface %s, MTU %d, MSS %d\n", result.Target(), result.Interface, result.MTU, result.MSS)
	} else {
		_, err = fmt.Fprintf(t.w, "%s: interface %s, MTU %d\n", result.Target(), result.Interface, result.MTU)
	}
	return err
}

func (t *TextOutput) Close() error {
	return nil
}
