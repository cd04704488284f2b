// SPDX-License-Identifier: MPL-2.0

// Package progress defines the status sink used by long-running operations.
package progress

// Unknown is passed as the percent when an operation cannot estimate completion.
const Unknown = -1

type (
	// Reporter receives status updates. Progress may be called any number of
	// times; exactly one of Complete or Fail ends a reported operation.
	// Reporters are invoked synchronously on the caller's goroutine.
	Reporter interface {
		Progress(msg string, percent int)
		Complete(msg string)
		Fail(err error)
	}

	// Funcs adapts plain functions to a Reporter. Nil fields are ignored.
	Funcs struct {
		OnProgress func(msg string, percent int)
		OnComplete func(msg string)
		OnFail     func(err error)
	}

	nop struct{}

	// once forwards to a Reporter and drops every terminal call after the first.
	once struct {
		r    Reporter
		done bool
	}
)

// Nop returns a Reporter that discards everything.
func Nop() Reporter { return nop{} }

func (nop) Progress(string, int) {}
func (nop) Complete(string)      {}
func (nop) Fail(error)           {}

// Progress implements Reporter.
func (f Funcs) Progress(msg string, percent int) {
	if f.OnProgress != nil {
		f.OnProgress(msg, percent)
	}
}

// Complete implements Reporter.
func (f Funcs) Complete(msg string) {
	if f.OnComplete != nil {
		f.OnComplete(msg)
	}
}

// Fail implements Reporter.
func (f Funcs) Fail(err error) {
	if f.OnFail != nil {
		f.OnFail(err)
	}
}

// OrNop returns r, or a no-op Reporter when r is nil.
func OrNop(r Reporter) Reporter {
	if r == nil {
		return nop{}
	}
	return r
}

func (o *once) Progress(msg string, percent int) {
	if !o.done {
		o.r.Progress(msg, percent)
	}
}

func (o *once) Complete(msg string) {
	if o.done {
		return
	}
	o.done = true
	o.r.Complete(msg)
}

func (o *once) Fail(err error) {
	if o.done {
		return
	}
	o.done = true
	o.r.Fail(err)
}

// Track runs fn with a Reporter that guarantees exactly one terminal call on r.
// If fn returns an error, r.Fail receives it; otherwise r.Complete receives the
// returned message. Terminal calls made by fn itself take precedence.
func Track(r Reporter, fn func(Reporter) (string, error)) error {
	o := &once{r: OrNop(r)}
	msg, err := fn(o)
	if err != nil {
		o.Fail(err)
		return err
	}
	o.Complete(msg)
	return nil
}

// Percent returns done/total as a whole percentage, or Unknown when total is
// not positive.
func Percent(done, total int) int {
	if total <= 0 {
		return Unknown
	}
	if done >= total {
		return 100
	}
	return done * 100 / total
}
