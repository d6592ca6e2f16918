package farm

import "sync"

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSuccess
)

func (p Phase) String() string {
	switch p {
	case PhaseSubmitting:
		return "submitting"
	case PhaseSuccess:
		return "success"
	default:
		return "idle"
	}
}

// View is what a panel shows for its phase.
type View string

const (
	ViewForm    View = "form"
	ViewLoading View = "loading"
	ViewReport  View = "report"
)

// Panel drives one feature panel: Idle -> Submitting -> Success | back to Idle on failure.
// A failure keeps the form and the error; success keeps the result until Back.
// Panel is safe for concurrent use.
type Panel[F any, R any] struct {
	mu     sync.Mutex
	phase  Phase
	form   F
	result R
	err    error
}

func NewPanel[F any, R any](form F) *Panel[F, R] {
	return &Panel[F, R]{form: form}
}

// Edit replaces the form. Edits are ignored outside Idle.
func (p *Panel[F, R]) Edit(f F) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseIdle {
		return false
	}
	p.form = f
	p.err = nil
	return true
}

func (p *Panel[F, R]) Form() F {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.form
}

// Begin moves Idle -> Submitting. It returns false while a request is pending or a report is shown.
func (p *Panel[F, R]) Begin() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseIdle {
		return false
	}
	p.phase = PhaseSubmitting
	p.err = nil
	return true
}

func (p *Panel[F, R]) Succeed(r R) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseSubmitting {
		return
	}
	p.phase = PhaseSuccess
	p.result = r
}

func (p *Panel[F, R]) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseSubmitting {
		return
	}
	p.phase = PhaseIdle
	p.err = err
}

// Reject records why a submit was refused in Idle (invalid input) without leaving Idle.
func (p *Panel[F, R]) Reject(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseIdle {
		return
	}
	p.err = err
}

// Back leaves the report view.
func (p *Panel[F, R]) Back() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.phase != PhaseSuccess {
		return
	}
	var zero R
	p.phase = PhaseIdle
	p.result = zero
}

func (p *Panel[F, R]) Phase() Phase {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.phase
}

func (p *Panel[F, R]) Result() (R, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result, p.phase == PhaseSuccess
}

// Err is the last failure, cleared by the next Begin or Edit.
func (p *Panel[F, R]) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

func (p *Panel[F, R]) View() View {
	switch p.Phase() {
	case PhaseSubmitting:
		return ViewLoading
	case PhaseSuccess:
		return ViewReport
	default:
		return ViewForm
	}
}
