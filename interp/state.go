package interp

// Outcome tells the evaluator whether to go on after a command.
type Outcome int

const (
	OutcomeContinue Outcome = iota
	// OutcomeStopped ends the evaluation. Actions collected so far and the
	// implicit keep flag are kept.
	OutcomeStopped
)

// CommandState is the per-evaluation bookkeeping of terminal actions.
type CommandState struct {
	// InProlog is true while only require commands have been executed.
	InProlog bool
	// Rejected is set once a reject action is added.
	Rejected bool
	// ImplicitKeep is cleared by actions that cancel the implicit keep.
	ImplicitKeep bool
	// HasActions is set once any action is added.
	HasActions bool
}

// ChainState is the state of the innermost if/elsif/else chain.
type ChainState int

const (
	NoOpenChain ChainState = iota
	// ChainOpenFalse means every branch so far had a false test, a
	// following elsif or else will run.
	ChainOpenFalse
	// ChainOpenTrue means a branch already ran, a following elsif or else
	// is skipped.
	ChainOpenTrue
)

func (s ChainState) String() string {
	switch s {
	case NoOpenChain:
		return "no open chain"
	case ChainOpenFalse:
		return "chain open (false)"
	case ChainOpenTrue:
		return "chain open (true)"
	}
	return "unknown"
}

// chainStack holds one frame per block being executed. A frame only sees
// commands of its own block, so an elsif can never continue a chain of an
// enclosing or nested block.
type chainStack struct {
	frames []ChainState
}

func (c *chainStack) push() {
	c.frames = append(c.frames, NoOpenChain)
}

func (c *chainStack) pop() {
	c.frames = c.frames[:len(c.frames)-1]
}

func (c *chainStack) current() ChainState {
	if len(c.frames) == 0 {
		return NoOpenChain
	}
	return c.frames[len(c.frames)-1]
}

func (c *chainStack) set(s ChainState) {
	if len(c.frames) == 0 {
		return
	}
	c.frames[len(c.frames)-1] = s
}

func (c *chainStack) reset() {
	c.frames = c.frames[:0]
}

type chainRole int

const (
	chainOpen chainRole = iota
	chainContinue
	chainClose
)

// chainLink is implemented by if, elsif and else. Any other command closes
// the open chain of its block.
type chainLink interface {
	chainRole() chainRole
}
