package companion

// Command represents a discrete application operation with its specific
// configuration. Commands are produced by [Parse] and executed through the
// matching method on [App].
type Command interface {
	// Name returns the command identifier used for routing.
	Name() string
}

// RunCommand starts the HTTP server. All server configuration lives in
// [Config]; the command itself carries no options yet.
type RunCommand struct{}

func (c *RunCommand) Name() string {
	return "run"
}
