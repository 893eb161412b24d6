package pipeline

// Stage is one program of the pipeline. Name is resolved through PATH by the
// child. Argv always holds only the program name, no arguments are forwarded.
type Stage struct {
	// Index is the 1-based position of the stage in `1 && 2 | 3`.
	Index int
	Name  string
	Argv  []string
}

// NewStage creates the stage at position index running the named program.
func NewStage(index int, name string) Stage {
	return Stage{
		Index: index,
		Name:  name,
		Argv:  []string{name},
	}
}

func (s Stage) String() string {
	return s.Name
}
