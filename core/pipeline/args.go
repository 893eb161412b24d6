package pipeline

// Invocation holds the resolved command line: three stages and the file stage
// 3 writes to.
type Invocation struct {
	First  Stage
	Second Stage
	Third  Stage

	OutputPath string
}

// RequiredArgs is the number of positional arguments ResolveArgs needs.
const RequiredArgs = 4

// ResolveArgs builds an Invocation from positional arguments (the program name
// already stripped): STAGE1 STAGE2 STAGE3 OUTPUT. Names aren't checked here, a
// missing program is reported by its child at exec time. Anything after the
// fourth argument is ignored.
func ResolveArgs(args []string) (Invocation, error) {
	if len(args) < RequiredArgs {
		return Invocation{}, &UsageError{Got: len(args)}
	}

	return Invocation{
		First:      NewStage(1, args[0]),
		Second:     NewStage(2, args[1]),
		Third:      NewStage(3, args[2]),
		OutputPath: args[3],
	}, nil
}
