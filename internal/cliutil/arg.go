package cliutil

// ResolveLiteralOrControlFile implements the "<value-or-controlfile>"
// invocation surface shared by valve, relval, oobleck, dilatant, and
// qvalve: the positional argument is first tried as a literal value; if it
// fails to parse, it names a control file instead.
func ResolveLiteralOrControlFile[T any](arg string, parse func(string) (T, error)) (value T, controlFile string, isLiteral bool) {
	v, err := parse(arg)
	if err == nil {
		return v, "", true
	}

	return value, arg, false
}
