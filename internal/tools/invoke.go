package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Command is one external invocation: a resolved program and its arguments.
// Arguments may be any value; they are rendered with FormatArg.
type Command struct {
	Program string
	Args    []any
}

// Argv renders the argument list as text.
func (c Command) Argv() []string {
	out := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		out = append(out, FormatArg(arg))
	}
	return out
}

func (c Command) String() string {
	return strings.TrimSpace(c.Program + " " + strings.Join(c.Argv(), " "))
}

// FormatArg renders a command argument. Floats always carry a fractional
// part, so 2 renders as "2.0".
func FormatArg(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return formatFloat(x, 64)
	case float32:
		return formatFloat(float64(x), 32)
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func formatFloat(v float64, bits int) string {
	s := strconv.FormatFloat(v, 'f', -1, bits)
	if math.IsInf(v, 0) || math.IsNaN(v) || strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}

// Invoke runs cmd to completion with inherited streams. Any nonzero exit is
// returned as an *InvocationError naming the program.
func Invoke(runner StreamRunner, cmd Command) error {
	args := cmd.Argv()
	log.Info().
		Str("cmd", cmd.Program).
		Str("args", strings.Join(args, " ")).
		Msg("tools exec")

	code, err := runner.RunStreaming(cmd.Program, args, nil, nil)
	if err == nil && code == 0 {
		return nil
	}
	if code == 0 {
		code = 1
	}
	return &InvocationError{
		Program:  cmd.Program,
		Args:     args,
		ExitCode: code,
		Err:      err,
	}
}
