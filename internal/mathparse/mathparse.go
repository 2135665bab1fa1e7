// Package mathparse extracts simple arithmetic questions from transcripts.
package mathparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/mathvoice/mathvoice/internal/protocol"
)

var questionPattern = regexp.MustCompile(`what is (\d+) ([+\-*/]) (\d+)`)

// Extract scans a transcript for a "what is <n> <op> <n>" question and
// computes the operation. It returns nil when the transcript contains no such
// question. Division by zero yields an operation marked undefined.
func Extract(text string) *protocol.MathOperation {
	match := questionPattern.FindStringSubmatch(strings.ToLower(text))
	if match == nil {
		return nil
	}

	num1, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}
	operator := match[2]
	num2, err := strconv.Atoi(match[3])
	if err != nil {
		return nil
	}

	op := &protocol.MathOperation{Num1: num1, Operator: operator, Num2: num2}
	switch operator {
	case "+":
		op.Result = float64(num1 + num2)
	case "-":
		op.Result = float64(num1 - num2)
	case "*":
		op.Result = float64(num1 * num2)
	case "/":
		if num2 == 0 {
			op.Undefined = true
			return op
		}
		op.Result = float64(num1) / float64(num2)
	}
	return op
}
