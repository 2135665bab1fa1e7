package client

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mathvoice/mathvoice/internal/protocol"
)

var (
	answerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 2)

	leftDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	rightDotStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	operatorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("243")).
			Italic(true)
)

// RenderState draws the result area for the current session snapshot.
func RenderState(state State) string {
	var sections []string
	if state.Processing {
		sections = append(sections, statusStyle.Render("processing..."))
	}
	if state.Err != "" {
		sections = append(sections, errorStyle.Render(state.Err))
	}
	if state.Response != nil {
		sections = append(sections, RenderResponse(*state.Response))
	}
	return strings.Join(sections, "\n")
}

// RenderResponse draws the answer text and, when the server extracted a math
// operation, a comparison panel of the two operands.
func RenderResponse(resp protocol.ChatResponse) string {
	out := answerStyle.Render(resp.TextResponse)
	if resp.MathOperation != nil {
		out += "\n" + ComparisonPanel(*resp.MathOperation)
	}
	return out
}

// ComparisonPanel shows the operands as dot groups side by side with the
// operator and result, the terminal stand-in for the visual counting game.
func ComparisonPanel(op protocol.MathOperation) string {
	left := leftDotStyle.Render(dots(op.Num1))
	right := rightDotStyle.Render(dots(op.Num2))
	line := fmt.Sprintf("%s  %s  %s  =  %s",
		left,
		operatorStyle.Render(op.Operator),
		right,
		op.ResultString())
	caption := statusStyle.Render(fmt.Sprintf("%d %s %d = %s", op.Num1, op.Operator, op.Num2, op.ResultString()))
	return panelStyle.Render(line + "\n" + caption)
}

const maxDots = 20

func dots(n int) string {
	if n < 0 {
		n = 0
	}
	if n <= maxDots {
		return strings.Repeat("●", n)
	}
	return strings.Repeat("●", maxDots) + fmt.Sprintf("(+%d)", n-maxDots)
}
