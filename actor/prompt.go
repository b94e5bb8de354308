package actor

import (
	"fmt"
	"strings"
)

// Split names the device family an action space is written for.
type Split string

const SplitDesktop Split = "desktop"

var actionSpaces = map[Split]string{
	SplitDesktop: `
1. CLICK: Click on an element, value is not applicable and the position [x,y] is required.
2. INPUT: Type a string into an element, value is a string to type and the position [x,y] is required.
3. HOVER: Hover on an element, value is not applicable and the position [x,y] is required.
4. ENTER: Enter operation, value and position are not applicable.
5. SCROLL: Scroll the screen, value is the direction to scroll and the position is not applicable.
6. ESC: ESCAPE operation, value and position are not applicable.
7. PRESS: Long click on an element, value is not applicable and the position [x,y] is required.
`,
}

const navFormat = `
Format the action as a dictionary with the following keys:
{'action': 'ACTION_TYPE', 'value': 'element', 'position': [x,y]}

If value or position is not applicable, set it as None.
Position might be [[x1,y1], [x2,y2]] if the action requires a start and end position.
Position represents the relative coordinates on the screenshot and should be scaled to a range of 0-1.
`

// SystemPrompt returns the navigation prompt for split.
func SystemPrompt(split Split) string {
	space, ok := actionSpaces[split]
	if !ok {
		space = actionSpaces[SplitDesktop]
		split = SplitDesktop
	}
	return fmt.Sprintf(`
You are an assistant trained to navigate the %s screen.
Given a task instruction, a screen observation, and an action history sequence,
output the next action and wait for the next observation.
Here is the action space:
%s`, split, space) + "\n" + navFormat
}

// UserPrompt builds the per-turn text: the instruction, any previous
// actions, and the closing request.
func UserPrompt(instruction, history string) string {
	var b strings.Builder
	b.WriteString("Task: ")
	b.WriteString(instruction)
	if history != "" {
		b.WriteString("\n\nPrevious Actions:\n")
		b.WriteString(history)
	}
	b.WriteString("\n\nGiven the screenshot and the task, provide the next action based on the defined action space and format.")
	return b.String()
}
