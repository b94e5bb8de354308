package planner

import (
	"fmt"
	"runtime"
	"strings"
)

// osName returns the host OS the way it is named to the model.
func osName() string {
	switch runtime.GOOS {
	case "darwin":
		return "Darwin"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}

// DefaultSystemPromptSuffix names the host operating system.
func DefaultSystemPromptSuffix() string {
	return fmt.Sprintf("\n\nNOTE: you are operating a %s machine", osName())
}

// SystemPrompt builds the planner system prompt for the host OS.
func SystemPrompt(suffix string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
You are using an %s device.
You are able to use a mouse and keyboard to interact with the computer based on the given task and screenshot.
You can only interact with the desktop GUI (no terminal or application menu access).

You may be given some history plan and actions, this is the response from the previous loop.
You should carefully consider your plan base on the task, screenshot, and history actions.

Your available "Next Action" only include:
- ENTER: Press an enter key.
- ESCAPE: Press an ESCAPE key.
- INPUT: Input a string of text.
- CLICK: Describe the ui element to be clicked.
- HOVER: Describe the ui element to be hovered.
- SCROLL: Scroll the screen, you must specify up or down.
- PRESS: Describe the ui element to be pressed.

Output format:
`+"```json"+`
{
    "Thinking": str, # describe your thoughts on how to achieve the task, choose one action from available actions at a time.
    "Next Action": "action_type, action description" | "None" # one action at a time, describe it in short and precisely.
}
`+"```"+`

One Example:
`+"```json"+`
{
    "Thinking": "I need to search and navigate to amazon.com.",
    "Next Action": "CLICK 'Search Google or type a URL'."
}
`+"```"+`

IMPORTANT NOTES:
1. Carefully observe the screenshot to understand the current state and read history actions.
2. You should only give a single action at a time. for example, INPUT text, and ENTER can't be in one Next Action.
3. Attach the text to Next Action, if there is text or any description for the button.
4. You should not include other actions, such as keyboard shortcuts.
5. When the task is completed, you should say "Next Action": "None" in the json field.
`, osName())
	b.WriteString(suffix)
	return b.String()
}
