package gemini

import (
	"regexp"
	"strings"
)

var codeBlockPattern = regexp.MustCompile("(?s)```python(.*?)```")

// ExtractExplanationAndCode splits a model answer into the first fenced
// python block and the prose around it. Without a block the whole answer is
// the explanation and the code is empty.
func ExtractExplanationAndCode(response string) (explanation string, code string) {
	loc := codeBlockPattern.FindStringSubmatchIndex(response)
	if loc == nil {
		return strings.TrimSpace(response), ""
	}

	code = strings.TrimSpace(response[loc[2]:loc[3]])
	before := strings.TrimSpace(response[:loc[0]])
	after := strings.TrimSpace(response[loc[1]:])
	if before == "" && after == "" {
		return "", code
	}
	return strings.TrimSpace(before + "\n\n" + after), code
}
