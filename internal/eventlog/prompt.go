// SPDX-License-Identifier: MPL-2.0

package eventlog

import "regexp"

// PromptPattern matches a candidate shell's prompt, e.g. "<user@host:/app>".
// It is deliberately loose about the three captured segments (user, host,
// cwd) because most test cases don't assert on their exact content — only
// strict_prompt tests use the anchored variant in internal/grading.
//
// Centralized here per the driver/grader shared-prompt requirement: both
// internal/driver (to detect the end of a command's output) and
// internal/grading (to split output into per-command segments and, for
// strict_prompt test cases, to validate prompt content) must use the exact
// same pattern, or a prompt one side recognizes and the other doesn't would
// desynchronize event slicing from grading.
const promptPatternSource = `(<[^@]*?@[^:]*?:[^>]*?>\s|<[^@]*?@[^:]*?:[^>]*?>)\s?`

// PromptPattern is the compiled form of promptPatternSource.
var PromptPattern = regexp.MustCompile(promptPatternSource)

// StrictPromptPattern anchors PromptPattern's three segments so strict_prompt
// test cases can assert on the candidate's reported user, host, and cwd.
var StrictPromptPattern = regexp.MustCompile(`^<([^@]+)@([^:]+):([^>]+)>\s*$`)
