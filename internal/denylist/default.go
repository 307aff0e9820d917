package denylist

// DefaultShellPatterns are the built-in shell command patterns that are
// always blocked regardless of user configuration. These cover the
// irreversible host operations.
var DefaultShellPatterns = []string{
	`(^|\s)rm\s+-rf\s+/`,
	`(^|\s)mkfs(\.|$)`,
	`(^|\s)dd\s+if=`,
	`(^|\s)shutdown(\s|$)`,
	`(^|\s)reboot(\s|$)`,
	`(^|\s)poweroff(\s|$)`,
	`(^|\s)userdel(\s|$)`,
	`(^|\s)groupdel(\s|$)`,
}
