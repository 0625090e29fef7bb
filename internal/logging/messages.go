package logging

import "fmt"

// ErrorMessage formats a user-facing error line.
func ErrorMessage(msg string) string {
	return "Error: " + msg
}

// ErrorMessageWithCode formats a user-facing error line carrying the
// operating system error code.
func ErrorMessageWithCode(msg string, code uint32) string {
	return fmt.Sprintf("Error: %s (Error Code: %d)", msg, code)
}

// SuccessLine formats a console log line for a completed step.
func SuccessLine(msg string) string {
	return "[+] " + msg
}

// FailureLine formats a console log line for a failed step.
func FailureLine(msg string) string {
	return "[-] " + msg
}
