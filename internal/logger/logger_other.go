//go:build !darwin && !linux && !windows

package logger

import (
	"os"

	"github.com/mattn/go-isatty"
)

const SupportsColorEscapes = false

func GetTerminalInfo(file *os.File) TerminalInfo {
	return TerminalInfo{IsTTY: isatty.IsTerminal(file.Fd())}
}

func writeStringWithColor(file *os.File, text string) {
	file.WriteString(text)
}
