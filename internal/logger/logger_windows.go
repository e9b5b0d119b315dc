//go:build windows
// +build windows

package logger

import (
	"os"
	"strings"
	"syscall"
	"unsafe"
)

const SupportsColorEscapes = true

var kernel32 = syscall.NewLazyDLL("kernel32.dll")
var getConsoleMode = kernel32.NewProc("GetConsoleMode")
var setConsoleTextAttribute = kernel32.NewProc("SetConsoleTextAttribute")
var getConsoleScreenBufferInfo = kernel32.NewProc("GetConsoleScreenBufferInfo")

type consoleScreenBufferInfo struct {
	dwSizeX              int16
	dwSizeY              int16
	dwCursorPositionX    int16
	dwCursorPositionY    int16
	wAttributes          uint16
	srWindowLeft         int16
	srWindowTop          int16
	srWindowRight        int16
	srWindowBottom       int16
	dwMaximumWindowSizeX int16
	dwMaximumWindowSizeY int16
}

func GetTerminalInfo(file *os.File) TerminalInfo {
	fd := file.Fd()

	// Is this file descriptor a terminal?
	var unused uint32
	isTTY, _, _ := syscall.Syscall(getConsoleMode.Addr(), 2, fd, uintptr(unsafe.Pointer(&unused)), 0)

	// Get the width of the window
	var info consoleScreenBufferInfo
	syscall.Syscall(getConsoleScreenBufferInfo.Addr(), 2, fd, uintptr(unsafe.Pointer(&info)), 0)

	return TerminalInfo{
		IsTTY:           isTTY != 0,
		Width:           int(info.dwSizeX) - 1,
		Height:          int(info.dwSizeY) - 1,
		UseColorEscapes: isTTY != 0 && !hasNoColorEnvironmentVariable(),
	}
}

func writeStringWithColor(file *os.File, text string) {
	const FOREGROUND_BLUE = 1
	const FOREGROUND_GREEN = 2
	const FOREGROUND_RED = 4
	const FOREGROUND_INTENSITY = 8

	colors := []struct {
		escape     string
		attributes uintptr
	}{
		{TerminalColors.Reset, FOREGROUND_RED | FOREGROUND_GREEN | FOREGROUND_BLUE},
		{TerminalColors.Red, FOREGROUND_RED},
		{TerminalColors.Green, FOREGROUND_GREEN},
		{TerminalColors.Blue, FOREGROUND_BLUE},
		{TerminalColors.Cyan, FOREGROUND_GREEN | FOREGROUND_BLUE},
		{TerminalColors.Magenta, FOREGROUND_RED | FOREGROUND_BLUE},
		{TerminalColors.Yellow, FOREGROUND_RED | FOREGROUND_GREEN},
		{TerminalColors.Dim, FOREGROUND_RED | FOREGROUND_GREEN | FOREGROUND_BLUE},
		{TerminalColors.Bold, FOREGROUND_RED | FOREGROUND_GREEN | FOREGROUND_BLUE | FOREGROUND_INTENSITY},
		{TerminalColors.Underline, FOREGROUND_RED | FOREGROUND_GREEN | FOREGROUND_BLUE},
	}

	fd := file.Fd()
	i := 0

next:
	for i < len(text) {
		if text[i] != 033 {
			i++
			continue
		}
		for _, color := range colors {
			if strings.HasPrefix(text[i:], color.escape) {
				file.WriteString(text[:i])
				text = text[i+len(color.escape):]
				i = 0
				setConsoleTextAttribute.Call(fd, color.attributes)
				continue next
			}
		}
		i++
	}

	file.WriteString(text)
}
