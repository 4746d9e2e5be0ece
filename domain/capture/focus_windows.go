//go:build windows

package capture

import (
	"path/filepath"
	"strings"
	"syscall"
	"unicode/utf16"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32              = windows.NewLazySystemDLL("user32.dll")
	procEnumWindows     = user32.NewProc("EnumWindows")
	procGetWindowTextW  = user32.NewProc("GetWindowTextW")
	procIsWindowVisible = user32.NewProc("IsWindowVisible")
	procGetForeground   = user32.NewProc("GetForegroundWindow")
)

func windowText(hwnd uintptr) string {
	const maxChars = 256
	buf := make([]uint16, maxChars)
	r, _, _ := procGetWindowTextW.Call(hwnd, uintptr(unsafe.Pointer(&buf[0])), uintptr(len(buf)))
	if r == 0 {
		return ""
	}
	end := int(r)
	for i, v := range buf {
		if v == 0 {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(utf16.Decode(buf[:end])))
}

func windowProcess(hwnd uintptr) string {
	var pid uint32
	_, _ = windows.GetWindowThreadProcessId(windows.HWND(hwnd), &pid)
	if pid == 0 {
		return ""
	}
	h, err := windows.OpenProcess(windows.PROCESS_QUERY_LIMITED_INFORMATION, false, pid)
	if err != nil {
		return ""
	}
	defer windows.CloseHandle(h)
	buf := make([]uint16, windows.MAX_PATH)
	size := uint32(len(buf))
	if err := windows.QueryFullProcessImageName(h, 0, &buf[0], &size); err != nil {
		return ""
	}
	return filepath.Base(windows.UTF16ToString(buf[:size]))
}

// listWindows returns visible top-level windows with titles.
func listWindows() ([]Window, error) {
	var out []Window
	cb := syscall.NewCallback(func(hwnd uintptr, lparam uintptr) uintptr {
		vis, _, _ := procIsWindowVisible.Call(hwnd)
		if vis == 0 {
			return 1 // continue
		}
		title := windowText(hwnd)
		if title == "" {
			return 1
		}
		out = append(out, Window{Title: title, Process: windowProcess(hwnd)})
		return 1
	})
	if r, _, callErr := procEnumWindows.Call(cb, 0); r == 0 && callErr != nil {
		return nil, callErr
	}
	return out, nil
}

// requiredWindowFocused matches the foreground window against a process
// name and/or a case-insensitive title substring.
func requiredWindowFocused(process, titleContains string) bool {
	hwnd, _, _ := procGetForeground.Call()
	if hwnd == 0 {
		return false
	}
	if process != "" {
		if !strings.EqualFold(windowProcess(hwnd), process) {
			return false
		}
	}
	if titleContains != "" {
		title := strings.ToLower(windowText(hwnd))
		if !strings.Contains(title, strings.ToLower(titleContains)) {
			return false
		}
	}
	return true
}
