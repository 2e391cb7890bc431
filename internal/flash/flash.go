package flash

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

// Flash method for STM32 targets.
const (
	MethodAuto   = "auto"
	MethodSTLink = "stlink"
	MethodUART   = "uart"
)

const (
	espFlashTimeout   = 120 * time.Second
	stlinkTimeout     = 60 * time.Second
	stm32flashTimeout = 120 * time.Second
)

// Result is the outcome of a flash operation. A tool that ran and reported
// failure comes back as OK=false with its output, not as an error.
type Result struct {
	OK     bool
	Output string
}

// ToolMissingError reports an absent flashing tool with install guidance.
type ToolMissingError struct {
	Tool    string
	Install string
}

func (e *ToolMissingError) Error() string {
	return fmt.Sprintf("%s not found. %s", e.Tool, e.Install)
}

// ESP32 flashes a .bin image to an ESP32 family chip over serial using
// esptool. chip selects the esptool target (esp32, esp32s3, esp32c3).
func ESP32(ctx context.Context, firmware, port string, baud int, chip string) (Result, error) {
	if _, err := os.Stat(firmware); err != nil {
		return Result{}, fmt.Errorf("firmware file not found: %s", firmware)
	}
	if baud <= 0 {
		baud = 460800
	}
	args := esptoolArgs(chip, port, baud, firmware)
	return run(ctx, espFlashTimeout, "esptool.py", args,
		"Install with: pip install esptool")
}

// EraseESP32 wipes the chip's flash.
func EraseESP32(ctx context.Context, port, chip string) (Result, error) {
	args := []string{"--chip", chip, "--port", port, "erase_flash"}
	return run(ctx, stlinkTimeout, "esptool.py", args,
		"Install with: pip install esptool")
}

// STM32 flashes firmware to an STM32 target. MethodAuto tries ST-Link first
// and falls back to the UART bootloader when a port is given.
func STM32(ctx context.Context, firmware, port, method string) (Result, error) {
	if _, err := os.Stat(firmware); err != nil {
		return Result{}, fmt.Errorf("firmware file not found: %s", firmware)
	}

	switch method {
	case MethodAuto:
		res, err := stlink(ctx, firmware)
		if err == nil && res.OK {
			return res, nil
		}
		if port != "" {
			return uartBootloader(ctx, firmware, port)
		}
		return res, err
	case MethodSTLink:
		return stlink(ctx, firmware)
	case MethodUART:
		if port == "" {
			return Result{}, errors.New("serial port required for UART flashing")
		}
		return uartBootloader(ctx, firmware, port)
	default:
		return Result{}, fmt.Errorf("unknown flash method: %s", method)
	}
}

// ResetSTLink pulses the target's reset line via ST-Link.
func ResetSTLink(ctx context.Context) (Result, error) {
	return run(ctx, 10*time.Second, "st-flash", []string{"reset"},
		"Install stlink tools.")
}

func stlink(ctx context.Context, firmware string) (Result, error) {
	args, err := stlinkArgs(firmware)
	if err != nil {
		return Result{}, err
	}
	return run(ctx, stlinkTimeout, "st-flash", args, "Install stlink tools.")
}

// stlinkArgs builds the st-flash invocation. Raw .bin images go to the
// STM32 flash base; ELF carries its own load addresses.
func stlinkArgs(firmware string) ([]string, error) {
	switch filepath.Ext(firmware) {
	case ".bin":
		return []string{"write", firmware, "0x8000000"}, nil
	case ".elf":
		return []string{"--format=ihex", "write", firmware}, nil
	default:
		return nil, fmt.Errorf("unsupported firmware format: %s", filepath.Ext(firmware))
	}
}

func uartBootloader(ctx context.Context, firmware, port string) (Result, error) {
	if filepath.Ext(firmware) != ".bin" {
		return Result{}, errors.New("stm32flash requires a .bin file")
	}
	args := []string{"-w", firmware, "-v", "-g", "0x0", port}
	return run(ctx, stm32flashTimeout, "stm32flash", args,
		"Install with your package manager, e.g. apt install stm32flash")
}

func esptoolArgs(chip, port string, baud int, firmware string) []string {
	return []string{
		"--chip", chip,
		"--port", port,
		"--baud", strconv.Itoa(baud),
		"write_flash", "0x0", firmware,
	}
}

func run(ctx context.Context, timeout time.Duration, tool string, args []string, install string) (Result, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, tool, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	err := cmd.Run()
	switch {
	case err == nil:
		return Result{OK: true, Output: out.String()}, nil
	case errors.Is(err, exec.ErrNotFound):
		return Result{}, &ToolMissingError{Tool: tool, Install: install}
	case ctx.Err() != nil:
		return Result{}, ctx.Err()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		return Result{}, fmt.Errorf("%s timed out after %s", tool, timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Result{OK: false, Output: out.String()}, nil
		}
		return Result{}, err
	}
}
