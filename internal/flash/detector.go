// Package flash detects connected development boards over USB serial and
// flashes firmware to them with the vendor tools (esptool, st-flash,
// stm32flash).
package flash

import (
	"fmt"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Device is a detected development board on a serial port.
type Device struct {
	Port  string
	Board string
	Chip  string
	VID   string
	PID   string
}

// DisplayName renders the device for listings.
func (d Device) DisplayName() string {
	return fmt.Sprintf("%s (%s) on %s", d.Board, d.Chip, d.Port)
}

type usbID struct {
	vid, pid string
}

// Known VID:PID pairs for common boards and their USB-UART bridges.
var knownDevices = map[usbID]Device{
	{"10c4", "ea60"}: {Board: "esp32", Chip: "Silicon Labs CP210x"},
	{"1a86", "7523"}: {Board: "esp32", Chip: "CH340"},
	{"1a86", "55d4"}: {Board: "esp32", Chip: "CH9102"},
	{"0403", "6001"}: {Board: "esp32", Chip: "FTDI FT232"},
	{"303a", "1001"}: {Board: "esp32s3", Chip: "ESP32-S3 native USB"},
	{"0483", "374b"}: {Board: "stm32", Chip: "ST-Link V2.1"},
	{"0483", "3748"}: {Board: "stm32", Chip: "ST-Link V2"},
	{"0483", "5740"}: {Board: "stm32", Chip: "STM32 Virtual COM"},
	{"2341", "0043"}: {Board: "arduino_uno", Chip: "Arduino Uno"},
	{"2341", "0001"}: {Board: "arduino_uno", Chip: "Arduino Uno (old)"},
	{"2341", "003d"}: {Board: "arduino_due", Chip: "Arduino Due (prog)"},
	{"2341", "003e"}: {Board: "arduino_due", Chip: "Arduino Due (native)"},
	{"2341", "0042"}: {Board: "arduino_mega", Chip: "Arduino Mega 2560"},
	{"1b4f", "9206"}: {Board: "arduino_pro_micro", Chip: "SparkFun Pro Micro"},
}

// Detect lists connected boards. Ports with a recognized VID:PID are mapped
// to a board type; other USB serial ports are reported as unknown so the
// user can still pick them by hand.
func Detect() ([]Device, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, err
	}

	var devices []Device
	for _, p := range ports {
		if d, ok := identify(p.Name, p.VID, p.PID, p.IsUSB); ok {
			devices = append(devices, d)
		}
	}
	return devices, nil
}

// identify classifies one serial port. The bool is false for ports that do
// not look like a development board at all.
func identify(name, vid, pid string, isUSB bool) (Device, bool) {
	key := usbID{strings.ToLower(vid), strings.ToLower(pid)}
	if known, ok := knownDevices[key]; ok {
		return Device{
			Port:  name,
			Board: known.Board,
			Chip:  known.Chip,
			VID:   key.vid,
			PID:   key.pid,
		}, true
	}

	likely := strings.HasPrefix(name, "/dev/ttyUSB") ||
		strings.HasPrefix(name, "/dev/ttyACM") ||
		strings.HasPrefix(name, "/dev/cu.usb")
	if isUSB && likely {
		if key.vid == "" {
			key.vid = "????"
		}
		if key.pid == "" {
			key.pid = "????"
		}
		return Device{
			Port:  name,
			Board: "unknown",
			Chip:  "Unknown USB serial",
			VID:   key.vid,
			PID:   key.pid,
		}, true
	}
	return Device{}, false
}
