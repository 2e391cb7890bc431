package board

// DefaultID is the board used when a run does not name one. LM3S6965 has
// the most reliable QEMU machine model of the catalog.
const DefaultID = "lm3s6965"

var armM4FFlags = []string{"-mcpu=cortex-m4", "-mthumb", "-mfloat-abi=hard", "-mfpu=fpv4-sp-d16"}

// Default returns the built-in board catalog.
func Default() *Registry {
	return NewRegistry(
		Profile{
			ID:            "stm32f103c8",
			Name:          "STM32F103C8 (Blue Pill)",
			Arch:          CortexM3,
			FlashKB:       64,
			RAMKB:         20,
			ClockMHz:      72,
			FlashBase:     0x08000000,
			RAMBase:       0x20000000,
			QEMUMachine:   "stm32vldiscovery",
			QEMUCPU:       "cortex-m3",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: []string{"-mcpu=cortex-m3", "-mthumb"},
			Notes:         "popular cheap dev board, limited RAM",
		},
		Profile{
			ID:            "stm32f401re",
			Name:          "STM32F401RE (Nucleo)",
			Arch:          CortexM4F,
			FlashKB:       512,
			RAMKB:         96,
			ClockMHz:      84,
			FlashBase:     0x08000000,
			RAMBase:       0x20000000,
			QEMUMachine:   "netduinoplus2",
			QEMUCPU:       "cortex-m4",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: armM4FFlags,
			HasFPU:        true,
		},
		Profile{
			ID:            "stm32f407vg",
			Name:          "STM32F407VG (Discovery)",
			Arch:          CortexM4F,
			FlashKB:       1024,
			RAMKB:         192,
			ClockMHz:      168,
			FlashBase:     0x08000000,
			RAMBase:       0x20000000,
			QEMUMachine:   "netduinoplus2",
			QEMUCPU:       "cortex-m4",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: armM4FFlags,
			HasFPU:        true,
		},
		Profile{
			ID:            "stm32l476rg",
			Name:          "STM32L476RG (Nucleo)",
			Arch:          CortexM4F,
			FlashKB:       1024,
			RAMKB:         128,
			ClockMHz:      80,
			FlashBase:     0x08000000,
			RAMBase:       0x20000000,
			QEMUMachine:   "netduinoplus2",
			QEMUCPU:       "cortex-m4",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: armM4FFlags,
			HasFPU:        true,
			Notes:         "ultra low power",
		},
		Profile{
			ID:            "esp32",
			Name:          "ESP32 (Generic)",
			Arch:          XtensaLX6,
			FlashKB:       4096,
			RAMKB:         520,
			ClockMHz:      240,
			FlashBase:     0x400d0000,
			RAMBase:       0x3ffb0000,
			Console:       ConsoleUART,
			Compiler:      "xtensa-esp32-elf-gcc",
			CompilerFlags: []string{"-mlongcalls"},
			HasFPU:        true,
			Notes:         "no QEMU machine model, needs a native simulator",
		},
		Profile{
			ID:            "esp32s3",
			Name:          "ESP32-S3",
			Arch:          XtensaLX6,
			FlashKB:       8192,
			RAMKB:         512,
			ClockMHz:      240,
			FlashBase:     0x42000000,
			RAMBase:       0x3fc88000,
			Console:       ConsoleUART,
			Compiler:      "xtensa-esp32s3-elf-gcc",
			CompilerFlags: []string{"-mlongcalls"},
			HasFPU:        true,
		},
		Profile{
			ID:            "esp32c3",
			Name:          "ESP32-C3",
			Arch:          RISCV32,
			FlashKB:       4096,
			RAMKB:         400,
			ClockMHz:      160,
			FlashBase:     0x42000000,
			RAMBase:       0x3fc80000,
			Console:       ConsoleUART,
			Compiler:      "riscv32-esp-elf-gcc",
			CompilerFlags: []string{"-march=rv32imc"},
		},
		Profile{
			ID:            "arduino_uno",
			Name:          "Arduino Uno (ATmega328P)",
			Arch:          AVR,
			FlashKB:       32,
			RAMKB:         2,
			ClockMHz:      16,
			FlashBase:     0x00000000,
			RAMBase:       0x00800100,
			Console:       ConsoleUART,
			Compiler:      "avr-gcc",
			CompilerFlags: []string{"-mmcu=atmega328p"},
			Notes:         "very limited resources",
		},
		Profile{
			ID:            "arduino_nano",
			Name:          "Arduino Nano (ATmega328P)",
			Arch:          AVR,
			FlashKB:       32,
			RAMKB:         2,
			ClockMHz:      16,
			FlashBase:     0x00000000,
			RAMBase:       0x00800100,
			Console:       ConsoleUART,
			Compiler:      "avr-gcc",
			CompilerFlags: []string{"-mmcu=atmega328p"},
		},
		Profile{
			ID:            "arduino_mega",
			Name:          "Arduino Mega (ATmega2560)",
			Arch:          AVR,
			FlashKB:       256,
			RAMKB:         8,
			ClockMHz:      16,
			FlashBase:     0x00000000,
			RAMBase:       0x00800100,
			Console:       ConsoleUART,
			Compiler:      "avr-gcc",
			CompilerFlags: []string{"-mmcu=atmega2560"},
		},
		Profile{
			ID:            "arduino_due",
			Name:          "Arduino Due (SAM3X8E)",
			Arch:          CortexM3,
			FlashKB:       512,
			RAMKB:         96,
			ClockMHz:      84,
			FlashBase:     0x00080000,
			RAMBase:       0x20070000,
			QEMUMachine:   "lm3s6965evb",
			QEMUCPU:       "cortex-m3",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: []string{"-mcpu=cortex-m3", "-mthumb"},
			Notes:         "machine model is not an exact match but compatible",
		},
		Profile{
			ID:            "lm3s6965",
			Name:          "LM3S6965 (Stellaris)",
			Arch:          CortexM3,
			FlashKB:       256,
			RAMKB:         64,
			ClockMHz:      50,
			FlashBase:     0x00000000,
			RAMBase:       0x20000000,
			QEMUMachine:   "lm3s6965evb",
			QEMUCPU:       "cortex-m3",
			Console:       ConsoleSemihosting,
			Compiler:      "arm-none-eabi-gcc",
			CompilerFlags: []string{"-mcpu=cortex-m3", "-mthumb"},
			Notes:         "best QEMU support, good for testing",
		},
	)
}
