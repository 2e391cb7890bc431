package memory

import (
	"bufio"
	"debug/elf"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// Usage holds per-section byte counts extracted from a compiled binary.
type Usage struct {
	Text   int64 `json:"text"`
	Data   int64 `json:"data"`
	BSS    int64 `json:"bss"`
	ROData int64 `json:"rodata"`
}

// FlashUsage is the number of bytes the binary occupies in flash.
func (u Usage) FlashUsage() int64 {
	return u.Text + u.Data + u.ROData
}

// RAMUsage is the number of bytes the binary occupies in RAM at runtime.
func (u Usage) RAMUsage() int64 {
	return u.Data + u.BSS
}

func (u Usage) String() string {
	return fmt.Sprintf("flash %d bytes (text %d, data %d, rodata %d), ram %d bytes (data %d, bss %d)",
		u.FlashUsage(), u.Text, u.Data, u.ROData, u.RAMUsage(), u.Data, u.BSS)
}

// Analyze extracts section sizes from the ELF at path using the given
// binutils size tool (e.g. arm-none-eabi-size). If the tool is not
// installed it falls back to reading the ELF directly.
func Analyze(path, sizeTool string) (Usage, error) {
	out, err := exec.Command(sizeTool, "-A", path).Output()
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return AnalyzeELF(path)
		}
		return Usage{}, err
	}
	return ParseSize(string(out)), nil
}

// ParseSize parses `size -A` output: one line per section with a name and
// a byte count. Unrecognized sections are ignored.
func ParseSize(output string) Usage {
	var u Usage
	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		size, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case ".text":
			u.Text = size
		case ".data":
			u.Data = size
		case ".bss":
			u.BSS = size
		case ".rodata":
			u.ROData = size
		}
	}
	return u
}

// AnalyzeELF reads section sizes straight from the ELF headers, for hosts
// without the matching binutils installed.
func AnalyzeELF(path string) (Usage, error) {
	f, err := elf.Open(path)
	if err != nil {
		return Usage{}, err
	}
	defer f.Close()

	var u Usage
	for _, s := range f.Sections {
		switch s.Name {
		case ".text":
			u.Text = int64(s.Size)
		case ".data":
			u.Data = int64(s.Size)
		case ".bss":
			u.BSS = int64(s.Size)
		case ".rodata":
			u.ROData = int64(s.Size)
		}
	}
	return u, nil
}
