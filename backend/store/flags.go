package store

import (
	"errors"
	"os"
	"strings"
)

// The fixed set of boolean variables, in file order. public_server selects
// the public listen address, primary_dataset selects which CSV export the
// search reads.
var FlagNames = []string{"public_server", "primary_dataset"}

var (
	ErrUnknownFlag  = errors.New("store: unknown flag")
	ErrInvalidValue = errors.New("store: invalid boolean value")
)

// Flags reads and rewrites the variables file, one name=value per line.
// Unknown names are ignored on read and rejected on write.
type Flags struct {
	Path string
}

func NewFlags(path string) *Flags {
	return &Flags{Path: path}
}

// ParseBool interprets the accepted boolean literals, case-insensitive.
func ParseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	}
	return false, ErrInvalidValue
}

func allowed(name string) bool {
	for _, n := range FlagNames {
		if n == name {
			return true
		}
	}
	return false
}

func formatFlags(flags map[string]bool) []byte {
	var b strings.Builder
	for _, name := range FlagNames {
		b.WriteString(name)
		b.WriteByte('=')
		if flags[name] {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Read returns the value of every flag. A missing file is initialized with
// everything off. Values outside the accepted literals read as off.
func (s *Flags) Read() (map[string]bool, error) {
	flags := make(map[string]bool, len(FlagNames))
	for _, name := range FlagNames {
		flags[name] = false
	}

	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		if err := writeFileAtomic(s.Path, formatFlags(flags)); err != nil {
			return nil, err
		}
		return flags, nil
	}
	if err != nil {
		return nil, err
	}

	for _, line := range splitLines(string(data)) {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		if !allowed(name) {
			continue
		}
		v, err := ParseBool(value)
		flags[name] = err == nil && v
	}
	return flags, nil
}

// Set updates one flag and rewrites the whole file atomically.
func (s *Flags) Set(name, value string) error {
	name = strings.TrimSpace(name)
	if !allowed(name) {
		return ErrUnknownFlag
	}
	v, err := ParseBool(value)
	if err != nil {
		return err
	}
	flags, err := s.Read()
	if err != nil {
		return err
	}
	flags[name] = v
	return writeFileAtomic(s.Path, formatFlags(flags))
}
