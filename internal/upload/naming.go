package upload

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// randomTokenBytes is the size of the random part of a storage name,
	// rendered as twice as many hex characters.
	randomTokenBytes = 8

	// maxNameSuffixBytes keeps storage names well below common filesystem
	// name limits once the prefix is added.
	maxNameSuffixBytes = 200

	fallbackFileName = "file"
)

// NameGenerator produces collision-resistant storage names.
type NameGenerator interface {
	Generate(originalName string) (string, error)
}

// RandomNameGenerator names files "{unix millis}-{hex token}-{original}".
// Uniqueness comes from the timestamp and random token alone; the original
// name is only appended so stored files stay recognizable.
type RandomNameGenerator struct {
	Now  func() time.Time
	Rand io.Reader
}

// NewRandomNameGenerator returns a generator backed by the wall clock and
// crypto/rand.
func NewRandomNameGenerator() *RandomNameGenerator {
	return &RandomNameGenerator{
		Now:  time.Now,
		Rand: rand.Reader,
	}
}

func (g *RandomNameGenerator) Generate(originalName string) (string, error) {
	token := make([]byte, randomTokenBytes)
	if _, err := io.ReadFull(g.Rand, token); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}

	return fmt.Sprintf("%d-%s-%s", g.Now().UnixMilli(), hex.EncodeToString(token), SanitizeFileName(originalName)), nil
}

// SanitizeFileName reduces a client-supplied filename to something safe to
// use as the last component of a storage name: any directory components
// (either separator style) and control characters are removed, and very long
// names keep only their tail so the extension survives.
func SanitizeFileName(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || r == utf8.RuneError {
			return -1
		}
		return r
	}, name)

	if len(name) > maxNameSuffixBytes {
		cut := len(name) - maxNameSuffixBytes
		for cut < len(name) && !utf8.RuneStart(name[cut]) {
			cut++
		}
		name = name[cut:]
	}

	if name == "" || name == "." || name == ".." {
		return fallbackFileName
	}

	return name
}
