package asm

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ErrNoRegisterPair is returned when a double-word value is loaded into a
// register that has no odd partner in the pairing table.
var ErrNoRegisterPair = errors.New("no paired register")

var registerNumbers = map[string]int{
	"zero": 0, "at": 1, "v0": 2, "v1": 3,
	"a0":   4, "a1": 5, "a2": 6, "a3": 7,
	"t0":   8, "t1": 9, "t2": 10, "t3": 11,
	"t4":   12, "t5": 13, "t6": 14, "t7": 15,
	"s0":   16, "s1": 17, "s2": 18, "s3": 19,
	"s4":   20, "s5": 21, "s6": 22, "s7": 23,
	"t8":   24, "t9": 25, "k0": 26, "k1": 27,
	"gp":   28, "sp": 29, "fp": 30, "s8": 30, "ra": 31,
}

// registerPairs maps the first register of a 64-bit pair to its partner.
var registerPairs = map[string]string{
	"$v0": "$v1",
	"$a0": "$a1", "$a2": "$a3",
	"$t0": "$t1", "$t2": "$t3", "$t4": "$t5", "$t6": "$t7",
	"$s0": "$s1", "$s2": "$s3", "$s4": "$s5", "$s6": "$s7",
	"$t8": "$t9",
	"$2":  "$3", "$4": "$5", "$6": "$7", "$8": "$9",
	"$10": "$11", "$12": "$13", "$14": "$15", "$16": "$17",
	"$18": "$19", "$20": "$21", "$22": "$23", "$24": "$25",
}

// registerNumber returns the general purpose register number for "$2" or
// "$v0" style names.
func registerNumber(s string) (int, bool) {
	if len(s) < 2 || s[0] != '$' {
		return 0, false
	}
	name := s[1:]
	if n, ok := registerNumbers[name]; ok {
		return n, true
	}
	n, err := strconv.Atoi(name)
	if err != nil || n < 0 || n > 31 || (len(name) > 1 && name[0] == '0') {
		return 0, false
	}
	return n, true
}

// isFloatRegister matches coprocessor 1 registers ($f0-$f31).
func isFloatRegister(s string) bool {
	if !strings.HasPrefix(s, "$f") || s == "$fp" {
		return false
	}
	n, err := strconv.Atoi(s[2:])
	return err == nil && n >= 0 && n <= 31
}

// IsRegister reports whether s names a general purpose or floating point register.
func IsRegister(s string) bool {
	if _, ok := registerNumber(s); ok {
		return true
	}
	return isFloatRegister(s)
}

// CanonicalRegister returns the numeric spelling of a register ("$v0" -> "$2").
// Names that are not general purpose registers are returned unchanged.
func CanonicalRegister(s string) string {
	if n, ok := registerNumber(s); ok {
		return "$" + strconv.Itoa(n)
	}
	return s
}

// SameRegister compares two register names across their numeric and ABI spellings.
func SameRegister(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return CanonicalRegister(a) == CanonicalRegister(b)
}

// IsZeroRegister reports whether s is $zero / $0.
func IsZeroRegister(s string) bool {
	n, ok := registerNumber(s)
	return ok && n == 0
}

// NextRegister returns the partner of reg for 64-bit register pairs,
// preserving the spelling style of reg.
func NextRegister(reg string) (string, error) {
	next, ok := registerPairs[reg]
	if !ok {
		return "", errors.Wrapf(ErrNoRegisterPair, "register %s", reg)
	}
	return next, nil
}
