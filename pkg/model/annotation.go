package model

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const sizeKey = "size="

// ErrMalformed is matched by every *MalformedError.
var ErrMalformed = errors.New("malformed record")

// MalformedError reports an input record that cannot be parsed.
type MalformedError struct {
	File   string
	Line   int
	Token  string
	Reason string
}

func (e *MalformedError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("malformed record: %s (%q)", e.Reason, e.Token)
	}
	return fmt.Sprintf("malformed record in %s line %d: %s (%q)", e.File, e.Line, e.Reason, e.Token)
}

func (e *MalformedError) Is(target error) bool {
	return target == ErrMalformed
}

// at fills in the location of a parse error returned by ParseSized.
func at(err error, file string, line int) error {
	var me *MalformedError
	if errors.As(err, &me) {
		me.File = file
		me.Line = line
	}
	return err
}

// ParseSized parses "<id>;size=<n>" with an optional trailing ";" or further
// ";"-separated fields, which are ignored.
func ParseSized(token string) (SizedID, error) {
	id, rest, ok := strings.Cut(token, ";")
	if !ok {
		return SizedID{}, &MalformedError{Token: token, Reason: "missing ;size= annotation"}
	}

	field, _, _ := strings.Cut(rest, ";")
	if !strings.HasPrefix(field, sizeKey) {
		return SizedID{}, &MalformedError{Token: token, Reason: "missing ;size= annotation"}
	}

	digits := field[len(sizeKey):]
	if !isDigits(digits) {
		return SizedID{}, &MalformedError{Token: token, Reason: "size is not a non-negative integer"}
	}

	// Sizes beyond int64 saturate; they pass any abundance threshold.
	size, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		size = math.MaxInt64
	}

	return SizedID{ID: id, Size: size, SizeText: digits}, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// ClusterName is the stable name of the cluster found on a 1-based line.
func ClusterName(prefix string, line int) string {
	return prefix + "_" + strconv.Itoa(line)
}
