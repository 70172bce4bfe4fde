package users

import (
	"errors"
	"strings"
)

const (
	MinPasswordLength    = 8
	strongPasswordLength = 12
	minDistinctRunes     = 4
)

// PasswordCriteria records which strength rules a password satisfies
type PasswordCriteria struct {
	Length  bool
	Upper   bool
	Lower   bool
	Digit   bool
	Symbol  bool
	Variety bool
}

// PasswordStrength is the 0-4 score shown next to a password field
type PasswordStrength struct {
	Score int
	Label string
}

type PasswordEvaluation struct {
	Criteria PasswordCriteria
	Strength PasswordStrength
	Valid    bool
}

var strengthLabels = [...]string{"Weak", "Weak", "Fair", "Good", "Strong"}

// EvaluatePassword scores a candidate password. Valid requires every
// criterion; the score only grades how far past the minimum it goes.
func EvaluatePassword(pwd string) PasswordEvaluation {
	var c PasswordCriteria
	distinct := map[rune]struct{}{}
	for _, r := range pwd {
		distinct[r] = struct{}{}
		switch {
		case r >= 'A' && r <= 'Z':
			c.Upper = true
		case r >= 'a' && r <= 'z':
			c.Lower = true
		case r >= '0' && r <= '9':
			c.Digit = true
		default:
			c.Symbol = true
		}
	}
	length := len([]rune(pwd))
	c.Length = length >= MinPasswordLength
	c.Variety = len(distinct) >= minDistinctRunes

	valid := c.Length && c.Upper && c.Lower && c.Digit && c.Symbol && c.Variety

	score := min(2, length/MinPasswordLength) + countTrue(c.Upper, c.Lower, c.Digit, c.Symbol) - 1
	if valid && length >= strongPasswordLength {
		score++
	}
	score = max(0, min(4, score))

	return PasswordEvaluation{
		Criteria: c,
		Strength: PasswordStrength{Score: score, Label: strengthLabels[score]},
		Valid:    valid,
	}
}

// ValidatePasswordStrength returns an error naming the first unmet rule
func ValidatePasswordStrength(pwd string) error {
	c := EvaluatePassword(pwd).Criteria

	var missing []string
	if !c.Length {
		missing = append(missing, "at least 8 characters")
	}
	if !c.Upper {
		missing = append(missing, "an uppercase letter")
	}
	if !c.Lower {
		missing = append(missing, "a lowercase letter")
	}
	if !c.Digit {
		missing = append(missing, "a number")
	}
	if !c.Symbol {
		missing = append(missing, "a symbol")
	}
	if !c.Variety {
		missing = append(missing, "at least 4 different characters")
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.New("password must contain " + strings.Join(missing, ", "))
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
