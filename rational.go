// rational.go — exact rational display for the Float type.
//
// Devin's Float is an exact rational (math/big.Rat, always normalized with
// a positive denominator). Arithmetic lives in eval_ops.go; this file
// implements the decimal rendering rule: a terminating decimal when the
// reduced denominator has only 2 and 5 as prime factors, and a
// repeating-decimal form with the period in parentheses otherwise.
package devin

import (
	"math/big"
	"strings"
)

var (
	bigOne  = big.NewInt(1)
	bigTwo  = big.NewInt(2)
	bigFive = big.NewInt(5)
	bigTen  = big.NewInt(10)
)

// formatRat renders r as an exact decimal: "1", "-0.5", "0.(3)", "1.2(45)".
func formatRat(r *big.Rat) string {
	num := new(big.Int).Set(r.Num())
	den := new(big.Int).Set(r.Denom())

	var b strings.Builder
	if num.Sign() < 0 {
		b.WriteByte('-')
		num.Neg(num)
	}

	quo, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	b.WriteString(quo.String())
	if rem.Sign() == 0 {
		return b.String()
	}
	b.WriteByte('.')

	if terminatingDenominator(den) {
		writeTerminatingDigits(&b, rem, den)
		return b.String()
	}
	writeRepeatingDigits(&b, rem, den)
	return b.String()
}

// terminatingDenominator reports whether den has only 2 and 5 as prime
// factors, i.e. the decimal expansion terminates.
func terminatingDenominator(den *big.Int) bool {
	d := new(big.Int).Set(den)
	for _, p := range []*big.Int{bigTwo, bigFive} {
		for {
			quo, rem := new(big.Int).QuoRem(d, p, new(big.Int))
			if rem.Sign() != 0 {
				break
			}
			d = quo
		}
	}
	return d.Cmp(bigOne) == 0
}

func writeTerminatingDigits(b *strings.Builder, rem, den *big.Int) {
	r := new(big.Int).Set(rem)
	for r.Sign() != 0 {
		r.Mul(r, bigTen)
		digit, next := new(big.Int).QuoRem(r, den, new(big.Int))
		b.WriteString(digit.String())
		r = next
	}
}

// writeRepeatingDigits runs decimal long division until a remainder
// repeats, then wraps the period in parentheses.
func writeRepeatingDigits(b *strings.Builder, rem, den *big.Int) {
	seen := map[string]int{} // remainder -> index into digits
	var digits []string
	r := new(big.Int).Set(rem)
	for r.Sign() != 0 {
		key := r.String()
		if at, ok := seen[key]; ok {
			for _, d := range digits[:at] {
				b.WriteString(d)
			}
			b.WriteByte('(')
			for _, d := range digits[at:] {
				b.WriteString(d)
			}
			b.WriteByte(')')
			return
		}
		seen[key] = len(digits)
		r.Mul(r, bigTen)
		digit, next := new(big.Int).QuoRem(r, den, new(big.Int))
		digits = append(digits, digit.String())
		r = next
	}
	for _, d := range digits {
		b.WriteString(d)
	}
}
