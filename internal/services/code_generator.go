package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"employee-coupon/internal/apperror"
	"employee-coupon/internal/config"

	"github.com/google/uuid"
)

// codeAlphabet is the 31-symbol set used for both the month token and the
// code body. It excludes the visually ambiguous characters 0, O, 1, I and L.
// The month token is positional base-31, so the encoding base always equals
// the alphabet length.
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// ambiguousCharacters must never appear in a generated code.
const ambiguousCharacters = "0O1IL"

// CodeGenerator derives deterministic, content-addressed coupon codes.
// A code is a two-character month token followed by a fixed-length body
// computed from an HMAC over (customer id, month index) keyed with the
// configured salt: regenerating for the same customer in the same month
// always yields the same code.
type CodeGenerator struct {
	salt       []byte
	alphabet   []rune
	codeLength int
	epoch      time.Time
}

// NewCodeGenerator validates the coupon configuration and builds a
// generator. An empty salt is a configuration error; generation must never
// silently fall back to a guessable code.
func NewCodeGenerator(cfg *config.CouponConfig) (*CodeGenerator, error) {
	if cfg.Salt == "" {
		return nil, apperror.Configuration("coupon salt is not configured", nil)
	}
	if cfg.CodeLength <= 0 {
		return nil, apperror.Configuration("coupon code length must be positive", nil)
	}

	epoch, err := time.Parse("2006-01-02", cfg.EpochDate)
	if err != nil {
		return nil, apperror.Configuration(fmt.Sprintf("invalid coupon epoch date %q", cfg.EpochDate), err)
	}

	alphabet := []rune(codeAlphabet)
	seen := make(map[rune]bool, len(alphabet))
	for _, r := range alphabet {
		if strings.ContainsRune(ambiguousCharacters, r) {
			return nil, apperror.Configuration(fmt.Sprintf("code alphabet contains ambiguous character %q", r), nil)
		}
		if seen[r] {
			return nil, apperror.Configuration(fmt.Sprintf("code alphabet contains duplicate character %q", r), nil)
		}
		seen[r] = true
	}

	return &CodeGenerator{
		salt:       []byte(cfg.Salt),
		alphabet:   alphabet,
		codeLength: cfg.CodeLength,
		epoch:      epoch.UTC(),
	}, nil
}

// Generate derives the coupon code for a customer at the given reference
// time. Deterministic per (customer, month, salt).
func (g *CodeGenerator) Generate(customerID uuid.UUID, ref time.Time) (string, error) {
	index := MonthsBetween(g.epoch, ref)
	if index < 0 {
		return "", apperror.Configuration(
			fmt.Sprintf("reference date %s precedes coupon epoch %s", ref.Format("2006-01-02"), g.epoch.Format("2006-01-02")), nil)
	}

	token, err := g.EncodeMonthIndex(index)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, g.salt)
	mac.Write(customerID[:])
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(index))
	mac.Write(buf[:])
	sum := mac.Sum(nil)

	body := make([]rune, g.codeLength)
	for i := range body {
		body[i] = g.alphabet[int(sum[i%len(sum)])%len(g.alphabet)]
	}

	return token + string(body), nil
}

// EncodeMonthIndex encodes a month index as two positional base-31 symbols.
func (g *CodeGenerator) EncodeMonthIndex(index int) (string, error) {
	base := len(g.alphabet)
	if index < 0 || index >= base*base {
		return "", fmt.Errorf("month index %d out of encodable range [0, %d)", index, base*base)
	}
	return string(g.alphabet[index/base]) + string(g.alphabet[index%base]), nil
}

// DecodeMonthToken reverses EncodeMonthIndex. Used for debugging issued
// codes; generation never needs it.
func (g *CodeGenerator) DecodeMonthToken(token string) (int, error) {
	runes := []rune(token)
	if len(runes) != 2 {
		return 0, fmt.Errorf("month token must be two characters, got %q", token)
	}

	base := len(g.alphabet)
	index := 0
	for _, r := range runes {
		pos := strings.IndexRune(string(g.alphabet), r)
		if pos < 0 {
			return 0, fmt.Errorf("month token contains character %q outside the alphabet", r)
		}
		index = index*base + pos
	}
	return index, nil
}

// MonthsBetween counts whole months elapsed from epoch to date. A partially
// elapsed month does not count: from an epoch on the 29th, the 28th of the
// following month is still month zero.
func MonthsBetween(epoch, date time.Time) int {
	epoch = epoch.UTC()
	date = date.UTC()

	months := (date.Year()-epoch.Year())*12 + int(date.Month()) - int(epoch.Month())
	if date.Day() < epoch.Day() {
		months--
	}
	return months
}
