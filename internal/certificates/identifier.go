package certificates

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	identifierAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	randomSuffixLen    = 8
	// largest multiple of len(identifierAlphabet) that fits in a byte
	rejectionBound = 252
)

var (
	prefixPattern     = regexp.MustCompile(`^[A-Za-z0-9]{1,16}$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9]{1,16}-[0-9A-Z]{1,13}-[A-Z0-9]{8}$`)

	errIdentifierTaken = errors.New("certificate number already in use")
)

type numberLookup interface {
	ExistsByNumber(ctx context.Context, certificateNo string) (bool, error)
}

// IdentifierGenerator produces public certificate numbers of the form
// PREFIX-BASE36(unix millis)-XXXXXXXX.
type IdentifierGenerator struct {
	prefix string
	lookup numberLookup
	now    func() time.Time
	random io.Reader
}

func NewIdentifierGenerator(prefix string, lookup numberLookup) (*IdentifierGenerator, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, fmt.Errorf("identifier prefix required")
	}
	if !prefixPattern.MatchString(prefix) {
		return nil, fmt.Errorf("identifier prefix %q must be 1-16 letters or digits", prefix)
	}
	if lookup == nil {
		return nil, fmt.Errorf("certificate number lookup required")
	}
	return &IdentifierGenerator{
		prefix: prefix,
		lookup: lookup,
		now:    time.Now,
		random: rand.Reader,
	}, nil
}

// Candidate builds a fresh number without consulting the store.
func (g *IdentifierGenerator) Candidate() (string, error) {
	suffix, err := randomSuffix(g.random)
	if err != nil {
		return "", err
	}
	return FormatIdentifier(g.prefix, g.now(), suffix), nil
}

// Next returns a candidate that is not yet stored. errIdentifierTaken means
// the caller should spend another attempt.
func (g *IdentifierGenerator) Next(ctx context.Context) (string, error) {
	candidate, err := g.Candidate()
	if err != nil {
		return "", err
	}
	exists, err := g.lookup.ExistsByNumber(ctx, candidate)
	if err != nil {
		return "", fmt.Errorf("check certificate number: %w", err)
	}
	if exists {
		return "", errIdentifierTaken
	}
	return candidate, nil
}

func FormatIdentifier(prefix string, at time.Time, suffix string) string {
	stamp := strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36))
	return prefix + "-" + stamp + "-" + suffix
}

// LooksLikeIdentifier reports whether value has the shape of a certificate
// number. Values that fail this never reach the store.
func LooksLikeIdentifier(value string) bool {
	return identifierPattern.MatchString(value)
}

func randomSuffix(r io.Reader) (string, error) {
	out := make([]byte, 0, randomSuffixLen)
	buf := make([]byte, randomSuffixLen*2)
	for len(out) < randomSuffixLen {
		if _, err := io.ReadFull(r, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		for _, b := range buf {
			if b >= rejectionBound {
				continue
			}
			out = append(out, identifierAlphabet[int(b)%len(identifierAlphabet)])
			if len(out) == randomSuffixLen {
				break
			}
		}
	}
	return string(out), nil
}
