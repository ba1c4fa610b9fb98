// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package slug

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMaxAttempts is how many numeric suffixes are tried before the
	// time-derived fallback kicks in.
	DefaultMaxAttempts = 50

	// fallbackBase is used when a title normalizes to nothing.
	fallbackBase = "untitled"
)

// ErrExhausted is returned when even the fallback candidate is taken.
var ErrExhausted = errors.New("slug: no free candidate")

// ExistsFunc reports whether a slug is already used by another live item.
type ExistsFunc func(ctx context.Context, candidate string) (bool, error)

// Allocator resolves slug collisions deterministically: base, base-2,
// base-3, ... up to MaxAttempts, then base-<time>-<random>.
type Allocator struct {
	MaxAttempts int
	Reserved    []string
	Now         func() time.Time
	Token       func() string
}

// NewAllocator returns an allocator that blocks the given reserved slugs.
func NewAllocator(reserved ...string) *Allocator {
	return &Allocator{
		MaxAttempts: DefaultMaxAttempts,
		Reserved:    reserved,
		Now:         time.Now,
		Token:       func() string { return uuid.NewString()[:6] },
	}
}

// IsReserved reports whether s belongs to the protected set.
func (a *Allocator) IsReserved(s string) bool {
	for _, r := range a.Reserved {
		if r == s {
			return true
		}
	}
	return false
}

// Allocate returns a free slug derived from source. Reserved slugs are only
// handed out when allowReserved is set (system items); everyone else is
// coerced to a suffixed variant.
func (a *Allocator) Allocate(ctx context.Context, source string, allowReserved bool, exists ExistsFunc) (string, error) {
	base := Generate(source)
	if base == "" {
		base = fallbackBase
	}

	free := func(candidate string) (bool, error) {
		if !allowReserved && a.IsReserved(candidate) {
			return false, nil
		}
		taken, err := exists(ctx, candidate)
		if err != nil {
			return false, fmt.Errorf("slug exists %q: %w", candidate, err)
		}
		return !taken, nil
	}

	ok, err := free(base)
	if err != nil {
		return "", err
	}
	if ok {
		return base, nil
	}

	attempts := a.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}
	for n := 2; n <= attempts+1; n++ {
		candidate := withSuffix(base, strconv.Itoa(n))
		ok, err := free(candidate)
		if err != nil {
			return "", err
		}
		if ok {
			return candidate, nil
		}
	}

	candidate := withSuffix(base, a.fallbackSuffix())
	ok, err = free(candidate)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrExhausted, candidate)
	}
	return candidate, nil
}

// fallbackSuffix combines the current time with a random token so two
// fallbacks in the same millisecond still differ.
func (a *Allocator) fallbackSuffix() string {
	now := time.Now
	if a.Now != nil {
		now = a.Now
	}
	suffix := strconv.FormatInt(now().UnixMilli(), 36)
	if a.Token != nil {
		suffix += "-" + a.Token()
	}
	return suffix
}

// withSuffix appends -suffix, trimming base so the result fits MaxLength.
func withSuffix(base, suffix string) string {
	limit := MaxLength - len(suffix) - 1
	if len(base) > limit {
		base = strings.TrimRight(base[:limit], "-")
	}
	return base + "-" + suffix
}
